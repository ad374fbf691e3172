package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

func TestWriteTradesCSV(t *testing.T) {
	matchTime := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	trades := []domain.Trade{
		{
			ID:              "t1",
			BuilderAPIKey:   "bk-1",
			WalletAddress:   "0x1111111111111111111111111111111111111111",
			Market:          "Will it rain, tomorrow?",
			AssetID:         "asset-1",
			Side:            "BUY",
			SizeUSDC:        "10.5",
			MatchTime:       &matchTime,
			TransactionHash: "0xhash1",
		},
		{
			ID:            "t2",
			WalletAddress: "unknown",
			SizeUSDC:      "0",
		},
	}

	var buf bytes.Buffer
	if err := WriteTradesCSV(&buf, trades, "10.5"); err != nil {
		t.Fatalf("WriteTradesCSV() error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}

	header := strings.Join(records[0], ",")
	want := "trade_id,builder_api_key,wallet_full,market,asset_id,side,size_usdc,match_time_utc,transaction_hash_full,computed_volume_usdc_total"
	if header != want {
		t.Errorf("header = %q, want %q", header, want)
	}

	row := records[1]
	if row[0] != "t1" || row[2] != "0x1111111111111111111111111111111111111111" {
		t.Errorf("row 1 = %v", row)
	}
	// The comma in the market name must survive the round trip.
	if row[3] != "Will it rain, tomorrow?" {
		t.Errorf("market = %q", row[3])
	}
	if row[7] != "2024-03-01T12:30:00Z" {
		t.Errorf("match time = %q", row[7])
	}
	// Every row repeats the filtered total volume.
	if row[9] != "10.5" || records[2][9] != "10.5" {
		t.Errorf("total volume column = %q / %q", row[9], records[2][9])
	}

	// Nil match time renders empty.
	if records[2][7] != "" {
		t.Errorf("nil match time = %q, want empty", records[2][7])
	}
}

func TestWriteTradesCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTradesCSV(&buf, nil, "0"); err != nil {
		t.Fatalf("WriteTradesCSV() error: %v", err)
	}
	out := strings.TrimRight(buf.String(), "\n")
	if strings.Count(out, "\n") != 0 {
		t.Errorf("expected only the header line, got %q", out)
	}
}
