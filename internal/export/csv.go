// Package export renders trade data into downloadable formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

// CSVFilename is the suggested download name for trade exports.
const CSVFilename = "builder-trades.csv"

// tradeCSVHeader lists the export columns. wallet_full and
// transaction_hash_full carry the untruncated values the dashboard elides,
// and computed_volume_usdc_total repeats the filtered set's total volume on
// every row so a spreadsheet user sees it without a formula.
var tradeCSVHeader = []string{
	"trade_id",
	"builder_api_key",
	"wallet_full",
	"market",
	"asset_id",
	"side",
	"size_usdc",
	"match_time_utc",
	"transaction_hash_full",
	"computed_volume_usdc_total",
}

// WriteTradesCSV writes the trades as CSV to w. totalVolumeUSDC is the
// aggregate volume of the full filtered set, not just these rows.
func WriteTradesCSV(w io.Writer, trades []domain.Trade, totalVolumeUSDC string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(tradeCSVHeader); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}

	for _, t := range trades {
		matchTime := ""
		if t.MatchTime != nil {
			matchTime = t.MatchTime.UTC().Format(time.RFC3339)
		}
		record := []string{
			t.ID,
			t.BuilderAPIKey,
			t.WalletAddress,
			t.Market,
			t.AssetID,
			t.Side,
			t.SizeUSDC,
			matchTime,
			t.TransactionHash,
			totalVolumeUSDC,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: write csv row %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush csv: %w", err)
	}
	return nil
}
