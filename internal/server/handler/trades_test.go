package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

type stubTradeStore struct {
	trades     []domain.Trade
	total      int64
	hashes     []string
	summary    domain.TradeSummary
	lastFilter domain.TradeFilter
	lastOpts   domain.ListOpts
}

func (s *stubTradeStore) Upsert(ctx context.Context, trade domain.Trade) error { return nil }

func (s *stubTradeStore) Count(ctx context.Context, filter domain.TradeFilter) (int64, error) {
	return s.total, nil
}

func (s *stubTradeStore) List(ctx context.Context, filter domain.TradeFilter, opts domain.ListOpts) ([]domain.Trade, error) {
	s.lastFilter = filter
	s.lastOpts = opts
	return s.trades, nil
}

func (s *stubTradeStore) ListAll(ctx context.Context, filter domain.TradeFilter, opts domain.ListOpts) ([]domain.Trade, error) {
	s.lastFilter = filter
	s.lastOpts = opts
	return s.trades, nil
}

func (s *stubTradeStore) TxHashes(ctx context.Context, filter domain.TradeFilter) ([]string, error) {
	s.lastFilter = filter
	return s.hashes, nil
}

func (s *stubTradeStore) Summary(ctx context.Context, filter domain.TradeFilter, now time.Time) (domain.TradeSummary, error) {
	return s.summary, nil
}

func (s *stubTradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	return s.trades, nil
}

func newTradesHandler(store *stubTradeStore) *TradesHandler {
	return NewTradesHandler(store, &stubStateStore{}, nil, testLogger())
}

func TestListTradesQueryParsing(t *testing.T) {
	store := &stubTradeStore{
		total: 42,
		// A cached summary may lag the live count; pagination must follow
		// the count.
		summary: domain.TradeSummary{TotalTrades: 40, VolumeUSDC: "100"},
	}
	h := newTradesHandler(store)

	req := httptest.NewRequest(http.MethodGet,
		"/api/trades?page=3&pageSize=10&sortBy=sizeUsdc&sortDir=asc&wallet=0xabc&side=BUY&marketAsset=rain", nil)
	rec := httptest.NewRecorder()
	h.ListTrades(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.lastOpts.SortBy != "sizeUsdc" || store.lastOpts.SortDir != "asc" {
		t.Errorf("sort opts = %+v", store.lastOpts)
	}
	if store.lastOpts.Limit != 10 || store.lastOpts.Offset != 20 {
		t.Errorf("pagination = limit %d offset %d, want 10/20", store.lastOpts.Limit, store.lastOpts.Offset)
	}
	if store.lastFilter.Wallet != "0xabc" || store.lastFilter.Side != "BUY" || store.lastFilter.MarketAsset != "rain" {
		t.Errorf("filter = %+v", store.lastFilter)
	}

	body := decodeBody(t, rec)
	if body["page"] != float64(3) || body["pageSize"] != float64(10) {
		t.Errorf("page meta = %v / %v", body["page"], body["pageSize"])
	}
	// 42 rows at 10 per page, from the live count rather than the summary.
	if body["total"] != float64(42) {
		t.Errorf("total = %v, want 42", body["total"])
	}
	if body["totalPages"] != float64(5) {
		t.Errorf("totalPages = %v, want 5", body["totalPages"])
	}
}

func TestListTradesClampsAndDefaults(t *testing.T) {
	store := &stubTradeStore{}
	h := newTradesHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/trades?pageSize=9999&sortBy=evil_column", nil)
	rec := httptest.NewRecorder()
	h.ListTrades(rec, req)

	if store.lastOpts.Limit != 200 {
		t.Errorf("pageSize should clamp to 200, got %d", store.lastOpts.Limit)
	}
	if store.lastOpts.SortBy != "matchTime" {
		t.Errorf("unknown sortBy should fall back to matchTime, got %q", store.lastOpts.SortBy)
	}
	if store.lastOpts.SortDir != "desc" {
		t.Errorf("default sortDir = %q, want desc", store.lastOpts.SortDir)
	}
}

func TestListTradesTxHashes(t *testing.T) {
	store := &stubTradeStore{hashes: []string{"0xh1", "0xh2"}}
	h := newTradesHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/trades?format=txhashes", nil)
	rec := httptest.NewRecorder()
	h.ListTrades(rec, req)

	body := decodeBody(t, rec)
	hashes, ok := body["hashes"].([]any)
	if !ok || len(hashes) != 2 {
		t.Fatalf("hashes = %v", body["hashes"])
	}
}

func TestListTradesTxHashesEmpty(t *testing.T) {
	h := newTradesHandler(&stubTradeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/trades?format=txhashes", nil)
	rec := httptest.NewRecorder()
	h.ListTrades(rec, req)

	// Empty result must be [], not null.
	if !strings.Contains(rec.Body.String(), `"hashes":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListTradesCSV(t *testing.T) {
	matchTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &stubTradeStore{
		trades: []domain.Trade{{
			ID:            "t1",
			WalletAddress: "0xwallet",
			SizeUSDC:      "10.5",
			MatchTime:     &matchTime,
		}},
		summary: domain.TradeSummary{TotalTrades: 1, VolumeUSDC: "10.5"},
	}
	h := newTradesHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/trades?format=csv", nil)
	rec := httptest.NewRecorder()
	h.ListTrades(rec, req)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "builder-trades.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "trade_id,") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "t1") || !strings.Contains(lines[1], "10.5") {
		t.Errorf("row = %q", lines[1])
	}
}
