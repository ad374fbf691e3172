package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/buildertrades/internal/domain"
	"github.com/alanyoungcy/buildertrades/internal/export"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

// sortFields whitelists the sortBy query values. Unknown values fall back
// to matchTime.
var sortFields = map[string]bool{
	"id":              true,
	"matchTime":       true,
	"walletAddress":   true,
	"market":          true,
	"assetId":         true,
	"side":            true,
	"sizeUsdc":        true,
	"transactionHash": true,
}

// TradesHandler serves the dashboard's trade table: filtered pages,
// aggregate summaries, CSV export, and transaction hash lists.
type TradesHandler struct {
	trades domain.TradeStore
	state  domain.SyncStateStore
	cache  domain.SummaryCache // optional
	logger *slog.Logger
}

// NewTradesHandler creates a TradesHandler. cache may be nil, which disables
// summary caching.
func NewTradesHandler(trades domain.TradeStore, state domain.SyncStateStore, cache domain.SummaryCache, logger *slog.Logger) *TradesHandler {
	return &TradesHandler{
		trades: trades,
		state:  state,
		cache:  cache,
		logger: logHandler(logger, "trades"),
	}
}

// tradeQuery is the parsed query string of GET /api/trades.
type tradeQuery struct {
	page     int
	pageSize int
	opts     domain.ListOpts
	filter   domain.TradeFilter
	format   string
}

// parseDate accepts RFC 3339 timestamps and bare dates.
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func parseTradeQuery(r *http.Request) tradeQuery {
	q := r.URL.Query()

	page := 1
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		page = n
	}

	pageSize := defaultPageSize
	if n, err := strconv.Atoi(q.Get("pageSize")); err == nil && n > 0 {
		pageSize = n
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	sortBy := q.Get("sortBy")
	if !sortFields[sortBy] {
		sortBy = "matchTime"
	}
	sortDir := "desc"
	if q.Get("sortDir") == "asc" {
		sortDir = "asc"
	}

	return tradeQuery{
		page:     page,
		pageSize: pageSize,
		opts: domain.ListOpts{
			SortBy:  sortBy,
			SortDir: sortDir,
			Limit:   pageSize,
			Offset:  (page - 1) * pageSize,
		},
		filter: domain.TradeFilter{
			Wallet:      strings.TrimSpace(q.Get("wallet")),
			MarketAsset: strings.TrimSpace(q.Get("marketAsset")),
			Side:        strings.TrimSpace(q.Get("side")),
			Start:       parseDate(q.Get("startDate")),
			End:         parseDate(q.Get("endDate")),
		},
		format: q.Get("format"),
	}
}

// summaryCacheKey derives one cache key per filter combination.
func summaryCacheKey(f domain.TradeFilter) string {
	start, end := "", ""
	if f.Start != nil {
		start = f.Start.Format(time.RFC3339)
	}
	if f.End != nil {
		end = f.End.Format(time.RFC3339)
	}
	return strings.Join([]string{f.Wallet, f.MarketAsset, f.Side, start, end}, "|")
}

// ListTrades handles GET /api/trades. format=csv streams the full filtered
// set as a download, format=txhashes returns the hash list, and the default
// returns one JSON page with the summary and sync state attached.
func (h *TradesHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := parseTradeQuery(r)

	switch query.format {
	case "csv":
		h.exportCSV(w, r, query)
		return
	case "txhashes":
		h.listTxHashes(w, r, query)
		return
	}

	summary, err := h.summary(r, query.filter)
	if err != nil {
		writeInternalError(w, h.logger, "trades", "Failed to fetch trades", err)
		return
	}

	// Pagination counts come from a live query; the summary may be a cached
	// snapshot up to a TTL old.
	total, err := h.trades.Count(ctx, query.filter)
	if err != nil {
		writeInternalError(w, h.logger, "trades", "Failed to fetch trades", err)
		return
	}

	trades, err := h.trades.List(ctx, query.filter, query.opts)
	if err != nil {
		writeInternalError(w, h.logger, "trades", "Failed to fetch trades", err)
		return
	}

	state, err := h.state.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		writeInternalError(w, h.logger, "trades", "Failed to fetch trades", err)
		return
	}

	items := make([]map[string]any, 0, len(trades))
	for _, t := range trades {
		raw := json.RawMessage("{}")
		if len(t.RawJSON) > 0 {
			raw = t.RawJSON
		}
		items = append(items, map[string]any{
			"id":              t.ID,
			"builderApiKey":   t.BuilderAPIKey,
			"walletAddress":   t.WalletAddress,
			"transactionHash": t.TransactionHash,
			"matchTime":       isoOrNil(t.MatchTime),
			"market":          t.Market,
			"assetId":         t.AssetID,
			"side":            t.Side,
			"sizeUsdc":        t.SizeUSDC,
			"rawJson":         raw,
		})
	}

	totalPages := (total + int64(query.pageSize) - 1) / int64(query.pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"page":       query.page,
		"pageSize":   query.pageSize,
		"total":      total,
		"totalPages": totalPages,
		"summary":    summary,
		"syncState": map[string]any{
			"lastSyncedMatchTime": isoOrNil(state.LastSyncedMatchTime),
			"lastSyncedCursor":    strOrNil(state.LastSyncedCursor),
			"lastRunAt":           isoOrNil(state.LastRunAt),
		},
		"items": items,
	})
}

// summary computes the aggregate block, consulting the cache first when one
// is configured. Cache errors degrade to a direct store query.
func (h *TradesHandler) summary(r *http.Request, filter domain.TradeFilter) (domain.TradeSummary, error) {
	ctx := r.Context()
	key := summaryCacheKey(filter)

	if h.cache != nil {
		if cached, ok, err := h.cache.Get(ctx, key); err != nil {
			h.logger.Warn("summary cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return cached, nil
		}
	}

	summary, err := h.trades.Summary(ctx, filter, time.Now().UTC())
	if err != nil {
		return domain.TradeSummary{}, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, summary); err != nil {
			h.logger.Warn("summary cache write failed", slog.String("error", err.Error()))
		}
	}
	return summary, nil
}

// exportCSV streams the full filtered set, in the requested sort order, as
// an attachment.
func (h *TradesHandler) exportCSV(w http.ResponseWriter, r *http.Request, query tradeQuery) {
	ctx := r.Context()

	summary, err := h.summary(r, query.filter)
	if err != nil {
		writeInternalError(w, h.logger, "trades export", "Failed to fetch trades", err)
		return
	}

	trades, err := h.trades.ListAll(ctx, query.filter, query.opts)
	if err != nil {
		writeInternalError(w, h.logger, "trades export", "Failed to fetch trades", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.CSVFilename))
	w.WriteHeader(http.StatusOK)

	if err := export.WriteTradesCSV(w, trades, summary.VolumeUSDC); err != nil {
		// Headers are already sent; all we can do is log.
		h.logger.Error("csv export write failed", slog.String("error", err.Error()))
	}
}

func (h *TradesHandler) listTxHashes(w http.ResponseWriter, r *http.Request, query tradeQuery) {
	hashes, err := h.trades.TxHashes(r.Context(), query.filter)
	if err != nil {
		writeInternalError(w, h.logger, "trades txhashes", "Failed to fetch trades", err)
		return
	}
	if hashes == nil {
		hashes = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"hashes": hashes,
	})
}
