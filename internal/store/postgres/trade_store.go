package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, COALESCE(builder_api_key, ''), wallet_address,
	COALESCE(market, ''), COALESCE(asset_id, ''), COALESCE(side, ''),
	size_usdc::text, match_time, COALESCE(transaction_hash, ''), raw_json`

// sortColumns whitelists the API-facing sort field names and maps them to
// table columns. Anything else falls back to match_time.
var sortColumns = map[string]string{
	"id":              "id",
	"matchTime":       "match_time",
	"walletAddress":   "wallet_address",
	"market":          "market",
	"assetId":         "asset_id",
	"side":            "side",
	"sizeUsdc":        "size_usdc",
	"transactionHash": "transaction_hash",
}

// Upsert inserts the trade or overwrites every mutable field when the ID
// already exists. Optional descriptive strings are stored as NULL when
// empty.
func (s *TradeStore) Upsert(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (
			id, builder_api_key, wallet_address, market, asset_id, side,
			size_usdc, match_time, transaction_hash, raw_json
		) VALUES (
			$1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
			$7::numeric, $8, NULLIF($9, ''), $10
		)
		ON CONFLICT (id) DO UPDATE SET
			builder_api_key  = EXCLUDED.builder_api_key,
			wallet_address   = EXCLUDED.wallet_address,
			market           = EXCLUDED.market,
			asset_id         = EXCLUDED.asset_id,
			side             = EXCLUDED.side,
			size_usdc        = EXCLUDED.size_usdc,
			match_time       = EXCLUDED.match_time,
			transaction_hash = EXCLUDED.transaction_hash,
			raw_json         = EXCLUDED.raw_json,
			updated_at       = NOW()`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.BuilderAPIKey, t.WalletAddress, t.Market, t.AssetID, t.Side,
		t.SizeUSDC, t.MatchTime, t.TransactionHash, []byte(t.RawJSON),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert trade %s: %w", t.ID, err)
	}
	return nil
}

// buildWhere renders the filter as a WHERE clause and its bind arguments.
func buildWhere(filter domain.TradeFilter) (string, []any) {
	clause := " WHERE 1=1"
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		clause += fmt.Sprintf(" AND "+cond, len(args))
	}

	if filter.Wallet != "" {
		add("wallet_address ILIKE '%%' || $%d || '%%'", filter.Wallet)
	}
	if filter.Side != "" {
		add("side = $%d", filter.Side)
	}
	if filter.MarketAsset != "" {
		args = append(args, filter.MarketAsset)
		n := len(args)
		clause += fmt.Sprintf(" AND (market ILIKE '%%' || $%d || '%%' OR asset_id ILIKE '%%' || $%d || '%%')", n, n)
	}
	if filter.Start != nil {
		add("match_time >= $%d", *filter.Start)
	}
	if filter.End != nil {
		add("match_time <= $%d", *filter.End)
	}

	return clause, args
}

func orderBy(opts domain.ListOpts) string {
	col, ok := sortColumns[opts.SortBy]
	if !ok {
		col = "match_time"
	}
	dir := "DESC"
	if opts.SortDir == "asc" {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s NULLS LAST", col, dir)
}

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var raw []byte
		if err := rows.Scan(
			&t.ID, &t.BuilderAPIKey, &t.WalletAddress,
			&t.Market, &t.AssetID, &t.Side,
			&t.SizeUSDC, &t.MatchTime, &t.TransactionHash, &raw,
		); err != nil {
			return nil, err
		}
		t.RawJSON = raw
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Count returns the number of trades matching the filter.
func (s *TradeStore) Count(ctx context.Context, filter domain.TradeFilter) (int64, error) {
	where, args := buildWhere(filter)

	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM trades"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count trades: %w", err)
	}
	return count, nil
}

// List returns one page of trades matching the filter.
func (s *TradeStore) List(ctx context.Context, filter domain.TradeFilter, opts domain.ListOpts) ([]domain.Trade, error) {
	where, args := buildWhere(filter)
	query := "SELECT " + tradeSelectCols + " FROM trades" + where + orderBy(opts)

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// ListAll returns the full filtered trade set ordered by opts, for exports.
func (s *TradeStore) ListAll(ctx context.Context, filter domain.TradeFilter, opts domain.ListOpts) ([]domain.Trade, error) {
	where, args := buildWhere(filter)
	query := "SELECT " + tradeSelectCols + " FROM trades" + where + orderBy(opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan all trades: %w", err)
	}
	return trades, nil
}

// TxHashes returns the non-empty transaction hashes of the filtered trades,
// newest first.
func (s *TradeStore) TxHashes(ctx context.Context, filter domain.TradeFilter) ([]string, error) {
	where, args := buildWhere(filter)
	query := `SELECT transaction_hash FROM trades` + where +
		` AND transaction_hash IS NOT NULL AND TRIM(transaction_hash) <> ''` +
		` ORDER BY match_time DESC NULLS LAST`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tx hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("postgres: scan tx hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// Summary aggregates the filtered trade set. Date-range constraints apply to
// the totals but not to the rolling today/7d/30d windows, which are anchored
// at UTC midnight of now.
func (s *TradeStore) Summary(ctx context.Context, filter domain.TradeFilter, now time.Time) (domain.TradeSummary, error) {
	var summary domain.TradeSummary

	where, args := buildWhere(filter)
	totalsQuery := `
		SELECT COUNT(*),
			COALESCE(SUM(size_usdc), 0)::text,
			COUNT(DISTINCT wallet_address)
		FROM trades` + where
	err := s.pool.QueryRow(ctx, totalsQuery, args...).Scan(
		&summary.TotalTrades, &summary.VolumeUSDC, &summary.UniqueWallets,
	)
	if err != nil {
		return domain.TradeSummary{}, fmt.Errorf("postgres: trade totals: %w", err)
	}

	// Rolling windows ignore the explicit date-range filter.
	base := filter
	base.Start = nil
	base.End = nil
	baseWhere, baseArgs := buildWhere(base)

	dayStart := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	sevenDayStart := dayStart.AddDate(0, 0, -7)
	thirtyDayStart := dayStart.AddDate(0, 0, -30)

	n := len(baseArgs)
	windowQuery := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(size_usdc) FILTER (WHERE match_time >= $%d), 0)::text,
			COALESCE(SUM(size_usdc) FILTER (WHERE match_time >= $%d), 0)::text,
			COALESCE(SUM(size_usdc) FILTER (WHERE match_time >= $%d), 0)::text,
			COUNT(*) FILTER (WHERE match_time >= $%d)
		FROM trades`, n+1, n+2, n+3, n+1) + baseWhere
	windowArgs := append(baseArgs, dayStart, sevenDayStart, thirtyDayStart)

	err = s.pool.QueryRow(ctx, windowQuery, windowArgs...).Scan(
		&summary.VolumeToday, &summary.Volume7d, &summary.Volume30d, &summary.TradesToday,
	)
	if err != nil {
		return domain.TradeSummary{}, fmt.Errorf("postgres: trade windows: %w", err)
	}

	summary.AvgSizeUSDC = "0"
	if summary.TotalTrades > 0 {
		if vol, parseErr := strconv.ParseFloat(summary.VolumeUSDC, 64); parseErr == nil {
			summary.AvgSizeUSDC = strconv.FormatFloat(vol/float64(summary.TotalTrades), 'f', 6, 64)
		}
	}

	return summary, nil
}

// ListBefore returns all trades matched strictly before the cutoff, oldest
// first, for archival snapshots.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	query := "SELECT " + tradeSelectCols + " FROM trades WHERE match_time < $1 ORDER BY match_time ASC"

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades before: %w", err)
	}
	return trades, nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
