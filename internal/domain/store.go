package domain

import (
	"context"
	"time"
)

// TradeStore persists builder trades keyed by their remote-assigned ID.
type TradeStore interface {
	// Upsert inserts the trade or, when the ID already exists, overwrites
	// every mutable field.
	Upsert(ctx context.Context, trade Trade) error
	Count(ctx context.Context, filter TradeFilter) (int64, error)
	List(ctx context.Context, filter TradeFilter, opts ListOpts) ([]Trade, error)
	// ListAll returns the full filtered set ordered by opts, for exports.
	ListAll(ctx context.Context, filter TradeFilter, opts ListOpts) ([]Trade, error)
	TxHashes(ctx context.Context, filter TradeFilter) ([]string, error)
	Summary(ctx context.Context, filter TradeFilter, now time.Time) (TradeSummary, error)
	// ListBefore returns trades matched strictly before the cutoff, for
	// archival snapshots.
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
}

// SyncStateStore persists the singleton sync-state record.
type SyncStateStore interface {
	// Load returns the singleton record, creating an empty one if absent.
	Load(ctx context.Context) (SyncState, error)
	// Save atomically upserts the singleton record.
	Save(ctx context.Context, state SyncState) error
	// Get returns the singleton record without creating it; a missing row
	// returns ErrNotFound.
	Get(ctx context.Context) (SyncState, error)
}

// TradeFeed fetches pages of builder trades from the remote venue.
type TradeFeed interface {
	// FetchPage retrieves one page of trades. cursor is empty for the first
	// page. Failures carry a structured status via APIError.
	FetchPage(ctx context.Context, cursor string) (TradePage, error)
	// ServerTime returns the venue's epoch seconds, for clock-skew checks.
	ServerTime(ctx context.Context) (int64, error)
	// Host returns the feed's base URL, for diagnostics.
	Host() string
}

// RunLocker guards against concurrent overlapping sync runs.
type RunLocker interface {
	// Acquire obtains the named lock for at most ttl. It returns an unlock
	// function on success and ErrLockHeld when another run holds the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SummaryCache caches the dashboard summary between syncs.
type SummaryCache interface {
	Get(ctx context.Context, key string) (TradeSummary, bool, error)
	Set(ctx context.Context, key string, summary TradeSummary) error
	Invalidate(ctx context.Context) error
}
