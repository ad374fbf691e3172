package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

// SyncStateStore implements domain.SyncStateStore using PostgreSQL. The
// table holds a single row keyed by domain.SyncStateID.
type SyncStateStore struct {
	pool *pgxpool.Pool
}

// NewSyncStateStore creates a new SyncStateStore backed by the given pool.
func NewSyncStateStore(pool *pgxpool.Pool) *SyncStateStore {
	return &SyncStateStore{pool: pool}
}

// Load returns the singleton sync state, creating an empty row first if none
// exists.
func (s *SyncStateStore) Load(ctx context.Context) (domain.SyncState, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_state (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		domain.SyncStateID,
	)
	if err != nil {
		return domain.SyncState{}, fmt.Errorf("postgres: init sync state: %w", err)
	}
	return s.Get(ctx)
}

// Get returns the singleton sync state without creating it.
// Returns domain.ErrNotFound when the row is absent.
func (s *SyncStateStore) Get(ctx context.Context) (domain.SyncState, error) {
	var state domain.SyncState
	err := s.pool.QueryRow(ctx,
		`SELECT last_synced_match_time, last_synced_cursor, last_run_at
		 FROM sync_state WHERE id = $1`,
		domain.SyncStateID,
	).Scan(&state.LastSyncedMatchTime, &state.LastSyncedCursor, &state.LastRunAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SyncState{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SyncState{}, fmt.Errorf("postgres: get sync state: %w", err)
	}
	return state, nil
}

// Save overwrites the singleton sync state atomically.
func (s *SyncStateStore) Save(ctx context.Context, state domain.SyncState) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_state (id, last_synced_match_time, last_synced_cursor, last_run_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
			last_synced_match_time = EXCLUDED.last_synced_match_time,
			last_synced_cursor     = EXCLUDED.last_synced_cursor,
			last_run_at            = EXCLUDED.last_run_at`,
		domain.SyncStateID, state.LastSyncedMatchTime, state.LastSyncedCursor, state.LastRunAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save sync state: %w", err)
	}
	return nil
}

var _ domain.SyncStateStore = (*SyncStateStore)(nil)
