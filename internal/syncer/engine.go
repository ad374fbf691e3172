package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

// maxPagesPerSync is the hard cap on pages fetched in a single run. It is
// the last line of defense against a feed that keeps producing fresh
// cursors.
const maxPagesPerSync = 200

// syncLockKey names the advisory lock that serializes sync runs.
const syncLockKey = "builder-sync"

// Alerter delivers operator notifications for sync lifecycle events.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Broadcaster pushes sync lifecycle events to connected dashboard clients.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Options carries the optional collaborators of the Engine. Any nil field
// disables the corresponding behavior.
type Options struct {
	Locker      domain.RunLocker
	LockTTL     time.Duration
	Cache       domain.SummaryCache
	Alerter     Alerter
	Broadcaster Broadcaster
}

// Engine reconciles the remote builder trade feed into local storage. It
// drives the pagination loop, normalizes and upserts each record, and maintains
// the singleton sync-state watermark.
type Engine struct {
	feed    domain.TradeFeed
	trades  domain.TradeStore
	state   domain.SyncStateStore
	retrier *Retrier
	opts    Options
	logger  *slog.Logger
}

// NewEngine creates a sync engine over the given feed and stores.
func NewEngine(feed domain.TradeFeed, trades domain.TradeStore, state domain.SyncStateStore, opts Options, logger *slog.Logger) *Engine {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	return &Engine{
		feed:    feed,
		trades:  trades,
		state:   state,
		retrier: NewRetrier(),
		opts:    opts,
		logger:  logger.With(slog.String("component", "syncer")),
	}
}

// Sync executes one full reconciliation run and returns its report.
//
// The run walks the feed page by page starting from an empty cursor,
// upserting every record with a usable ID. It terminates on an empty page,
// a stale or repeated cursor, or the page cap, then persists the updated
// watermark, cursor, and run time. Any fetch or storage failure aborts the
// run without touching the sync state; authentication failures surface as
// *domain.AuthError.
func (e *Engine) Sync(ctx context.Context) (domain.SyncReport, error) {
	if e.opts.Locker != nil {
		unlock, err := e.opts.Locker.Acquire(ctx, syncLockKey, e.opts.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return domain.SyncReport{}, domain.ErrSyncRunning
			}
			return domain.SyncReport{}, fmt.Errorf("syncer: acquire run lock: %w", err)
		}
		defer unlock()
	}

	report, err := e.run(ctx)
	if err != nil {
		e.reportFailure(ctx, err)
		return domain.SyncReport{}, err
	}

	if e.opts.Cache != nil {
		if cacheErr := e.opts.Cache.Invalidate(ctx); cacheErr != nil {
			e.logger.WarnContext(ctx, "summary cache invalidation failed",
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	if e.opts.Broadcaster != nil {
		e.opts.Broadcaster.Broadcast("sync_completed", map[string]any{
			"fetched":  report.Fetched,
			"upserted": report.Upserted,
		})
	}

	return report, nil
}

func (e *Engine) run(ctx context.Context) (domain.SyncReport, error) {
	correlationID := uuid.NewString()

	state, err := e.state.Load(ctx)
	if err != nil {
		return domain.SyncReport{}, fmt.Errorf("syncer: load sync state: %w", err)
	}

	var (
		cursor              string
		lastProcessedCursor string
		pageCount           int
		totalFetched        int
		totalUpserted       int
		newestSeen          = state.LastSyncedMatchTime
		seenCursors         = map[string]bool{}
	)

	for pageCount < maxPagesPerSync {
		pageCount++

		var page domain.TradePage
		fetchErr := e.retrier.Do(ctx, func() error {
			var err error
			page, err = e.feed.FetchPage(ctx, cursor)
			return err
		})
		if fetchErr != nil {
			return domain.SyncReport{}, e.classifyFetchFailure(ctx, fetchErr, correlationID)
		}

		if len(page.Trades) == 0 {
			break
		}
		totalFetched += len(page.Trades)

		for _, raw := range page.Trades {
			tradeID := NormalizeTradeID(raw)
			if tradeID == "" {
				continue
			}

			matchTime := ParseMatchTime(raw.MatchTime)
			if matchTime != nil && (newestSeen == nil || matchTime.After(*newestSeen)) {
				newestSeen = matchTime
			}

			trade := domain.Trade{
				ID:              tradeID,
				BuilderAPIKey:   raw.Builder,
				WalletAddress:   ResolveWallet(raw),
				Market:          raw.Market,
				AssetID:         raw.AssetID,
				Side:            raw.Side,
				SizeUSDC:        NormalizeSize(raw.SizeUSDC),
				MatchTime:       matchTime,
				TransactionHash: raw.TransactionHash,
				RawJSON:         compactJSON(raw.Raw),
			}

			if err := e.trades.Upsert(ctx, trade); err != nil {
				return domain.SyncReport{}, fmt.Errorf("syncer: upsert trade %s: %w", tradeID, err)
			}
			totalUpserted++
		}

		// Stale or cyclic cursors mean the feed is done or misbehaving;
		// either way the loop must not revisit a page.
		next := page.NextCursor
		if next == "" || next == cursor || seenCursors[next] {
			break
		}

		seenCursors[next] = true
		lastProcessedCursor = next
		cursor = next
	}

	now := time.Now().UTC()
	updated := domain.SyncState{
		LastSyncedMatchTime: state.LastSyncedMatchTime,
		LastSyncedCursor:    nil,
		LastRunAt:           &now,
	}
	if newestSeen != nil {
		updated.LastSyncedMatchTime = newestSeen
	}
	if lastProcessedCursor != "" {
		updated.LastSyncedCursor = &lastProcessedCursor
	}

	if err := e.state.Save(ctx, updated); err != nil {
		return domain.SyncReport{}, fmt.Errorf("syncer: save sync state: %w", err)
	}

	e.logger.InfoContext(ctx, "sync completed",
		slog.Int("pages", pageCount),
		slog.Int("fetched", totalFetched),
		slog.Int("upserted", totalUpserted),
	)

	return domain.SyncReport{
		Fetched:  totalFetched,
		Upserted: totalUpserted,
		State:    updated,
	}, nil
}

// classifyFetchFailure turns a terminal fetch failure into either an auth
// error with remediation text and clock-skew diagnostic, or passes the
// original failure through for the generic path.
func (e *Engine) classifyFetchFailure(ctx context.Context, err error, correlationID string) error {
	if !domain.IsAuthFailure(err) {
		return err
	}

	status, ok := domain.ErrorStatus(err)
	if !ok {
		status = 401
	}
	skew := e.clockSkewSeconds(ctx)

	msg := fmt.Sprintf(
		"Builder auth failed: check the builder API credentials and restart the server (status %d, correlationId %s%s)",
		status, correlationID, skewSuffix(skew),
	)

	return &domain.AuthError{
		Status:           status,
		Message:          msg,
		CorrelationID:    correlationID,
		ClockSkewSeconds: skew,
	}
}

// clockSkewSeconds measures the absolute difference between local time and
// the venue's server time. It is a best-effort diagnostic: any failure
// yields nil rather than an error.
func (e *Engine) clockSkewSeconds(ctx context.Context) *int64 {
	epoch, err := e.feed.ServerTime(ctx)
	if err != nil {
		return nil
	}
	skew := epoch - time.Now().Unix()
	if skew < 0 {
		skew = -skew
	}
	return &skew
}

func skewSuffix(skew *int64) string {
	if skew == nil {
		return ""
	}
	return fmt.Sprintf(", clockSkewSeconds %d", *skew)
}

// CheckConnection probes the feed with a single page fetch through the
// retry policy. It always returns a status object, never an error.
func (e *Engine) CheckConnection(ctx context.Context) domain.ConnectionStatus {
	correlationID := uuid.NewString()

	err := e.retrier.Do(ctx, func() error {
		_, fetchErr := e.feed.FetchPage(ctx, "")
		return fetchErr
	})
	if err == nil {
		return domain.ConnectionStatus{
			Connected: true,
			Mode:      "builder",
			Host:      e.feed.Host(),
		}
	}

	status, _ := domain.ErrorStatus(err)
	skew := e.clockSkewSeconds(ctx)

	var details string
	if status == 401 {
		details = fmt.Sprintf(
			"Builder auth failed: check the builder API credentials and restart the server (status 401, correlationId %s%s)",
			correlationID, skewSuffix(skew),
		)
	} else {
		statusPart := ""
		if status > 0 {
			statusPart = fmt.Sprintf(" %d", status)
		}
		details = fmt.Sprintf(
			"Builder connection failed%s: %s (correlationId %s%s)",
			statusPart, domain.ErrorMessage(err), correlationID, skewSuffix(skew),
		)
	}

	return domain.ConnectionStatus{
		Connected:     false,
		Mode:          "builder",
		Host:          e.feed.Host(),
		Error:         details,
		CorrelationID: correlationID,
	}
}

// RunLoop runs Sync on a repeating interval until the context is cancelled.
// Failures are logged and the loop keeps ticking; an overlapping manual run
// simply skips the tick via the run lock.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("sync loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.Sync(ctx); err != nil {
				if errors.Is(err, domain.ErrSyncRunning) {
					e.logger.Info("skipping scheduled sync, another run in progress")
					continue
				}
				e.logger.Error("scheduled sync failed", slog.String("error", err.Error()))
			}
		}
	}
}

// reportFailure logs a safe summary of the failure and fans it out to the
// alerter and dashboard clients. Secrets and raw response bodies stay out of
// the broadcast payload.
func (e *Engine) reportFailure(ctx context.Context, err error) {
	status, _ := domain.ErrorStatus(err)
	e.logger.ErrorContext(ctx, "sync failed",
		slog.Int("status", status),
		slog.String("message", domain.ErrorMessage(err)),
		slog.String("data", domain.ErrorBody(err)),
	)

	event := "sync_failed"
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		event = "auth_failed"
	}

	if e.opts.Alerter != nil {
		if notifyErr := e.opts.Alerter.Notify(ctx, event, "Builder trade sync failed", domain.ErrorMessage(err)); notifyErr != nil {
			e.logger.WarnContext(ctx, "failure notification not delivered",
				slog.String("error", notifyErr.Error()),
			)
		}
	}
	if e.opts.Broadcaster != nil {
		e.opts.Broadcaster.Broadcast(event, map[string]any{
			"message": domain.ErrorMessage(err),
		})
	}
}

// compactJSON re-encodes raw through one round-trip so the stored payload is
// a self-contained copy, with the original bytes kept when the round-trip
// fails.
func compactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return raw
	}
	out, err := json.Marshal(decoded)
	if err != nil {
		return raw
	}
	return out
}
