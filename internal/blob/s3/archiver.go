package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/buildertrades/internal/domain"
	"github.com/alanyoungcy/buildertrades/internal/export"
)

// multipartThreshold is the snapshot size above which the archiver switches
// to a multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// TradeArchiveStore provides the read access the archiver needs. The
// Postgres trade store satisfies it.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
	Summary(ctx context.Context, filter domain.TradeFilter, now time.Time) (domain.TradeSummary, error)
}

// Archiver periodically snapshots the trade table to object storage as CSV,
// so the dashboard database can be rebuilt or audited from cold storage.
// Archived trades are not deleted from the primary store.
type Archiver struct {
	client *Client
	trades TradeArchiveStore
	logger *slog.Logger
}

// NewArchiver creates a new Archiver.
func NewArchiver(client *Client, trades TradeArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		client: client,
		trades: trades,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveTrades snapshots every trade matched before the cutoff into a CSV
// object at archive/trades/YYYY-MM-DD.csv and returns the row count.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	summary, err := a.trades.Summary(ctx, domain.TradeFilter{End: &before}, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades summary: %w", err)
	}

	var buf bytes.Buffer
	if err := export.WriteTradesCSV(&buf, trades, summary.VolumeUSDC); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades render: %w", err)
	}

	path := archivePath(before)
	if buf.Len() > multipartThreshold {
		err = a.client.PutMultipart(ctx, path, &buf, 0)
	} else {
		err = a.client.Put(ctx, path, &buf, "text/csv; charset=utf-8")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	count := int64(len(trades))
	a.logger.Info("archived trades",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Time("before", before),
	)
	return count, nil
}

// RunLoop archives on a fixed interval until the context is cancelled.
// Failures are logged and the loop keeps running.
func (a *Archiver) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := a.ArchiveTrades(ctx, now.UTC()); err != nil {
				a.logger.Error("trade archive failed", slog.String("error", err.Error()))
			}
		}
	}
}

// archivePath builds the S3 key for a snapshot, partitioned by the cutoff
// date.
//
//	archive/trades/2025-01-31.csv
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/trades/%s.csv", before.Format("2006-01-02"))
}
