package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/buildertrades/internal/blob/s3"
	"github.com/alanyoungcy/buildertrades/internal/cache/redis"
	"github.com/alanyoungcy/buildertrades/internal/config"
	"github.com/alanyoungcy/buildertrades/internal/crypto"
	"github.com/alanyoungcy/buildertrades/internal/domain"
	"github.com/alanyoungcy/buildertrades/internal/notify"
	"github.com/alanyoungcy/buildertrades/internal/platform/polymarket"
	"github.com/alanyoungcy/buildertrades/internal/store/postgres"
)

// Dependencies bundles everything the application needs to serve the
// dashboard and run syncs. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Feed
	Feed domain.TradeFeed

	// Stores
	DB         *postgres.Client
	TradeStore domain.TradeStore
	StateStore domain.SyncStateStore

	// Redis
	RunLocker    domain.RunLocker
	SummaryCache domain.SummaryCache
	LockTTL      time.Duration

	// Object storage, both nil unless archival is enabled.
	Blob     *s3blob.Client
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Builder feed client ---
	deps.Feed = polymarket.NewBuilderClient(cfg.Builder.ClobHost, &crypto.BuilderAuth{
		Key:        cfg.Builder.ApiKey,
		Secret:     cfg.Builder.ApiSecret,
		Passphrase: cfg.Builder.ApiPassphrase,
	})

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.DB = pgClient
	deps.TradeStore = postgres.NewTradeStore(pool)
	deps.StateStore = postgres.NewSyncStateStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	summaryTTL := time.Duration(cfg.Redis.SummaryTTLSecs) * time.Second
	deps.RunLocker = redis.NewRunLock(redisClient)
	deps.SummaryCache = redis.NewSummaryCache(redisClient, summaryTTL)
	deps.LockTTL = time.Duration(cfg.Redis.LockTTLSecs) * time.Second

	// --- S3 trade archival (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		archiveStore, ok := deps.TradeStore.(s3blob.TradeArchiveStore)
		if !ok {
			cleanup()
			return nil, nil, fmt.Errorf("wire: trade store does not support archival")
		}
		deps.Blob = s3Client
		deps.Archiver = s3blob.NewArchiver(s3Client, archiveStore, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
