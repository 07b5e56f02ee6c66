package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/Theoretician9/telegram-leads-bot/internal/blob/s3"
	"github.com/Theoretician9/telegram-leads-bot/internal/cache/redis"
	"github.com/Theoretician9/telegram-leads-bot/internal/config"
	"github.com/Theoretician9/telegram-leads-bot/internal/crypto"
	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
	"github.com/Theoretician9/telegram-leads-bot/internal/notify"
	"github.com/Theoretician9/telegram-leads-bot/internal/store/postgres"
	"github.com/Theoretician9/telegram-leads-bot/internal/watch"
)

// Dependencies bundles every domain-level dependency that the application
// modes need. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Dedup and correlation state. Memory-backed by default, Redis-backed
	// when an address is configured.
	SeenPools  domain.SeenSet
	SentTokens domain.SeenSet
	Pending    domain.PendingDeploymentStore

	// Optional Postgres-backed sinks; nil when Postgres is disabled.
	Audit        domain.AuditStore
	AuditArchive s3blob.AuditArchiveSource
	Listings     domain.ListingStore

	// Optional Redis extras; nil without Redis.
	RateLimiter domain.RateLimiter
	Locks       domain.LockManager

	// Optional S3-backed archival; nil when S3 is disabled.
	BlobWriter *s3blob.Writer

	// Notifications. Nil when no channel is configured.
	Notifier *notify.Notifier

	// Secret values overlaid from the encrypted secrets file.
	Secrets crypto.Secrets
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Encrypted secrets overlay ---
	secrets, err := crypto.LoadSecrets(cfg.Secrets.EncryptedPath, cfg.Secrets.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: secrets: %w", err)
	}
	deps.Secrets = secrets
	applySecrets(cfg, secrets)

	// --- Dedup and pending state: memory by default, Redis when configured ---
	if cfg.Redis.Addr != "" {
		rdClient, err := redis.New(ctx, redis.ClientConfig{
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
		closers = append(closers, func() { _ = rdClient.Close() })

		deps.SeenPools = redis.NewSeenSet(rdClient, "seen")
		deps.SentTokens = redis.NewSeenSet(rdClient, "sent")
		deps.Pending = redis.NewPendingStore(rdClient)
		deps.RateLimiter = redis.NewRateLimiter(rdClient)
		deps.Locks = redis.NewLockManager(rdClient)
	} else {
		deps.SeenPools = watch.NewMemorySeenSet()
		deps.SentTokens = watch.NewMemorySeenSet()
		deps.Pending = watch.NewMemoryPendingStore()
	}

	// --- PostgreSQL audit and listing stores ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		auditStore := postgres.NewAuditStore(pool)
		deps.Audit = auditStore
		deps.AuditArchive = auditStore
		deps.Listings = postgres.NewListingStore(pool)
	}

	// --- S3-compatible object storage for audit archival ---
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Notification channels ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	} else {
		logger.Warn("no notification channels configured, alerts will only be logged")
	}

	return deps, cleanup, nil
}

// applySecrets overlays values from the encrypted secrets file onto the
// plaintext config. Secrets win over both file and environment values.
func applySecrets(cfg *config.Config, secrets crypto.Secrets) {
	if v := secrets.Get("telegram_token"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := secrets.Get("discord_webhook_url"); v != "" {
		cfg.Notify.DiscordWebhookURL = v
	}
	for i := range cfg.Chains {
		if v := secrets.Get("explorer_key_" + cfg.Chains[i].ID); v != "" {
			cfg.Chains[i].ExplorerAPIKey = v
		}
	}
}
