package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LEADSBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
//
// A missing config file is not an error: the defaults plus environment
// variables are enough to run.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LEADSBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file. Per-chain endpoints use the chain id as a suffix, e.g.
// LEADSBOT_WSS_BSC or LEADSBOT_EXPLORER_KEY_POLYGON.
func applyEnvOverrides(cfg *Config) {
	// ── Gecko ──
	setStr(&cfg.Gecko.BaseURL, "LEADSBOT_GECKO_BASE_URL")
	setDuration(&cfg.Gecko.PollInterval, "LEADSBOT_GECKO_POLL_INTERVAL")
	setInt(&cfg.Gecko.Pages, "LEADSBOT_GECKO_PAGES")
	setInt(&cfg.Gecko.PerPage, "LEADSBOT_GECKO_PER_PAGE")

	// ── Watch ──
	setFloat64(&cfg.Watch.MinLiquidityUSD, "LEADSBOT_WATCH_MIN_LIQUIDITY_USD")
	setFloat64(&cfg.Watch.MinVolumeUSD, "LEADSBOT_WATCH_MIN_VOLUME_USD")
	setDuration(&cfg.Watch.MaxTokenAge, "LEADSBOT_WATCH_MAX_TOKEN_AGE")
	setDuration(&cfg.Watch.ConfirmationWindow, "LEADSBOT_WATCH_CONFIRMATION_WINDOW")
	setDuration(&cfg.Watch.PendingTTL, "LEADSBOT_WATCH_PENDING_TTL")
	setBool(&cfg.Watch.KeepPendingOnMatch, "LEADSBOT_WATCH_KEEP_PENDING_ON_MATCH")
	setBool(&cfg.Watch.InputDeployHeuristic, "LEADSBOT_WATCH_INPUT_DEPLOY_HEURISTIC")
	setBool(&cfg.Watch.CalldataSubstringMatch, "LEADSBOT_WATCH_CALLDATA_SUBSTRING_MATCH")
	setInt(&cfg.Watch.AgeOracleConcurrency, "LEADSBOT_WATCH_AGE_ORACLE_CONCURRENCY")
	setInt(&cfg.Watch.ExplorerRateLimit, "LEADSBOT_WATCH_EXPLORER_RATE_LIMIT")

	// ── Stream ──
	setDuration(&cfg.Stream.ReconnectBase, "LEADSBOT_STREAM_RECONNECT_BASE")
	setDuration(&cfg.Stream.ReconnectMax, "LEADSBOT_STREAM_RECONNECT_MAX")
	setDuration(&cfg.Stream.ResolveTimeout, "LEADSBOT_STREAM_RESOLVE_TIMEOUT")

	// ── Chains ──
	for i := range cfg.Chains {
		suffix := strings.ToUpper(cfg.Chains[i].ID)
		setStr(&cfg.Chains[i].WsURL, "LEADSBOT_WSS_"+suffix)
		setStr(&cfg.Chains[i].WsURL, "WSS_"+suffix) // compatibility alias
		setStr(&cfg.Chains[i].RPCHTTPURL, "LEADSBOT_RPC_HTTP_"+suffix)
		setStr(&cfg.Chains[i].ExplorerURL, "LEADSBOT_EXPLORER_URL_"+suffix)
		setStr(&cfg.Chains[i].ExplorerAPIKey, "LEADSBOT_EXPLORER_KEY_"+suffix)
	}

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "LEADSBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "LEADSBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "LEADSBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "LEADSBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "LEADSBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "LEADSBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "LEADSBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "LEADSBOT_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "LEADSBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "LEADSBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LEADSBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LEADSBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LEADSBOT_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "LEADSBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "LEADSBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "LEADSBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LEADSBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "LEADSBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LEADSBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LEADSBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "LEADSBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "LEADSBOT_S3_FORCE_PATH_STYLE")

	// ── Audit ──
	setInt(&cfg.Audit.ArchiveRetentionDays, "LEADSBOT_AUDIT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Audit.ArchiveInterval, "LEADSBOT_AUDIT_ARCHIVE_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "LEADSBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramToken, "TELEGRAM_BOT_TOKEN") // compatibility alias
	setStr(&cfg.Notify.TelegramChatID, "LEADSBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.TelegramChatID, "TELEGRAM_ADMIN_ID") // compatibility alias
	setStr(&cfg.Notify.DiscordWebhookURL, "LEADSBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "LEADSBOT_NOTIFY_EVENTS")

	// ── Secrets ──
	setStr(&cfg.Secrets.EncryptedPath, "LEADSBOT_SECRETS_ENCRYPTED_PATH")
	setStr(&cfg.Secrets.Password, "LEADSBOT_SECRETS_PASSWORD")

	// ── Top-level ──
	setStr(&cfg.Mode, "LEADSBOT_MODE")
	setStr(&cfg.LogLevel, "LEADSBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
