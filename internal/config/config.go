// Package config defines the top-level configuration for the listing
// detector and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by LEADSBOT_* environment
// variables.
type Config struct {
	Gecko    GeckoConfig    `toml:"gecko"`
	Watch    WatchConfig    `toml:"watch"`
	Stream   StreamConfig   `toml:"stream"`
	Chains   []ChainConfig  `toml:"chains"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Audit    AuditConfig    `toml:"audit"`
	Notify   NotifyConfig   `toml:"notify"`
	Secrets  SecretsConfig  `toml:"secrets"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// GeckoConfig holds parameters for the pool-snapshot REST source.
type GeckoConfig struct {
	BaseURL string `toml:"base_url"`
	// PollInterval is the fixed per-chain polling interval.
	PollInterval duration `toml:"poll_interval"`
	// Pages is how many result pages to request per cycle.
	Pages int `toml:"pages"`
	// PerPage is the page size passed to the API.
	PerPage int `toml:"per_page"`
	// Stagger is the base delay between starting successive chains' poll
	// loops; StaggerStep is added once per chain index on top of it.
	Stagger     duration `toml:"stagger"`
	StaggerStep duration `toml:"stagger_step"`
}

// WatchConfig holds the correlation-engine thresholds and TTLs.
type WatchConfig struct {
	MinLiquidityUSD    float64  `toml:"min_liquidity_usd"`
	MinVolumeUSD       float64  `toml:"min_volume_usd"`
	MaxTokenAge        duration `toml:"max_token_age"`
	ConfirmationWindow duration `toml:"confirmation_window"`
	PendingTTL         duration `toml:"pending_ttl"`
	// KeepPendingOnMatch retains a pending deployment after it matched a
	// liquidity event, so later liquidity calls from the same address are
	// reported again by the audit log (never re-alerted).
	KeepPendingOnMatch bool `toml:"keep_pending_on_match"`
	// InputDeployHeuristic additionally classifies transactions whose call
	// data starts with a known create/init bytecode prefix as deployments.
	InputDeployHeuristic bool `toml:"input_deploy_heuristic"`
	// CalldataSubstringMatch enables the permissive variant that matches a
	// pending address appearing anywhere inside router call data.
	CalldataSubstringMatch bool `toml:"calldata_substring_match"`
	// AgeOracleConcurrency bounds concurrent explorer lookups per chain.
	AgeOracleConcurrency int `toml:"age_oracle_concurrency"`
	// ExplorerRateLimit is the per-second request budget per chain explorer.
	// Only enforced when Redis is configured. Zero disables the limiter.
	ExplorerRateLimit int `toml:"explorer_rate_limit"`
}

// StreamConfig holds reconnect parameters for the pending-transaction
// streams.
type StreamConfig struct {
	ReconnectBase duration `toml:"reconnect_base"`
	ReconnectMax  duration `toml:"reconnect_max"`
	// ResolveTimeout bounds the hash-to-transaction lookup per notification.
	ResolveTimeout duration `toml:"resolve_timeout"`
}

// ChainConfig holds the per-chain endpoints and router allow-list.
type ChainConfig struct {
	ID string `toml:"id"`
	// WsURL is the websocket JSON-RPC endpoint for eth_subscribe.
	WsURL string `toml:"ws_url"`
	// RPCHTTPURL is the HTTP JSON-RPC endpoint used to resolve transaction
	// hashes. When empty it is derived from WsURL (wss:// -> https://).
	RPCHTTPURL string `toml:"rpc_http_url"`
	// ExplorerURL is the etherscan-style API root for the age oracle.
	ExplorerURL    string `toml:"explorer_url"`
	ExplorerAPIKey string `toml:"explorer_api_key"`
	// Routers is the DEX router address allow-list, lowercase hex.
	Routers []string `toml:"routers"`
	// ExtraSelectors appends chain-specific four-byte selectors to the
	// liquidity/swap classification table.
	ExtraSelectors []string `toml:"extra_selectors"`
}

// PostgresConfig holds PostgreSQL connection parameters for the audit and
// listing stores.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When Addr is empty all
// dedup and pending state lives in process memory only.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for audit archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// AuditConfig controls audit retention and archival.
type AuditConfig struct {
	// ArchiveRetentionDays is how long audit rows stay in Postgres before
	// the archiver moves them to object storage. Zero disables archival.
	ArchiveRetentionDays int `toml:"archive_retention_days"`
	// ArchiveInterval is how often the archiver sweep runs.
	ArchiveInterval duration `toml:"archive_interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// SecretsConfig points at an optional encrypted secrets file. Values from
// the file (explorer API keys, telegram token) override the plaintext config.
type SecretsConfig struct {
	EncryptedPath string `toml:"encrypted_path"`
	Password      string `toml:"password"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "20s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "20s" or "72h".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. The
// chain list carries the router allow-lists the detector shipped with; ws
// endpoints and API keys come from the environment or the TOML file.
func Defaults() Config {
	return Config{
		Gecko: GeckoConfig{
			BaseURL:      "https://api.geckoterminal.com/api/v2",
			PollInterval: duration{20 * time.Second},
			Pages:        1,
			PerPage:      100,
			Stagger:      duration{1500 * time.Millisecond},
			StaggerStep:  duration{500 * time.Millisecond},
		},
		Watch: WatchConfig{
			MinLiquidityUSD:      5000,
			MinVolumeUSD:         2000,
			MaxTokenAge:          duration{24 * time.Hour},
			ConfirmationWindow:   duration{2 * time.Minute},
			PendingTTL:           duration{72 * time.Hour},
			AgeOracleConcurrency: 4,
			ExplorerRateLimit:    5,
		},
		Stream: StreamConfig{
			ReconnectBase:  duration{5 * time.Second},
			ReconnectMax:   duration{60 * time.Second},
			ResolveTimeout: duration{10 * time.Second},
		},
		Chains: []ChainConfig{
			{
				ID: "bsc",
				Routers: []string{
					"0x10ed43c718714eb63d5aa57b78b54704e256024e",
					"0xc9b085d878e28fa776b1e269595f65726b000039",
				},
			},
			{
				ID: "polygon",
				Routers: []string{
					"0xa5e0829caced8ffdd4de3c43696c57f7d7a678ff",
				},
			},
			{ID: "eth"},
			{ID: "arbitrum"},
			{ID: "base"},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "leadsbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "leadsbot-data",
			ForcePathStyle: true,
		},
		Audit: AuditConfig{
			ArchiveRetentionDays: 90,
			ArchiveInterval:      duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"listing_detected", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"poll":   true,
	"stream": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found. Fatal-at-startup problems
// only: a chain missing an explorer key or a ws endpoint is not an error
// here, it merely disables that chain's corresponding detection path at run
// time.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: poll, stream, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Gecko.BaseURL == "" {
		errs = append(errs, "gecko: base_url must not be empty")
	}
	if c.Gecko.PollInterval.Duration <= 0 {
		errs = append(errs, "gecko: poll_interval must be positive")
	}
	if c.Gecko.Pages < 1 {
		errs = append(errs, "gecko: pages must be >= 1")
	}
	if c.Gecko.PerPage < 1 {
		errs = append(errs, "gecko: per_page must be >= 1")
	}

	if c.Watch.MinLiquidityUSD < 0 {
		errs = append(errs, "watch: min_liquidity_usd must not be negative")
	}
	if c.Watch.MinVolumeUSD < 0 {
		errs = append(errs, "watch: min_volume_usd must not be negative")
	}
	if c.Watch.MaxTokenAge.Duration <= 0 {
		errs = append(errs, "watch: max_token_age must be positive")
	}
	if c.Watch.ConfirmationWindow.Duration <= 0 {
		errs = append(errs, "watch: confirmation_window must be positive")
	}
	if c.Watch.PendingTTL.Duration <= 0 {
		errs = append(errs, "watch: pending_ttl must be positive")
	}
	if c.Watch.AgeOracleConcurrency < 1 {
		errs = append(errs, "watch: age_oracle_concurrency must be >= 1")
	}

	if c.Stream.ReconnectBase.Duration <= 0 {
		errs = append(errs, "stream: reconnect_base must be positive")
	}
	if c.Stream.ReconnectMax.Duration < c.Stream.ReconnectBase.Duration {
		errs = append(errs, "stream: reconnect_max must not be less than reconnect_base")
	}

	if len(c.Chains) == 0 {
		errs = append(errs, "chains: at least one chain must be configured")
	}
	seen := map[string]bool{}
	for i, ch := range c.Chains {
		if ch.ID == "" {
			errs = append(errs, fmt.Sprintf("chains[%d]: id must not be empty", i))
			continue
		}
		if seen[ch.ID] {
			errs = append(errs, fmt.Sprintf("chains[%d]: duplicate chain id %q", i, ch.ID))
		}
		seen[ch.ID] = true
		for _, r := range ch.Routers {
			if !strings.HasPrefix(r, "0x") || strings.ToLower(r) != r {
				errs = append(errs, fmt.Sprintf("chains[%d]: router %q must be lowercase 0x-prefixed hex", i, r))
			}
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: archival requires postgres to be enabled")
		}
	}

	if c.Secrets.EncryptedPath != "" && c.Secrets.Password == "" {
		errs = append(errs, "secrets: password is required when encrypted_path is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Chain returns the configuration for the given chain id, or nil.
func (c *Config) Chain(id string) *ChainConfig {
	for i := range c.Chains {
		if c.Chains[i].ID == id {
			return &c.Chains[i]
		}
	}
	return nil
}

// StreamHTTPURL returns the HTTP JSON-RPC endpoint for the chain, deriving
// it from the websocket URL when rpc_http_url is not set.
func (ch *ChainConfig) StreamHTTPURL() string {
	if ch.RPCHTTPURL != "" {
		return ch.RPCHTTPURL
	}
	u := ch.WsURL
	u = strings.Replace(u, "wss://", "https://", 1)
	u = strings.Replace(u, "ws://", "http://", 1)
	return u
}
