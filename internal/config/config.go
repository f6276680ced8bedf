// Package config loads the bot configuration: the shared core sections plus
// channels, roles, storage, sessions and download limits.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/lumiabot/core/config"
	coredatabase "github.com/m3rciful/lumiabot/core/database"
)

const (
	StorageJSON     = "json"
	StoragePostgres = "postgres"

	SessionMemory = "memory"
	SessionRedis  = "redis"

	LookupRetry = "retry"
	LookupExit  = "exit"
)

// ChannelsConfig lists the Telegram channels the bot works with.
type ChannelsConfig struct {
	Firmware  int64 `yaml:"firmware" envconfig:"FIRMWARE_CHANNEL"`
	Emergency int64 `yaml:"emergency" envconfig:"EMERGENCY_CHANNEL"`
	Upload    int64 `yaml:"upload" envconfig:"UPLOAD_CHANNEL"`
	Request   int64 `yaml:"request" envconfig:"REQUEST_CHANNEL"`
	Unblock   int64 `yaml:"unblock" envconfig:"UNBLOCK_CHANNEL"`
}

// StorageConfig selects the record backend.
type StorageConfig struct {
	Backend string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	// Dir holds the JSON files for the json backend.
	Dir string `yaml:"dir" envconfig:"STORAGE_DIR"`
	// SeedCatalog is a devices.json upserted into postgres at startup.
	SeedCatalog string `yaml:"seed_catalog" envconfig:"STORAGE_SEED_CATALOG"`
}

// SessionConfig selects where conversation sessions live.
type SessionConfig struct {
	Backend  string        `yaml:"backend" envconfig:"SESSION_BACKEND"`
	RedisURL string        `yaml:"redis_url" envconfig:"REDIS_URL"`
	Prefix   string        `yaml:"prefix" envconfig:"SESSION_PREFIX"`
	TTL      time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
}

// DownloadsConfig tunes the download quota.
type DownloadsConfig struct {
	DailyLimit int           `yaml:"daily_limit" envconfig:"DOWNLOADS_DAILY_LIMIT"`
	Window     time.Duration `yaml:"window" envconfig:"DOWNLOADS_WINDOW"`
}

// FlowsConfig tunes conversation flows.
type FlowsConfig struct {
	// OnLookupFailure is "retry" (stay in /get_id) or "exit".
	OnLookupFailure string `yaml:"on_lookup_failure" envconfig:"FLOWS_ON_LOOKUP_FAILURE"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Channels    ChannelsConfig      `yaml:"channels"`
	SuperAdmins []int64             `yaml:"super_admins" envconfig:"SUPER_ADMIN"`
	Storage     StorageConfig       `yaml:"storage"`
	Database    coredatabase.Config `yaml:"database"`
	Session     SessionConfig       `yaml:"session"`
	Downloads   DownloadsConfig     `yaml:"downloads"`
	Flows       FlowsConfig         `yaml:"flows"`
}

// CoreConfig exposes the shared runtime sections.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the bot sections and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return coreconfig.ErrNilConfig
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	channels := map[string]int64{
		"firmware":  cfg.Channels.Firmware,
		"emergency": cfg.Channels.Emergency,
		"upload":    cfg.Channels.Upload,
		"request":   cfg.Channels.Request,
		"unblock":   cfg.Channels.Unblock,
	}
	for _, name := range []string{"firmware", "emergency", "upload", "request", "unblock"} {
		if channels[name] == 0 {
			return fmt.Errorf("channels.%s is required", name)
		}
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch cfg.Storage.Backend {
	case "":
		cfg.Storage.Backend = StorageJSON
		fallthrough
	case StorageJSON:
		if cfg.Storage.Dir == "" {
			cfg.Storage.Dir = "data"
		}
	case StoragePostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres backend")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
	default:
		return fmt.Errorf("invalid storage.backend %q; allowed: json, postgres", cfg.Storage.Backend)
	}

	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	switch cfg.Session.Backend {
	case "":
		cfg.Session.Backend = SessionMemory
	case SessionMemory:
	case SessionRedis:
		if cfg.Session.RedisURL == "" {
			return fmt.Errorf("session.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", cfg.Session.Backend)
	}
	if cfg.Session.Prefix == "" {
		cfg.Session.Prefix = "lumiabot:session:"
	}
	if cfg.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must be >= 0")
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}

	if cfg.Downloads.DailyLimit < 0 {
		return fmt.Errorf("downloads.daily_limit must be >= 0")
	}
	if cfg.Downloads.DailyLimit == 0 {
		cfg.Downloads.DailyLimit = 2
	}
	if cfg.Downloads.Window < 0 {
		return fmt.Errorf("downloads.window must be >= 0")
	}
	if cfg.Downloads.Window == 0 {
		cfg.Downloads.Window = 24 * time.Hour
	}

	cfg.Flows.OnLookupFailure = strings.ToLower(strings.TrimSpace(cfg.Flows.OnLookupFailure))
	switch cfg.Flows.OnLookupFailure {
	case "":
		cfg.Flows.OnLookupFailure = LookupRetry
	case LookupRetry, LookupExit:
	default:
		return fmt.Errorf("invalid flows.on_lookup_failure %q; allowed: retry, exit", cfg.Flows.OnLookupFailure)
	}
	return nil
}
