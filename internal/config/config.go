// Package config loads and validates frontier configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Auth     AuthConfig     `mapstructure:"auth"`
	Frontier FrontierConfig `mapstructure:"frontier"`
	Producer ProducerConfig `mapstructure:"producer"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
	States   StatesConfig   `mapstructure:"states"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AuthConfig holds the remote storage credential.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// FrontierConfig names the remote project and frontier.
type FrontierConfig struct {
	ProjectID      string `mapstructure:"project_id"`
	Name           string `mapstructure:"name"`
	CleanupOnStart bool   `mapstructure:"cleanup_on_start"`
}

// ProducerConfig governs write buffering and partitioning.
type ProducerConfig struct {
	BatchSize            int    `mapstructure:"batch_size"`
	FlushIntervalSeconds int    `mapstructure:"flush_interval_seconds"`
	NumberOfSlots        int    `mapstructure:"number_of_slots"`
	SlotPrefix           string `mapstructure:"slot_prefix"`
}

// ConsumerConfig governs batch consumption.
type ConsumerConfig struct {
	Slot       int `mapstructure:"slot"`
	MaxBatches int `mapstructure:"max_batches"`
}

// StatesConfig governs the deduplication state cache.
type StatesConfig struct {
	CacheSizeLimit int `mapstructure:"cache_size_limit"`
}

// BackendConfig selects the pluggable implementations.
type BackendConfig struct {
	Queue       string         `mapstructure:"queue"`
	States      string         `mapstructure:"states"`
	Partitioner string         `mapstructure:"partitioner"`
	Hubstore    HubstoreConfig `mapstructure:"hubstore"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
}

// HubstoreConfig points at the remote HTTP storage service.
type HubstoreConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// RedisConfig holds the redis connection address.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig holds the postgres DSN.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FRONTIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Empty-string defaults register the keys so AutomaticEnv can fill
	// them during Unmarshal.
	v.SetDefault("auth.api_key", "")
	v.SetDefault("frontier.name", "")
	v.SetDefault("frontier.project_id", "")
	v.SetDefault("backend.redis.password", "")
	v.SetDefault("backend.redis.db", 0)
	v.SetDefault("backend.postgres.dsn", "")
	v.SetDefault("producer.batch_size", 10000)
	v.SetDefault("producer.flush_interval_seconds", 30)
	v.SetDefault("producer.number_of_slots", 8)
	v.SetDefault("producer.slot_prefix", "")
	v.SetDefault("consumer.slot", 0)
	v.SetDefault("consumer.max_batches", 0)
	v.SetDefault("states.cache_size_limit", 20000)
	v.SetDefault("frontier.cleanup_on_start", false)
	v.SetDefault("backend.queue", "hubstore")
	v.SetDefault("backend.states", "hubstore")
	v.SetDefault("backend.partitioner", "fingerprint")
	v.SetDefault("backend.hubstore.endpoint", "https://storage.scrapinghub.com")
	v.SetDefault("backend.hubstore.timeout_seconds", 60)
	v.SetDefault("backend.redis.addr", "localhost:6379")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate checks cross-field constraints that viper cannot express.
func (c Config) Validate() error {
	if c.Producer.NumberOfSlots <= 0 {
		return fmt.Errorf("producer.number_of_slots must be positive, got %d", c.Producer.NumberOfSlots)
	}
	if c.Consumer.Slot < 0 || c.Consumer.Slot >= c.Producer.NumberOfSlots {
		return fmt.Errorf("consumer.slot %d out of range [0, %d)", c.Consumer.Slot, c.Producer.NumberOfSlots)
	}
	if c.Consumer.MaxBatches < 0 {
		return fmt.Errorf("consumer.max_batches must not be negative")
	}
	if c.States.CacheSizeLimit <= 0 {
		return fmt.Errorf("states.cache_size_limit must be positive, got %d", c.States.CacheSizeLimit)
	}
	if c.Frontier.Name == "" {
		return fmt.Errorf("frontier.name is required")
	}
	switch c.Backend.Queue {
	case "hubstore", "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown queue backend %q", c.Backend.Queue)
	}
	switch c.Backend.States {
	case "hubstore", "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown states backend %q", c.Backend.States)
	}
	if c.Backend.Queue == "hubstore" || c.Backend.States == "hubstore" {
		if c.Frontier.ProjectID == "" {
			return fmt.Errorf("frontier.project_id is required for the hubstore backend")
		}
	}
	if c.Backend.Queue == "postgres" || c.Backend.States == "postgres" {
		if c.Backend.Postgres.DSN == "" {
			return fmt.Errorf("backend.postgres.dsn is required for the postgres backend")
		}
	}
	return nil
}
