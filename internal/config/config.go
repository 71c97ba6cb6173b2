// Package config defines all configuration for the indexer binaries.
// Config is loaded from environment variables (with an optional .env file)
// via viper. Required fields fail validation at startup; everything else
// has a sensible default.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the top-level configuration shared by all binaries. Each binary
// validates only the sections it uses.
type Config struct {
	Postgres   PostgresConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Kafka      KafkaConfig
	Geyser     GeyserConfig
	RPC        RPCConfig
	API        APIConfig
	Logging    LoggingConfig

	// NewAccountsKey / NewAccountsLimit control the rolling list of recently
	// discovered markets kept in the cache.
	NewAccountsKey   string
	NewAccountsLimit int

	// EmitCreates / EmitMigrations gate publication of token lifecycle events.
	EmitCreates    bool
	EmitMigrations bool
}

type PostgresConfig struct {
	DatabaseURL string
}

type RedisConfig struct {
	URL string
}

type ClickHouseConfig struct {
	URL      string
	User     string
	Password string
	Database string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type GeyserConfig struct {
	URL   string
	Token string
}

type RPCConfig struct {
	HTTPURL string
}

type APIConfig struct {
	Addr string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first, matching how the services run under compose.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("CLICKHOUSE_URL", "http://clickhouse:8123")
	v.SetDefault("CLICKHOUSE_USER", "clickhouse_user")
	v.SetDefault("CLICKHOUSE_PASSWORD", "clickhouse_password")
	v.SetDefault("CLICKHOUSE_DATABASE", "events_db")
	v.SetDefault("KAFKA_BROKERS", "kafka:9092")
	v.SetDefault("KAFKA_GROUP_ID", "dex_indexer")
	v.SetDefault("NEW_ACCOUNTS_CACHE_LIMIT", 10)
	v.SetDefault("NEW_ACCOUNTS_KEY", "new_accounts")
	v.SetDefault("API_ADDR", ":8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("EMIT_CREATES", false)
	v.SetDefault("EMIT_MIGRATIONS", false)

	cfg := &Config{
		Postgres: PostgresConfig{DatabaseURL: v.GetString("POSTGRES_DATABASE_URL")},
		Redis:    RedisConfig{URL: v.GetString("REDIS_URL")},
		ClickHouse: ClickHouseConfig{
			URL:      v.GetString("CLICKHOUSE_URL"),
			User:     v.GetString("CLICKHOUSE_USER"),
			Password: v.GetString("CLICKHOUSE_PASSWORD"),
			Database: v.GetString("CLICKHOUSE_DATABASE"),
		},
		Kafka: KafkaConfig{
			Brokers: splitBrokers(v.GetString("KAFKA_BROKERS")),
			GroupID: v.GetString("KAFKA_GROUP_ID"),
		},
		Geyser: GeyserConfig{
			URL:   v.GetString("GEYSER_URL"),
			Token: v.GetString("GEYSER_TOKEN"),
		},
		RPC: RPCConfig{HTTPURL: v.GetString("RPC_HTTP_URL")},
		API: APIConfig{Addr: v.GetString("API_ADDR")},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		NewAccountsKey:   v.GetString("NEW_ACCOUNTS_KEY"),
		NewAccountsLimit: v.GetInt("NEW_ACCOUNTS_CACHE_LIMIT"),
		EmitCreates:      v.GetBool("EMIT_CREATES"),
		EmitMigrations:   v.GetBool("EMIT_MIGRATIONS"),
	}

	return cfg, nil
}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateGeyser checks the fields required by the stream consumers.
func (c *Config) ValidateGeyser() error {
	if c.Geyser.URL == "" {
		return fmt.Errorf("GEYSER_URL is required")
	}
	if c.Geyser.Token == "" {
		return fmt.Errorf("GEYSER_TOKEN is required")
	}
	return nil
}

// ValidateProcessor checks the fields required by the three-store processor.
func (c *Config) ValidateProcessor() error {
	if c.Postgres.DatabaseURL == "" {
		return fmt.Errorf("POSTGRES_DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	return nil
}

// ValidateResolver checks the fields required by the resolver service.
func (c *Config) ValidateResolver() error {
	if c.Postgres.DatabaseURL == "" {
		return fmt.Errorf("POSTGRES_DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.RPC.HTTPURL == "" {
		return fmt.Errorf("RPC_HTTP_URL is required")
	}
	return nil
}

// ValidateAPI checks the fields required by the public API.
func (c *Config) ValidateAPI() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	return nil
}
