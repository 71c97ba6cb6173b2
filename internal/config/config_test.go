package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.ClickHouse.Database; got != "events_db" {
		t.Errorf("clickhouse database = %q, want events_db", got)
	}
	if got := cfg.Kafka.GroupID; got != "dex_indexer" {
		t.Errorf("kafka group = %q, want dex_indexer", got)
	}
	if got := cfg.NewAccountsLimit; got != 10 {
		t.Errorf("new accounts limit = %d, want 10", got)
	}
	if cfg.EmitMigrations {
		t.Error("EmitMigrations should default to false")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092")
	t.Setenv("POSTGRES_DATABASE_URL", "postgres://test")
	t.Setenv("NEW_ACCOUNTS_CACHE_LIMIT", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b2:9092" {
		t.Errorf("brokers = %v, want [b1:9092 b2:9092]", cfg.Kafka.Brokers)
	}
	if cfg.Postgres.DatabaseURL != "postgres://test" {
		t.Errorf("postgres url = %q", cfg.Postgres.DatabaseURL)
	}
	if cfg.NewAccountsLimit != 25 {
		t.Errorf("new accounts limit = %d, want 25", cfg.NewAccountsLimit)
	}
}

func TestValidate(t *testing.T) {
	var cfg Config

	if err := cfg.ValidateGeyser(); err == nil {
		t.Error("ValidateGeyser should fail with empty config")
	}
	if err := cfg.ValidateResolver(); err == nil {
		t.Error("ValidateResolver should fail with empty config")
	}

	cfg.Geyser = GeyserConfig{URL: "http://geyser:10000", Token: "x"}
	if err := cfg.ValidateGeyser(); err != nil {
		t.Errorf("ValidateGeyser: %v", err)
	}
}
