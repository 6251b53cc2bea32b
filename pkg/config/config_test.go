package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = `
environment: test
backend:
  type: clickhouse
clickhouse:
  host: localhost
  port: 9000
fuzzy:
  short_window: 10
  long_window: 30
kafka:
  brokers: [a:9092]
  topics:
    candles: candles
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Fuzzy.ShortWindow != 10 || c.Fuzzy.LongWindow != 30 {
		t.Fatalf("expected windows 10/30, got %d/%d", c.Fuzzy.ShortWindow, c.Fuzzy.LongWindow)
	}
	if c.Fuzzy.Spread != 0.01 || c.Fuzzy.Column != "close" || c.Fuzzy.History != 250 {
		t.Fatalf("unexpected fuzzy defaults %+v", c.Fuzzy)
	}
	if c.Server.Port != 8080 || c.CacheTTL != 30*time.Second || c.ClickHouse.Database != "finfuzz" {
		t.Fatalf("unexpected defaults: port=%d ttl=%v db=%s", c.Server.Port, c.CacheTTL, c.ClickHouse.Database)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	_, err := Parse([]byte(`
backend:
  type: kafka
fuzzy:
  short_window: 30
  long_window: 10
  spread: -1
`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"kafka.brokers", "kafka.topics.candles", "clickhouse.host", "0 < short < long", "fuzzy.spread"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env := map[string]string{
		"BACKEND":       "kafka",
		"KAFKA_BROKERS": "b1:9092, b2:9092,",
		"SIGNALS_TOPIC": "sig",
		"FUZZY_SPREAD":  "0.02",
		"REDIS_ADDR":    "redis:6379",
		"FUZZY_WORKERS": "3",
		"REDIS_DB":      "x",
	}
	if err := c.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if c.Backend.Type != "kafka" || c.Kafka.Topics.Signals != "sig" || c.Fuzzy.Spread != 0.02 {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "b2:9092" {
		t.Fatalf("unexpected brokers %v", c.Kafka.Brokers)
	}
	if !c.Redis.Enabled || c.Redis.Addr != "redis:6379" {
		t.Fatalf("expected redis enabled at redis:6379, got %+v", c.Redis)
	}
	if c.Fuzzy.Workers != 3 || c.Redis.DB != 0 {
		t.Fatalf("expected workers 3 and redis db kept on bad input, got %d/%d", c.Fuzzy.Workers, c.Redis.DB)
	}

	if err := c.applyEnv(func(k string) string {
		if k == "FUZZY_SPREAD" {
			return "wide"
		}
		return ""
	}); err == nil {
		t.Fatalf("expected error for non-numeric FUZZY_SPREAD")
	}
}

func TestLoadWithEnvReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FUZZY_SPREAD", "0.015")
	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Fuzzy.Spread != 0.015 {
		t.Fatalf("expected spread 0.015 from env, got %v", c.Fuzzy.Spread)
	}
}
