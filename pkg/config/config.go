package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FinFuzz/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type string `yaml:"type"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Topics       struct {
			Candles string `yaml:"candles"`
			Signals string `yaml:"signals"`
			DLQ     string `yaml:"dlq"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled         bool          `yaml:"enabled"`
			GroupID         string        `yaml:"group_id"`
			AutoOffsetReset string        `yaml:"auto_offset_reset"`
			Workers         int           `yaml:"workers"`
			BufferSize      int           `yaml:"buffer_size"`
			RetryMax        int           `yaml:"retry_max"`
			BackoffMin      time.Duration `yaml:"backoff_min"`
			BackoffMax      time.Duration `yaml:"backoff_max"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		MaxOpenConns     int           `yaml:"max_open_conns"`
		MaxIdleConns     int           `yaml:"max_idle_conns"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Fuzzy struct {
		Column      string  `yaml:"column"`
		ShortWindow int     `yaml:"short_window"`
		LongWindow  int     `yaml:"long_window"`
		Spread      float64 `yaml:"spread"`
		Workers     int     `yaml:"workers"`
		History     int     `yaml:"history"`
	} `yaml:"fuzzy"`
	Stream struct {
		PingInterval time.Duration `yaml:"ping_interval"`
		BufferSize   int           `yaml:"buffer_size"`
	} `yaml:"stream"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads an optional .env file, then the YAML config, and applies
// environment overrides on top.
func LoadWithEnv(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("CANDLES_TOPIC"); v != "" {
		c.Kafka.Topics.Candles = v
	}
	if v := getenv("SIGNALS_TOPIC"); v != "" {
		c.Kafka.Topics.Signals = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("FUZZY_SPREAD"); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FUZZY_SPREAD: %w", err)
		}
		c.Fuzzy.Spread = w
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	c.Redis.DB = util.ParseIntDefault(getenv("REDIS_DB"), c.Redis.DB)
	c.Fuzzy.Workers = util.ParseIntDefault(getenv("FUZZY_WORKERS"), c.Fuzzy.Workers)
	return nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Fuzzy.Column == "" {
		c.Fuzzy.Column = "close"
	}
	if c.Fuzzy.ShortWindow == 0 {
		c.Fuzzy.ShortWindow = 5
	}
	if c.Fuzzy.LongWindow == 0 {
		c.Fuzzy.LongWindow = 20
	}
	if c.Fuzzy.Spread == 0 {
		c.Fuzzy.Spread = 0.01
	}
	if c.Fuzzy.History == 0 {
		c.Fuzzy.History = 250
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "finfuzz"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 30 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend.Type {
	case "":
		errs = append(errs, errors.New("backend.type is required"))
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers cannot be empty with the kafka backend"))
		}
		if c.Kafka.Topics.Candles == "" {
			errs = append(errs, errors.New("kafka.topics.candles is required with the kafka backend"))
		}
	case "clickhouse":
	default:
		errs = append(errs, fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type))
	}
	if c.Kafka.Consumer.Enabled && c.Kafka.Consumer.GroupID == "" {
		errs = append(errs, errors.New("kafka.consumer.group_id is required when the consumer is enabled"))
	}
	if c.ClickHouse.Host == "" {
		errs = append(errs, errors.New("clickhouse.host is required"))
	}
	if c.Fuzzy.ShortWindow <= 0 || c.Fuzzy.ShortWindow >= c.Fuzzy.LongWindow {
		errs = append(errs, fmt.Errorf("fuzzy windows must satisfy 0 < short < long, got %d/%d", c.Fuzzy.ShortWindow, c.Fuzzy.LongWindow))
	}
	if math.IsNaN(c.Fuzzy.Spread) || math.IsInf(c.Fuzzy.Spread, 0) || c.Fuzzy.Spread <= 0 {
		errs = append(errs, fmt.Errorf("fuzzy.spread must be positive, got %v", c.Fuzzy.Spread))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
