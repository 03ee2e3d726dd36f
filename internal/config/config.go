package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken   string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
		BotName    string `yaml:"bot_name" env:"TELEGRAM_BOT_NAME"`
		MaxRetries int    `yaml:"max_retries" env:"TELEGRAM_MAX_RETRIES"`
	} `yaml:"telegram"`
	Sources struct {
		MonobankURL   string        `yaml:"monobank_url" env:"MONOBANK_URL"`
		PrivatBankURL string        `yaml:"privatbank_url" env:"PRIVATBANK_URL"`
		Timeout       time.Duration `yaml:"timeout" env:"SOURCE_TIMEOUT"`
	} `yaml:"sources"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron" env:"CRON_REFRESH"`
		RunOnStart  bool   `yaml:"run_on_start" env:"RUN_ON_START"`
	} `yaml:"schedule"`
	Rates struct {
		MaxMinutesDifference int64 `yaml:"max_minutes_difference" env:"MAX_MINUTES_DIFFERENCE"`
	} `yaml:"rates"`
	Database struct {
		Driver string `yaml:"driver" env:"DB_DRIVER"`
		DSN    string `yaml:"dsn" env:"DB_DSN"`
	} `yaml:"database"`
	Cache struct {
		Backend       string        `yaml:"backend" env:"CACHE_BACKEND"`
		RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
		RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
		RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
		TTL           time.Duration `yaml:"ttl" env:"CACHE_TTL"`
	} `yaml:"cache"`
	Kafka struct {
		Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
		Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
	} `yaml:"kafka"`
	HTTP struct {
		Addr string `yaml:"addr" env:"HTTP_ADDR"`
	} `yaml:"http"`
	Notifier struct {
		QueueSize int `yaml:"queue_size" env:"NOTIFIER_QUEUE_SIZE"`
	} `yaml:"notifier"`
	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy" env:"HTTPS_PROXY"`
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	// Defaults
	if cfg.Telegram.BotName == "" {
		cfg.Telegram.BotName = "RateSentinelBot"
	}
	if cfg.Telegram.MaxRetries == 0 {
		cfg.Telegram.MaxRetries = 3
	}
	if cfg.Sources.Timeout == 0 {
		cfg.Sources.Timeout = 10 * time.Second
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 0 * * * *"
	}
	if cfg.Rates.MaxMinutesDifference == 0 {
		cfg.Rates.MaxMinutesDifference = 60
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "data/rate_sentinel.db"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "rates.updated"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Notifier.QueueSize == 0 {
		cfg.Notifier.QueueSize = 16
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return cfg, nil
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.RefreshCron); err != nil {
		return fmt.Errorf("schedule.refresh_cron: %w", err)
	}
	if c.Rates.MaxMinutesDifference <= 0 {
		return fmt.Errorf("rates.max_minutes_difference must be positive")
	}
	if c.Sources.Timeout <= 0 {
		return fmt.Errorf("sources.timeout must be positive")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for %s", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres or memory, got %q", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.backend must be memory, redis or none, got %q", c.Cache.Backend)
	}
	if c.Telegram.MaxRetries < 0 {
		return fmt.Errorf("telegram.max_retries cannot be negative")
	}
	if c.Notifier.QueueSize <= 0 {
		return fmt.Errorf("notifier.queue_size must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	return nil
}
