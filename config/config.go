package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Checker      CheckerConfig      `yaml:"checker"`
	Poller       PollerConfig       `yaml:"poller"`
	Database     DatabaseConfig     `yaml:"database"`
	Notification NotificationConfig `yaml:"notification"`
	WorkerPool   WorkerPoolConfig   `yaml:"worker_pool"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// WorkerPoolConfig bounds how many section groups the poller checks at once.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// NotificationConfig selects and configures the notifier channels.
type NotificationConfig struct {
	SMTP SMTPConfig `yaml:"smtp"`
	Push PushConfig `yaml:"push"`
}

// SMTPConfig holds the outgoing mail settings.
type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" env:"SEATWATCH_SMTP_HOST"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username" env:"SEATWATCH_SMTP_USERNAME"`
	Password string `yaml:"password" env:"SEATWATCH_SMTP_PASSWORD"`
	From     string `yaml:"from"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key" env:"SEATWATCH_VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"SEATWATCH_VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" env:"SEATWATCH_PORT"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	UserIDHeader    string  `yaml:"user_id_header"`
	UserEmailHeader string  `yaml:"user_email_header"`
	RequestTimeout  int     `yaml:"request_timeout_seconds"`
}

// CheckerConfig describes the upstream section availability endpoint.
type CheckerConfig struct {
	URL             string            `yaml:"url" env:"SEATWATCH_CHECKER_URL"`
	Headers         map[string]string `yaml:"headers"`
	HTTPProxy       string            `yaml:"http_proxy"`
	TimeoutSeconds  int               `yaml:"timeout_seconds"`
	RateLimitPerSec float64           `yaml:"rate_limit_per_sec"`
}

// PollerConfig holds the re-check loop configuration.
type PollerConfig struct {
	Enabled              bool          `yaml:"enabled"`
	IntervalSeconds      int           `yaml:"interval_seconds"`
	Interval             time.Duration `yaml:"-"`
	CheckTimeoutSeconds  int           `yaml:"check_timeout_seconds"`
	NotifyTimeoutSeconds int           `yaml:"notify_timeout_seconds"`
	GroupBySection       *bool         `yaml:"group_by_section"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" env:"SEATWATCH_DATABASE_DRIVER"`
	DSN                    string `yaml:"dsn" env:"SEATWATCH_DATABASE_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	ConnectAttempts        uint   `yaml:"connect_attempts"`
}

// LoggingConfig enables rotated file output next to stdout.
type LoggingConfig struct {
	File       string `yaml:"file" env:"SEATWATCH_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// GroupsBySection reports whether the poller shares one checker call per section.
func (p PollerConfig) GroupsBySection() bool {
	return p.GroupBySection == nil || *p.GroupBySection
}

// Load reads the configuration from the given path and applies environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}
	if cfg.Server.UserIDHeader == "" {
		cfg.Server.UserIDHeader = "X-User-ID"
	}
	if cfg.Server.UserEmailHeader == "" {
		cfg.Server.UserEmailHeader = "X-User-Email"
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15
	}

	if cfg.Checker.TimeoutSeconds <= 0 {
		cfg.Checker.TimeoutSeconds = 10
	}

	if cfg.Poller.IntervalSeconds <= 0 {
		cfg.Poller.IntervalSeconds = 300
	}
	cfg.Poller.Interval = time.Duration(cfg.Poller.IntervalSeconds) * time.Second
	if cfg.Poller.CheckTimeoutSeconds <= 0 {
		cfg.Poller.CheckTimeoutSeconds = cfg.Checker.TimeoutSeconds
	}
	if cfg.Poller.NotifyTimeoutSeconds <= 0 {
		cfg.Poller.NotifyTimeoutSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.ConnectAttempts == 0 {
		cfg.Database.ConnectAttempts = 5
	}

	if cfg.Notification.SMTP.Port <= 0 {
		cfg.Notification.SMTP.Port = 587
	}
	if cfg.Notification.Push.TTL <= 0 {
		cfg.Notification.Push.TTL = 3600
	}

	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 50
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
