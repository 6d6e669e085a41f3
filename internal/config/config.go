// Package config loads and validates the article-ingestor configuration.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Default configuration values.
const (
	defaultServiceName  = "article-ingestor"
	defaultVersion      = "0.1.0"
	defaultLoggingLevel = "info"
	defaultLoggingFmt   = "json"

	defaultDBHost            = "localhost"
	defaultDBPort            = 5432
	defaultDBName            = "articles"
	defaultDBUser            = "postgres"
	defaultDBSSLMode         = "disable"
	defaultDBMaxOpenConns    = 10
	defaultDBMaxIdleConns    = 5
	defaultDBConnMaxLifetime = 5 * time.Minute

	defaultRedisAddress = "localhost:6379"
	defaultLockKey      = "article-ingestor:ingestion-lock"
	defaultLockTTL      = 15 * time.Minute

	defaultBaseURL     = "https://www.coindesk.com"
	defaultPageSize    = 40
	defaultTargetCount = 20
	defaultLanguage    = "en"
	defaultFormat      = "timeline"

	defaultListingMaxAttempts = 1

	defaultAuthorSelector    = "div.at-authors"
	defaultTitleSelector     = "h1"
	defaultPublishedSelector = "div.at-created"
	defaultContentSelector   = "div.at-content-wrapper"
	defaultTagsSelector      = "a.eJTFpe"

	defaultTransportTimeout = 30 * time.Second
	defaultMaxAttempts      = 3
	defaultInitialBackoff   = 500 * time.Millisecond
	defaultMaxBackoff       = 10 * time.Second
	defaultRequestsPerSec   = 2.0
	defaultBurst            = 1
	defaultMaxBodyBytes     = 10 << 20

	defaultDetailWorkers = 1

	defaultServerPort      = 8095
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 5 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second

	maxDetailWorkers = 32
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Source    SourceConfig    `yaml:"source"`
	Selectors SelectorConfig  `yaml:"selectors"`
	Transport TransportConfig `yaml:"transport"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Debug   bool   `env:"APP_DEBUG" yaml:"debug"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host            string        `env:"POSTGRES_ARTICLES_HOST"     yaml:"host"`
	Port            int           `env:"POSTGRES_ARTICLES_PORT"     yaml:"port"`
	User            string        `env:"POSTGRES_ARTICLES_USER"     yaml:"user"`
	Password        string        `env:"POSTGRES_ARTICLES_PASSWORD" yaml:"password"`
	Database        string        `env:"POSTGRES_ARTICLES_DB"       yaml:"database"`
	SSLMode         string        `env:"POSTGRES_ARTICLES_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// MigrateURL returns the postgres:// URL form used by golang-migrate.
func (d *DatabaseConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Database,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// RedisConfig holds the Redis connection used for the ingestion run lock.
type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED"  yaml:"enabled"`
	Address  string        `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string        `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int           `env:"REDIS_DB"       yaml:"db"`
	LockKey  string        `yaml:"lock_key"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// SourceConfig describes the upstream listing API and the site articles live on.
type SourceConfig struct {
	ListingURL  string `env:"SOURCE_LISTING_URL" yaml:"listing_url"`
	BaseURL     string `env:"SOURCE_BASE_URL"    yaml:"base_url"`
	PageSize    int    `yaml:"page_size"`
	TargetCount int    `env:"SOURCE_TARGET_COUNT" yaml:"target_count"`
	Language    string `yaml:"language"`
	Format      string `yaml:"format"`

	// ListingMaxAttempts bounds attempts per listing page; 1 means a failed page ends pagination.
	ListingMaxAttempts int `yaml:"listing_max_attempts"`
}

// SelectorConfig holds the CSS selectors for the article page blocks.
type SelectorConfig struct {
	Author      string `yaml:"author"`
	Title       string `yaml:"title"`
	PublishedAt string `yaml:"published_at"`
	Content     string `yaml:"content"`
	Tags        string `yaml:"tags"`
}

// TransportConfig configures outbound HTTP behaviour.
type TransportConfig struct {
	Timeout           time.Duration `env:"TRANSPORT_TIMEOUT"      yaml:"timeout"`
	MaxAttempts       int           `env:"TRANSPORT_MAX_ATTEMPTS" yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	RequestsPerSecond float64       `env:"TRANSPORT_RPS" yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`

	// UserAgent replaces the random per-request user-agent when set.
	UserAgent string `env:"TRANSPORT_USER_AGENT" yaml:"user_agent"`
}

// IngestConfig configures the ingestion run.
type IngestConfig struct {
	DetailWorkers int `env:"INGEST_DETAIL_WORKERS" yaml:"detail_workers"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `env:"ARTICLE_INGESTOR_PORT" yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig protects the operator endpoints. An empty secret leaves them open.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setRedisDefaults(&cfg.Redis)
	setSourceDefaults(&cfg.Source)
	setSelectorDefaults(&cfg.Selectors)
	setTransportDefaults(&cfg.Transport)
	setServerDefaults(&cfg.Server)

	if cfg.Ingest.DetailWorkers == 0 {
		cfg.Ingest.DetailWorkers = defaultDetailWorkers
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaultLoggingFmt
	}
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = defaultDBMaxOpenConns
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = defaultDBMaxIdleConns
	}
	if db.ConnMaxLifetime == 0 {
		db.ConnMaxLifetime = defaultDBConnMaxLifetime
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
	if r.LockKey == "" {
		r.LockKey = defaultLockKey
	}
	if r.LockTTL == 0 {
		r.LockTTL = defaultLockTTL
	}
}

func setSourceDefaults(src *SourceConfig) {
	if src.BaseURL == "" {
		src.BaseURL = defaultBaseURL
	}
	if src.PageSize == 0 {
		src.PageSize = defaultPageSize
	}
	if src.TargetCount == 0 {
		src.TargetCount = defaultTargetCount
	}
	if src.Language == "" {
		src.Language = defaultLanguage
	}
	if src.Format == "" {
		src.Format = defaultFormat
	}
	if src.ListingMaxAttempts == 0 {
		src.ListingMaxAttempts = defaultListingMaxAttempts
	}
}

func setSelectorDefaults(sel *SelectorConfig) {
	if sel.Author == "" {
		sel.Author = defaultAuthorSelector
	}
	if sel.Title == "" {
		sel.Title = defaultTitleSelector
	}
	if sel.PublishedAt == "" {
		sel.PublishedAt = defaultPublishedSelector
	}
	if sel.Content == "" {
		sel.Content = defaultContentSelector
	}
	if sel.Tags == "" {
		sel.Tags = defaultTagsSelector
	}
}

func setTransportDefaults(tr *TransportConfig) {
	if tr.Timeout == 0 {
		tr.Timeout = defaultTransportTimeout
	}
	if tr.MaxAttempts == 0 {
		tr.MaxAttempts = defaultMaxAttempts
	}
	if tr.InitialBackoff == 0 {
		tr.InitialBackoff = defaultInitialBackoff
	}
	if tr.MaxBackoff == 0 {
		tr.MaxBackoff = defaultMaxBackoff
	}
	if tr.RequestsPerSecond == 0 {
		tr.RequestsPerSecond = defaultRequestsPerSec
	}
	if tr.Burst == 0 {
		tr.Burst = defaultBurst
	}
	if tr.MaxBodyBytes == 0 {
		tr.MaxBodyBytes = defaultMaxBodyBytes
	}
}

func setServerDefaults(srv *ServerConfig) {
	if srv.Port == 0 {
		srv.Port = defaultServerPort
	}
	if srv.ReadTimeout == 0 {
		srv.ReadTimeout = defaultReadTimeout
	}
	if srv.WriteTimeout == 0 {
		srv.WriteTimeout = defaultWriteTimeout
	}
	if srv.IdleTimeout == 0 {
		srv.IdleTimeout = defaultIdleTimeout
	}
	if srv.ShutdownTimeout == 0 {
		srv.ShutdownTimeout = defaultShutdownTimeout
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := ValidatePort("server.port", c.Server.Port); err != nil {
		return err
	}
	if err := validateURL("source.listing_url", c.Source.ListingURL); err != nil {
		return err
	}
	if err := validateURL("source.base_url", c.Source.BaseURL); err != nil {
		return err
	}
	if c.Source.PageSize < 1 {
		return &ValidationError{Field: "source.page_size", Message: "must be positive"}
	}
	if c.Source.TargetCount < 1 {
		return &ValidationError{Field: "source.target_count", Message: "must be positive"}
	}
	if c.Transport.MaxAttempts < 1 {
		return &ValidationError{Field: "transport.max_attempts", Message: "must be at least 1"}
	}
	if c.Transport.RequestsPerSecond < 0 {
		return &ValidationError{Field: "transport.requests_per_second", Message: "must not be negative"}
	}
	if c.Ingest.DetailWorkers < 1 || c.Ingest.DetailWorkers > maxDetailWorkers {
		return &ValidationError{
			Field:   "ingest.detail_workers",
			Message: fmt.Sprintf("must be between 1 and %d", maxDetailWorkers),
		}
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return &ValidationError{Field: "redis.address", Message: "is required when redis is enabled"}
	}
	return nil
}
