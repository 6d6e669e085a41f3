// Package common builds the dependencies shared by the CLI commands.
package common

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/config"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/coordination"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/database"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/extractor"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/ingest"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/listing"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/metrics"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/transport"
)

// Options are the global CLI settings resolved by the root command.
type Options struct {
	ConfigPath string
	Debug      bool
}

// OptionsFunc returns the resolved Options once flags are parsed.
type OptionsFunc func() Options

// LoadConfig loads and validates configuration, applying the debug flag.
func LoadConfig(opts Options) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.GetConfigPath(config.DefaultPath)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// NewLogger creates the service logger from configuration.
func NewLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}

// Deps holds everything a command needs to ingest or serve.
type Deps struct {
	Config   *config.Config
	Logger   logger.Logger
	DB       *sqlx.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Articles     *database.ArticleRepository
	Runs         *database.RunRepository
	Orchestrator *ingest.Orchestrator
}

// Build loads configuration and connects every dependency.
func Build(ctx context.Context, opts Options) (*Deps, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}

	log, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgresConnection(ctx, cfg.Database.DSN(), database.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("database", cfg.Database.Database),
	)

	deps := &Deps{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Registry: prometheus.NewRegistry(),
		Articles: database.NewArticleRepository(db),
		Runs:     database.NewRunRepository(db),
	}
	deps.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Metrics = metrics.New(deps.Registry)

	locker, err := deps.newLocker(ctx)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Orchestrator = deps.newOrchestrator(locker)
	return deps, nil
}

func (d *Deps) newLocker(ctx context.Context) (ingest.RunLocker, error) {
	if !d.Config.Redis.Enabled {
		d.Logger.Info("Redis disabled, using in-process ingestion lock")
		return &coordination.LocalLock{}, nil
	}

	client, err := coordination.NewRedisClient(ctx, coordination.RedisConfig{
		Address:  d.Config.Redis.Address,
		Password: d.Config.Redis.Password,
		DB:       d.Config.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	d.Redis = client
	d.Logger.Info("Redis connected", logger.String("address", d.Config.Redis.Address))

	return coordination.NewDistributedLock(client, d.Config.Redis.LockKey, d.Config.Redis.LockTTL), nil
}

func (d *Deps) newOrchestrator(locker ingest.RunLocker) *ingest.Orchestrator {
	cfg := d.Config

	client := transport.NewClient(transport.Config{
		Timeout:           cfg.Transport.Timeout,
		MaxAttempts:       cfg.Transport.MaxAttempts,
		InitialBackoff:    cfg.Transport.InitialBackoff,
		MaxBackoff:        cfg.Transport.MaxBackoff,
		RequestsPerSecond: cfg.Transport.RequestsPerSecond,
		Burst:             cfg.Transport.Burst,
		MaxBodyBytes:      cfg.Transport.MaxBodyBytes,
	}, d.Logger,
		transport.WithObserver(d.Metrics),
		transport.WithUserAgent(cfg.Transport.UserAgent),
	)

	fetcher := listing.NewFetcher(client.WithMaxAttempts(cfg.Source.ListingMaxAttempts), listing.Config{
		ListingURL: cfg.Source.ListingURL,
		BaseURL:    cfg.Source.BaseURL,
		PageSize:   cfg.Source.PageSize,
		Language:   cfg.Source.Language,
		Format:     cfg.Source.Format,
	}, d.Logger)

	ext := extractor.New(client, extractor.Selectors{
		Author:      cfg.Selectors.Author,
		Title:       cfg.Selectors.Title,
		PublishedAt: cfg.Selectors.PublishedAt,
		Content:     cfg.Selectors.Content,
		Tags:        cfg.Selectors.Tags,
	}, d.Logger)

	return ingest.New(fetcher, ext, d.Articles, ingest.Config{
		TargetCount:   cfg.Source.TargetCount,
		DetailWorkers: cfg.Ingest.DetailWorkers,
	}, d.Logger,
		ingest.WithLocker(locker),
		ingest.WithRecorder(d.Runs),
		ingest.WithObserver(d.Metrics),
	)
}

// Close releases connections and flushes the logger.
func (d *Deps) Close() {
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}
}
