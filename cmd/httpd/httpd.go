// Package httpd implements the httpd command, which serves the read API and the ingestion trigger.
package httpd

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/article-ingestor/cmd/common"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/api"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/handler"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
)

// Command returns the httpd command.
func Command(options common.OptionsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Serve the article API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build(cmd.Context(), options())
			if err != nil {
				return err
			}
			defer deps.Close()

			return NewServer(deps).RunWithGracefulShutdown(cmd.Context())
		},
	}
}

// NewServer assembles the HTTP server from deps.
func NewServer(deps *common.Deps) *api.Server {
	cfg := deps.Config

	checks := map[string]api.HealthChecker{
		"database": api.DatabaseHealthChecker(deps.DB.PingContext),
	}
	if deps.Redis != nil {
		checks["redis"] = api.RedisHealthChecker(func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		})
	}

	routes := api.Routes{
		Articles:   handler.NewArticleHandler(deps.Articles, deps.Logger),
		Ingestions: handler.NewIngestionHandler(deps.Orchestrator, deps.Runs, deps.Logger),
		Metrics:    promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}),
		JWTSecret:  cfg.Auth.JWTSecret,
		Health: api.HealthOptions{
			ServiceName:    cfg.Service.Name,
			ServiceVersion: cfg.Service.Version,
			Checks:         checks,
		},
	}

	deps.Logger.Info("Article API configured", logger.Int("port", cfg.Server.Port))

	return api.NewServer(api.Config{
		Port:            cfg.Server.Port,
		Debug:           cfg.Service.Debug,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		ServiceName:     cfg.Service.Name,
		ServiceVersion:  cfg.Service.Version,
	}, deps.Logger, func(router *gin.Engine) {
		api.SetupRoutes(router, routes)
	})
}
