package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
)

const maxRunsLimit = 100

// IngestionRunner performs one ingestion run.
type IngestionRunner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

// RunHistory lists recorded runs.
type RunHistory interface {
	ListRecent(ctx context.Context, limit int) ([]domain.RunReport, error)
}

// IngestionHandler triggers ingestion runs and lists past ones.
type IngestionHandler struct {
	runner  IngestionRunner
	history RunHistory
	log     logger.Logger
}

// NewIngestionHandler creates an IngestionHandler. history may be nil.
func NewIngestionHandler(runner IngestionRunner, history RunHistory, log logger.Logger) *IngestionHandler {
	return &IngestionHandler{runner: runner, history: history, log: log}
}

// Trigger handles POST /api/v1/ingestions. The run completes even if the client goes away.
func (h *IngestionHandler) Trigger(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.log)
	ctx := logger.WithContext(context.WithoutCancel(c.Request.Context()), log)
	log.Info("Ingestion run requested")

	report, err := h.runner.Run(ctx)
	if err != nil {
		log.Error("Ingestion run failed", logger.Error(err))
		internalError(c)
		return
	}
	if report.Skipped {
		c.JSON(http.StatusConflict, gin.H{
			"detail": "An ingestion run is already in progress.",
			"run":    report,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// List handles GET /api/v1/ingestions.
func (h *IngestionHandler) List(c *gin.Context) {
	if h.history == nil {
		notFound(c)
		return
	}

	limit := 0
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be an integer between 1 and 100"})
			return
		}
		limit = n
	}

	runs, err := h.history.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logger.FromContext(c.Request.Context(), h.log).Error("Failed to list ingestion runs", logger.Error(err))
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, runs)
}
