// Package handler implements the HTTP handlers of the read API and the ingestion trigger.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/database"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
)

const (
	maxListLimit = 1000

	// TotalCountHeader carries the number of stored articles on list responses.
	TotalCountHeader = "X-Total-Count"
)

var (
	errInvalidLimit  = errors.New("limit must be an integer between 1 and 1000")
	errInvalidOffset = errors.New("offset must be a non-negative integer")
)

// ArticleReader reads stored articles.
type ArticleReader interface {
	List(ctx context.Context, opts database.ListOptions) ([]*domain.Article, error)
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	Count(ctx context.Context) (int, error)
}

// ArticleSummary is the API projection of an article.
type ArticleSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Snippet     string    `json:"snippet"`
	URL         string    `json:"url"`
}

// NewArticleSummary projects a to its API form.
func NewArticleSummary(a *domain.Article) ArticleSummary {
	return ArticleSummary{
		ID:          a.ID,
		Title:       a.Title,
		PublishedAt: a.PublishedAt.UTC(),
		Snippet:     a.Snippet(),
		URL:         a.URL,
	}
}

// ArticleHandler serves stored articles.
type ArticleHandler struct {
	articles ArticleReader
	log      logger.Logger
}

// NewArticleHandler creates an ArticleHandler.
func NewArticleHandler(articles ArticleReader, log logger.Logger) *ArticleHandler {
	return &ArticleHandler{articles: articles, log: log}
}

// List handles GET /api/v1/articles.
func (h *ArticleHandler) List(c *gin.Context) {
	opts, err := parseListOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	articles, err := h.articles.List(c.Request.Context(), opts)
	if err != nil {
		logger.FromContext(c.Request.Context(), h.log).Error("Failed to list articles", logger.Error(err))
		internalError(c)
		return
	}

	total, err := h.articles.Count(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context(), h.log).Error("Failed to count articles", logger.Error(err))
		internalError(c)
		return
	}

	out := make([]ArticleSummary, 0, len(articles))
	for _, a := range articles {
		out = append(out, NewArticleSummary(a))
	}
	c.Header(TotalCountHeader, strconv.Itoa(total))
	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/v1/articles/:article_id.
func (h *ArticleHandler) Get(c *gin.Context) {
	id := c.Param("article_id")

	article, err := h.articles.GetByID(c.Request.Context(), id)
	if errors.Is(err, database.ErrArticleNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		logger.FromContext(c.Request.Context(), h.log).Error("Failed to get article",
			logger.String("article_id", id),
			logger.Error(err),
		)
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, NewArticleSummary(article))
}

func parseListOptions(c *gin.Context) (database.ListOptions, error) {
	var opts database.ListOptions

	if raw, ok := c.GetQuery("limit"); ok {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			return opts, errInvalidLimit
		}
		opts.Limit = limit
	}
	if raw, ok := c.GetQuery("offset"); ok {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return opts, errInvalidOffset
		}
		opts.Offset = offset
	}
	return opts, nil
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
}
