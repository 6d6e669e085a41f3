// Package listing paginates the upstream article index and yields deduplicated article references.
package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/section"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/transport"
)

const (
	DefaultPageSize = 40
	DefaultLanguage = "en"
	DefaultFormat   = "timeline"
	// DefaultMaxPages stops a listing that keeps returning items none of which are accepted.
	DefaultMaxPages = 50

	firstPage = 1
)

// Getter performs a GET request.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
}

// Config configures a Fetcher.
type Config struct {
	// ListingURL is the index API endpoint.
	ListingURL string
	// BaseURL resolves the partial article paths returned by the index.
	BaseURL  string
	PageSize int
	Language string
	Format   string
	MaxPages int
}

// Fetcher reads the listing API page by page.
type Fetcher struct {
	client Getter
	cfg    Config
	log    logger.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client Getter, cfg Config, log logger.Logger) *Fetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Fetcher{client: client, cfg: cfg, log: log}
}

// query is serialised into the single "query" parameter; field order is the wire order.
type query struct {
	Language string `json:"language"`
	Size     int    `json:"size"`
	Page     int    `json:"page"`
	Format   string `json:"format"`
}

// page keeps items raw so one malformed entry is rejected alone.
type page struct {
	Items []json.RawMessage `json:"items"`
}

// Fetch returns up to targetCount references in discovery order, never two with the same id.
// An empty, failed or undecodable page ends pagination; whatever was accepted so far is returned.
func (f *Fetcher) Fetch(ctx context.Context, targetCount int) []domain.ArticleReference {
	if targetCount <= 0 {
		return nil
	}

	refs := make([]domain.ArticleReference, 0, targetCount)
	seen := make(map[string]struct{}, targetCount)
	var excluded, duplicates, incomplete int

	pageNum := firstPage
	for ; len(refs) < targetCount && pageNum < firstPage+f.cfg.MaxPages; pageNum++ {
		items := f.fetchPage(ctx, pageNum)
		if len(items) == 0 {
			f.log.Info("Listing exhausted",
				logger.Int("page", pageNum),
				logger.Int("accepted", len(refs)),
			)
			break
		}

		for _, raw := range items {
			var item domain.ListingItem
			if err := json.Unmarshal(raw, &item); err != nil {
				incomplete++
				continue
			}
			ref, ok := item.Reference(f.cfg.BaseURL)
			if !ok {
				incomplete++
				continue
			}
			if section.IsExcluded(item.PartialURL()) {
				excluded++
				continue
			}
			if _, dup := seen[ref.ID]; dup {
				duplicates++
				continue
			}

			seen[ref.ID] = struct{}{}
			refs = append(refs, ref)
			if len(refs) >= targetCount {
				break
			}
		}
	}

	f.log.Info("Listing complete",
		logger.Int("references", len(refs)),
		logger.Int("target", targetCount),
		logger.Int("pages", pageNum-firstPage),
		logger.Int("excluded", excluded),
		logger.Int("duplicates", duplicates),
		logger.Int("incomplete", incomplete),
	)

	return refs
}

// fetchPage returns the undecoded items of one page, or nil on any failure.
func (f *Fetcher) fetchPage(ctx context.Context, pageNum int) []json.RawMessage {
	pageURL, err := f.pageURL(pageNum)
	if err != nil {
		f.log.Error("Failed to build listing URL", logger.Int("page", pageNum), logger.Error(err))
		return nil
	}

	resp, err := f.client.Get(ctx, pageURL)
	if err != nil {
		f.log.Warn("Listing page request failed",
			logger.Int("page", pageNum),
			logger.Error(err),
		)
		return nil
	}

	var p page
	if err := json.Unmarshal(resp.Body, &p); err != nil {
		f.log.Warn("Listing page could not be decoded",
			logger.Int("page", pageNum),
			logger.Error(err),
		)
		return nil
	}

	return p.Items
}

func (f *Fetcher) pageURL(pageNum int) (string, error) {
	u, err := url.Parse(f.cfg.ListingURL)
	if err != nil {
		return "", fmt.Errorf("parse listing url: %w", err)
	}

	q, err := json.Marshal(query{
		Language: f.cfg.Language,
		Size:     f.cfg.PageSize,
		Page:     pageNum,
		Format:   f.cfg.Format,
	})
	if err != nil {
		return "", fmt.Errorf("encode listing query: %w", err)
	}

	values := u.Query()
	values.Set("query", string(q))
	u.RawQuery = values.Encode()
	return u.String(), nil
}
