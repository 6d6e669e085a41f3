// Package extractor fetches an article page and pulls the article fields out of its markup.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/timeparse"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/transport"
)

var (
	// ErrFetch means the page could not be retrieved.
	ErrFetch = errors.New("fetch article page")
	// ErrMissingElement means a required block was absent, empty or unparsable.
	ErrMissingElement = errors.New("required element missing")
)

const authorPrefix = "By "

// MissingFieldsError names the required fields that could not be extracted.
type MissingFieldsError struct {
	URL    string
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMissingElement, e.URL, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Unwrap() error {
	return ErrMissingElement
}

// Getter performs a GET request.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
}

// Selectors holds the CSS selectors of the article page blocks.
type Selectors struct {
	Author      string
	Title       string
	PublishedAt string
	Content     string
	Tags        string
}

// DefaultSelectors returns the selectors for the article page layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Author:      "div.at-authors",
		Title:       "h1",
		PublishedAt: "div.at-created",
		Content:     "div.at-content-wrapper",
		Tags:        "a.eJTFpe",
	}
}

// Extractor turns article references into RawArticleDetails.
type Extractor struct {
	client    Getter
	selectors Selectors
	log       logger.Logger
}

// New creates an Extractor. Empty selectors fall back to DefaultSelectors.
func New(client Getter, selectors Selectors, log logger.Logger) *Extractor {
	def := DefaultSelectors()
	if selectors.Author == "" {
		selectors.Author = def.Author
	}
	if selectors.Title == "" {
		selectors.Title = def.Title
	}
	if selectors.PublishedAt == "" {
		selectors.PublishedAt = def.PublishedAt
	}
	if selectors.Content == "" {
		selectors.Content = def.Content
	}
	if selectors.Tags == "" {
		selectors.Tags = def.Tags
	}
	return &Extractor{client: client, selectors: selectors, log: log}
}

// Extract fetches ref.URL and returns complete details, or an error wrapping ErrFetch or ErrMissingElement.
// It never returns partially populated details.
func (e *Extractor) Extract(ctx context.Context, ref domain.ArticleReference) (*domain.RawArticleDetails, error) {
	resp, err := e.client.Get(ctx, ref.URL)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrFetch, ref.URL, err)
	}

	details, err := e.Parse(ref, resp.Body)
	if err != nil {
		return nil, err
	}
	return details, nil
}

// Parse extracts the article fields from an HTML document.
func (e *Extractor) Parse(ref domain.ArticleReference, html []byte) (*domain.RawArticleDetails, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html %s: %w", ErrMissingElement, ref.URL, err)
	}

	details := &domain.RawArticleDetails{
		ID:      ref.ID,
		URL:     ref.URL,
		Title:   firstText(doc, e.selectors.Title),
		Author:  authorText(firstText(doc, e.selectors.Author)),
		Content: firstText(doc, e.selectors.Content),
		Tags:    allTexts(doc, e.selectors.Tags),
	}

	rawDate := firstText(doc, e.selectors.PublishedAt)
	if published, ok := timeparse.Normalize(rawDate); ok {
		details.PublishedAt = &published
	} else if rawDate != "" {
		e.log.Debug("Unparsable publish date",
			logger.String("url", ref.URL),
			logger.String("raw", rawDate),
		)
	}

	if missing := details.Missing(); len(missing) > 0 {
		return nil, &MissingFieldsError{URL: ref.URL, Fields: missing}
	}
	return details, nil
}

// clean trims s and puts it in NFC so the same text always stores as the same bytes.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func firstText(doc *goquery.Document, selector string) string {
	return clean(doc.Find(selector).First().Text())
}

func allTexts(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := clean(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

func authorText(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(raw, authorPrefix))
}
