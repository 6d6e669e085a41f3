package domain

import (
	"time"
)

// Required field names reported by RawArticleDetails.Missing.
const (
	FieldTitle       = "title"
	FieldAuthor      = "author"
	FieldPublishedAt = "published_at"
	FieldContent     = "content"
	FieldTags        = "tags"
)

// RawArticleDetails is what the extractor pulled off an article page.
// PublishedAt is nil when the date block was absent or unparsable.
type RawArticleDetails struct {
	ID          string
	URL         string
	Title       string
	Author      string
	PublishedAt *time.Time
	Content     string
	Tags        []string
}

// Missing lists the required fields that are absent.
func (d *RawArticleDetails) Missing() []string {
	var missing []string
	if d.Title == "" {
		missing = append(missing, FieldTitle)
	}
	if d.Author == "" {
		missing = append(missing, FieldAuthor)
	}
	if d.PublishedAt == nil || d.PublishedAt.IsZero() {
		missing = append(missing, FieldPublishedAt)
	}
	if d.Content == "" {
		missing = append(missing, FieldContent)
	}
	if len(d.Tags) == 0 {
		missing = append(missing, FieldTags)
	}
	return missing
}

// Complete reports whether every required field is present.
func (d *RawArticleDetails) Complete() bool {
	return len(d.Missing()) == 0
}

// Article converts complete details into an Article. ok is false when a field is missing.
func (d *RawArticleDetails) Article() (*Article, bool) {
	if !d.Complete() {
		return nil, false
	}
	tags := make([]string, len(d.Tags))
	copy(tags, d.Tags)
	return &Article{
		ID:          d.ID,
		Title:       d.Title,
		Author:      d.Author,
		PublishedAt: d.PublishedAt.UTC(),
		Content:     d.Content,
		URL:         d.URL,
		Tags:        tags,
	}, true
}
