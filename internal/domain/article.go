// Package domain holds the types shared by the ingestion pipeline and the read API.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// SnippetLength is the number of characters of content exposed as a snippet.
const SnippetLength = 150

// Article is the persisted article record.
type Article struct {
	ID          string    `db:"id"           json:"id"`
	Title       string    `db:"title"        json:"title"`
	Author      string    `db:"author"       json:"author"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	Content     string    `db:"content"      json:"content"`
	URL         string    `db:"url"          json:"url"`
	Tags        []string  `db:"-"            json:"tags"`
}

// Snippet returns the first SnippetLength characters of the content.
func (a *Article) Snippet() string {
	if utf8.RuneCountInString(a.Content) <= SnippetLength {
		return a.Content
	}
	runes := []rune(a.Content)
	return string(runes[:SnippetLength])
}

// ArticleReference identifies a candidate article before its page is fetched.
type ArticleReference struct {
	ID  string
	URL string
}

// ListingItem is one raw entry of a listing page. Either field may be absent.
type ListingItem struct {
	ID  *string `json:"_id"`
	URL *string `json:"url"`
}

// PartialURL returns the site-relative path, or "" when absent.
func (i ListingItem) PartialURL() string {
	if i.URL == nil {
		return ""
	}
	return strings.TrimSpace(*i.URL)
}

// Reference resolves the item against baseURL. ok is false when the id or path is missing.
func (i ListingItem) Reference(baseURL string) (ArticleReference, bool) {
	if i.ID == nil || i.URL == nil {
		return ArticleReference{}, false
	}
	id := strings.TrimSpace(*i.ID)
	path := i.PartialURL()
	if id == "" || path == "" {
		return ArticleReference{}, false
	}
	return ArticleReference{ID: id, URL: resolve(baseURL, path)}, true
}

func resolve(baseURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(baseURL, "/") + path
}
