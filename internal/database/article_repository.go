package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
)

// ErrArticleNotFound is returned when no article has the requested id.
var ErrArticleNotFound = errors.New("article not found")

// ArticleRepository persists articles in PostgreSQL.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

type articleRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Author      string         `db:"author"`
	PublishedAt time.Time      `db:"published_at"`
	Content     string         `db:"content"`
	URL         string         `db:"url"`
	Tags        pq.StringArray `db:"tags"`
}

func (r *articleRow) toDomain() *domain.Article {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return &domain.Article{
		ID:          r.ID,
		Title:       r.Title,
		Author:      r.Author,
		PublishedAt: r.PublishedAt.UTC(),
		Content:     r.Content,
		URL:         r.URL,
		Tags:        tags,
	}
}

// updated_at only moves when a field actually changes, so replaying an identical upsert leaves the row untouched.
const upsertArticleQuery = `
	INSERT INTO articles (id, title, author, published_at, content, url, tags, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	ON CONFLICT (id) DO UPDATE SET
		title        = EXCLUDED.title,
		author       = EXCLUDED.author,
		published_at = EXCLUDED.published_at,
		content      = EXCLUDED.content,
		url          = EXCLUDED.url,
		tags         = EXCLUDED.tags,
		updated_at   = CASE
			WHEN (articles.title, articles.author, articles.published_at, articles.content, articles.url, articles.tags)
				IS DISTINCT FROM
				(EXCLUDED.title, EXCLUDED.author, EXCLUDED.published_at, EXCLUDED.content, EXCLUDED.url, EXCLUDED.tags)
			THEN NOW()
			ELSE articles.updated_at
		END
	RETURNING (xmax = 0) AS inserted
`

// Upsert creates the article or overwrites every field of the existing row with the same id.
// created is true when the row did not exist before.
func (r *ArticleRepository) Upsert(ctx context.Context, article *domain.Article) (created bool, err error) {
	tags := article.Tags
	if tags == nil {
		tags = []string{}
	}

	err = r.db.QueryRowContext(ctx, upsertArticleQuery,
		article.ID,
		article.Title,
		article.Author,
		article.PublishedAt.UTC(),
		article.Content,
		article.URL,
		pq.StringArray(tags),
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert article %s: %w", article.ID, err)
	}

	return created, nil
}

// GetByID returns the article with the given id.
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	var row articleRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, title, author, published_at, content, url, tags
		FROM articles
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// ListOptions pages the article list. A zero Limit returns every article.
type ListOptions struct {
	Limit  int
	Offset int
}

// List returns articles newest first.
func (r *ArticleRepository) List(ctx context.Context, opts ListOptions) ([]*domain.Article, error) {
	var limit any
	if opts.Limit > 0 {
		limit = opts.Limit
	}

	var rows []articleRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, title, author, published_at, content, url, tags
		FROM articles
		ORDER BY published_at DESC, id ASC
		LIMIT $1 OFFSET $2
	`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	articles := make([]*domain.Article, 0, len(rows))
	for i := range rows {
		articles = append(articles, rows[i].toDomain())
	}
	return articles, nil
}

// Count returns the number of stored articles.
func (r *ArticleRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM articles`); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}
