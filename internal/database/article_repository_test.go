package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/database"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
)

var articleColumns = []string{"id", "title", "author", "published_at", "content", "url", "tags"}

func newArticleRepo(t *testing.T) (*database.ArticleRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db := sqlx.NewDb(mockDB, "postgres")
	return database.NewArticleRepository(db), mock, func() { mockDB.Close() }
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func sampleArticle() *domain.Article {
	return &domain.Article{
		ID:          "abc-123",
		Title:       "SEC Approves Something",
		Author:      "Jane Doe",
		PublishedAt: time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC),
		Content:     "Body text",
		URL:         "https://www.coindesk.com/policy/2024/05/01/story",
		Tags:        []string{"Policy", "Bitcoin"},
	}
}

func expectUpsert(mock sqlmock.Sqlmock, a *domain.Article, inserted bool) {
	mock.ExpectQuery(`INSERT INTO articles .+ ON CONFLICT \(id\) DO UPDATE SET .+ RETURNING \(xmax = 0\) AS inserted`).
		WithArgs(a.ID, a.Title, a.Author, a.PublishedAt, a.Content, a.URL, pq.StringArray(a.Tags)).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(inserted))
}

func TestArticleRepository_Upsert_Created(t *testing.T) {
	repo, mock, cleanup := newArticleRepo(t)
	defer cleanup()

	article := sampleArticle()
	expectUpsert(mock, article, true)

	created, err := repo.Upsert(context.Background(), article)

	require.NoError(t, err)
	assert.True(t, created)
	expectationsMet(t, mock)
}

func TestArticleRepository_Upsert_UpdatedInPlace(t *testing.T) {
	repo, mock, cleanup := newArticleRepo(t)
	defer cleanup()

	article := sampleArticle()
	expectUpsert(mock, article, true)

	changed := sampleArticle()
	changed.Title = "SEC Approves Something (Updated)"
	changed.Tags = []string{"Policy"}
	expectUpsert(mock, changed, false)

	created, err := repo.Upsert(context.Background(), article)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Upsert(context.Background(), changed)
	require.NoError(t, err)
	assert.False(t, created)

	expectationsMet(t, mock)
}

func TestArticleRepository_Upsert_NilTagsStoredEmpty(t *testing.T) {
	repo, mock, cleanup := newArticleRepo(t)
	defer cleanup()

	article := sampleArticle()
	article.Tags = nil
	mock.ExpectQuery(`INSERT INTO articles`).
		WithArgs(article.ID, article.Title, article.Author, article.PublishedAt, article.Content, article.URL,
			pq.StringArray{}).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))

	_, err := repo.Upsert(context.Background(), article)

	require.NoError(t, err)
	expectationsMet(t, mock)
}

func TestArticleRepository_Upsert_Error(t *testing.T) {
	repo, mock, cleanup := newArticleRepo(t)
	defer cleanup()

	article := sampleArticle()
	uniqueViolation := &pq.Error{Code: "23505", Constraint: "articles_url_key"}
	mock.ExpectQuery(`INSERT INTO articles`).WillReturnError(uniqueViolation)

	created, err := repo.Upsert(context.Background(), article)

	require.Error(t, err)
	assert.False(t, created)
	var pqErr *pq.Error
	require.ErrorAs(t, err, &pqErr)
	assert.Equal(t, "articles_url_key", pqErr.Constraint)
	expectationsMet(t, mock)
}

func TestArticleRepository_GetByID(t *testing.T) {
	repo, mock, cleanup := newArticleRepo(t)
	defer cleanup()

	a := sampleArticle()
	mock.ExpectQuery(`SELECT .+ FROM articles\s+WHERE id = \$1`).
		WithArgs(a.ID).
		WillReturnRows(sqlmock.NewRows(articleColumns).
			AddRow(a.ID, a.Title, a.Author, a.PublishedAt, a.Content, a.URL, `{Policy,Bitcoin}`))

	got, err := repo.GetByID(context.Background(), a.ID)

	require.NoError(t, err)
	assert.Equal(t, a, got)
	expectationsMet(t, mock)
}

func TestArticleRepository_GetByID_NotFound(t *testing.T) {
	repo, mock, cleanup := newArticleRepo(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM articles`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing")

	assert.Nil(t, got)
	assert.True(t, errors.Is(err, database.ErrArticleNotFound))
	expectationsMet(t, mock)
}

func TestArticleRepository_List_NewestFirst(t *testing.T) {
	repo, mock, cleanup := newArticleRepo(t)
	defer cleanup()

	newer := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	older := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM articles\s+ORDER BY published_at DESC, id ASC\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(nil, 0).
		WillReturnRows(sqlmock.NewRows(articleColumns).
			AddRow("b", "B", "Author", newer, "content b", "https://x/b", `{}`).
			AddRow("a", "A", "Author", older, "content a", "https://x/a", `{ETH}`))

	articles, err := repo.List(context.Background(), database.ListOptions{})

	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "b", articles[0].ID)
	assert.Equal(t, []string{}, articles[0].Tags)
	assert.Equal(t, []string{"ETH"}, articles[1].Tags)
	expectationsMet(t, mock)
}

func TestArticleRepository_List_Paged(t *testing.T) {
	repo, mock, cleanup := newArticleRepo(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM articles`).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows(articleColumns))

	articles, err := repo.List(context.Background(), database.ListOptions{Limit: 10, Offset: 20})

	require.NoError(t, err)
	assert.Empty(t, articles)
	expectationsMet(t, mock)
}

func TestArticleRepository_Count(t *testing.T) {
	repo, mock, cleanup := newArticleRepo(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(16))

	n, err := repo.Count(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 16, n)
	expectationsMet(t, mock)
}
