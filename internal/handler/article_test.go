package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/database"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/handler"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
)

type fakeReader struct {
	articles []*domain.Article
	gotOpts  database.ListOptions
	err      error
	countErr error
}

func (f *fakeReader) Count(context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.articles), nil
}

func (f *fakeReader) List(_ context.Context, opts database.ListOptions) ([]*domain.Article, error) {
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

func (f *fakeReader) GetByID(_ context.Context, id string) (*domain.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.articles {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, database.ErrArticleNotFound
}

func setupArticleRouter(t *testing.T, reader *fakeReader) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handler.NewArticleHandler(reader, logger.NewNop())
	r.GET("/api/v1/articles", h.List)
	r.GET("/api/v1/articles/:article_id", h.Get)
	return r
}

func doRequest(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, http.NoBody)
	r.ServeHTTP(w, req)
	return w
}

func sampleArticles() []*domain.Article {
	return []*domain.Article{
		{
			ID:          "b",
			Title:       "Newer",
			PublishedAt: time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC),
			Content:     strings.Repeat("é", 200),
			URL:         "https://www.example.com/policy/b",
			Tags:        []string{"Markets"},
		},
		{
			ID:          "a",
			Title:       "Older",
			PublishedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
			Content:     "short body",
			URL:         "https://www.example.com/policy/a",
			Tags:        []string{"Bitcoin"},
		},
	}
}

func TestArticleHandler_List(t *testing.T) {
	reader := &fakeReader{articles: sampleArticles()}
	r := setupArticleRouter(t, reader)

	w := doRequest(r, http.MethodGet, "/api/v1/articles")
	require.Equal(t, http.StatusOK, w.Code)

	var got []handler.ArticleSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, 150, len([]rune(got[0].Snippet)))
	assert.Equal(t, "short body", got[1].Snippet)
	assert.Equal(t, database.ListOptions{}, reader.gotOpts)
	assert.Equal(t, "2", w.Header().Get(handler.TotalCountHeader))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.ElementsMatch(t, []string{"id", "title", "published_at", "snippet", "url"}, keys(raw[0]))
}

func TestArticleHandler_ListEmpty(t *testing.T) {
	r := setupArticleRouter(t, &fakeReader{})

	w := doRequest(r, http.MethodGet, "/api/v1/articles")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, "0", w.Header().Get(handler.TotalCountHeader))
}

func TestArticleHandler_ListCountError(t *testing.T) {
	r := setupArticleRouter(t, &fakeReader{articles: sampleArticles(), countErr: errors.New("connection refused")})

	w := doRequest(r, http.MethodGet, "/api/v1/articles")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal server error."}`, w.Body.String())
}

func TestArticleHandler_ListPaging(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
		wantOpts database.ListOptions
	}{
		{name: "limit and offset", query: "?limit=10&offset=5", wantCode: http.StatusOK, wantOpts: database.ListOptions{Limit: 10, Offset: 5}},
		{name: "zero limit", query: "?limit=0", wantCode: http.StatusBadRequest},
		{name: "limit too large", query: "?limit=5000", wantCode: http.StatusBadRequest},
		{name: "non numeric limit", query: "?limit=ten", wantCode: http.StatusBadRequest},
		{name: "negative offset", query: "?offset=-1", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{}
			r := setupArticleRouter(t, reader)

			w := doRequest(r, http.MethodGet, "/api/v1/articles"+tt.query)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantOpts, reader.gotOpts)
			}
		})
	}
}

func TestArticleHandler_Get(t *testing.T) {
	r := setupArticleRouter(t, &fakeReader{articles: sampleArticles()})

	w := doRequest(r, http.MethodGet, "/api/v1/articles/a")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id": "a",
		"title": "Older",
		"published_at": "2024-05-01T09:00:00Z",
		"snippet": "short body",
		"url": "https://www.example.com/policy/a"
	}`, w.Body.String())
}

func TestArticleHandler_GetNotFound(t *testing.T) {
	r := setupArticleRouter(t, &fakeReader{articles: sampleArticles()})

	w := doRequest(r, http.MethodGet, "/api/v1/articles/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Not found."}`, w.Body.String())
}

func TestArticleHandler_StoreError(t *testing.T) {
	r := setupArticleRouter(t, &fakeReader{err: errors.New("connection refused")})

	w := doRequest(r, http.MethodGet, "/api/v1/articles")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")

	w = doRequest(r, http.MethodGet, "/api/v1/articles/a")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
