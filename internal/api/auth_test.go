package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/api"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/handler"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
)

const testSecret = "operator-secret-for-tests"

type stubRunner struct{}

func (stubRunner) Run(context.Context) (*domain.RunReport, error) {
	return &domain.RunReport{ID: "run-1", TerminalState: domain.StateDone}, nil
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func ingestionRouter(t *testing.T, secret string) *gin.Engine {
	t.Helper()
	return newRouter(t, func(e *gin.Engine) {
		api.SetupRoutes(e, api.Routes{
			Ingestions: handler.NewIngestionHandler(stubRunner{}, nil, logger.NewNop()),
			JWTSecret:  secret,
		})
	})
}

func TestJWT_IngestionRoutes(t *testing.T) {
	valid := signToken(t, testSecret, jwt.SigningMethodHS256, time.Now().Add(time.Hour))

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{name: "missing header", wantCode: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)), wantCode: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, time.Now().Add(-time.Hour)), wantCode: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + valid, wantCode: http.StatusOK},
	}

	r := ingestionRouter(t, testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header http.Header
			if tt.header != "" {
				header = http.Header{"Authorization": {tt.header}}
			}
			w := serve(r, http.MethodPost, "/api/v1/ingestions", header)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestJWT_DisabledWithoutSecret(t *testing.T) {
	r := ingestionRouter(t, "")

	w := serve(r, http.MethodPost, "/api/v1/ingestions", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWT_TagsRequestLoggerWithSubject(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := api.NewServer(api.Config{}, logger.NewFromZap(zap.New(core)), func(e *gin.Engine) {
		api.SetupRoutes(e, api.Routes{
			Ingestions: handler.NewIngestionHandler(stubRunner{}, nil, logger.NewNop()),
			JWTSecret:  testSecret,
		})
	})

	token := signToken(t, testSecret, jwt.SigningMethodHS256, time.Now().Add(time.Hour))
	w := serve(srv.Router(), http.MethodPost, "/api/v1/ingestions", http.Header{"Authorization": {"Bearer " + token}})
	require.Equal(t, http.StatusOK, w.Code)

	requested := logs.FilterMessage("Ingestion run requested").All()
	require.Len(t, requested, 1)
	assert.Equal(t, "operator", requested[0].ContextMap()["operator"])
	assert.NotEmpty(t, requested[0].ContextMap()["request_id"])
}
