package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/transport"
)

func newClient(attempts int, opts ...transport.Option) *transport.Client {
	return transport.NewClient(transport.Config{
		Timeout:        2 * time.Second,
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}, logger.NewNop(), opts...)
}

func TestGet_SendsDistinctRandomUserAgents(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.UserAgent())
		mu.Unlock()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := newClient(1)
	for range 3 {
		resp, err := client.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(resp.Body))
	}

	require.Len(t, agents, 3)
	seen := map[string]bool{}
	for _, ua := range agents {
		_, err := uuid.Parse(ua)
		require.NoError(t, err, "user-agent %q is not a uuid", ua)
		seen[ua] = true
	}
	assert.Len(t, seen, 3)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	resp, err := newClient(3).Get(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "recovered", string(resp.Body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_DoesNotRetryBadRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newClient(3).Get(context.Background(), srv.URL)

	var statusErr *transport.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.False(t, statusErr.Retryable())
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_BodyLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	client := transport.NewClient(transport.Config{MaxBodyBytes: 16}, logger.NewNop())
	_, err := client.Get(context.Background(), srv.URL)

	require.ErrorIs(t, err, transport.ErrBodyTooLarge)
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (o *recordingObserver) ObserveRequest(status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func TestGet_ObservesEveryAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	_, err := newClient(2, transport.WithObserver(obs)).Get(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, []string{"429", "200"}, obs.statuses)
}

func TestGet_TransportErrorIsReturned(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newClient(2).Get(context.Background(), url)

	require.Error(t, err)
}

func TestGet_FixedUserAgent(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
	}))
	defer srv.Close()

	client := newClient(1, transport.WithUserAgent("article-ingestor/1.0"))
	for range 2 {
		_, err := client.Get(context.Background(), srv.URL)
		require.NoError(t, err)
	}

	assert.Equal(t, "article-ingestor/1.0", <-agents)
	assert.Equal(t, "article-ingestor/1.0", <-agents)
}

func TestWithMaxAttempts_LimitsOnlyTheDerivedClient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newClient(3)
	single := client.WithMaxAttempts(1)

	_, err := single.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
}
