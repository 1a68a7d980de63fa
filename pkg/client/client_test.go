package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, "test-api-key", opts...)
	require.NoError(t, err)
	return c
}

type testLogger struct {
	count int32
}

func (l *testLogger) Debugf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) Infof(format string, args ...interface{})  { l.log(format, args...) }
func (l *testLogger) Errorf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) log(format string, args ...interface{}) {
	atomic.AddInt32(&l.count, 1)
	_ = fmt.Sprintf(format, args...)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://api.example.com/", "key")
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com", c.baseURL, "trailing slash trimmed")
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "claimscope-go-sdk/")
}

func TestNewClient_EmptyBaseURL(t *testing.T) {
	_, err := NewClient("", "key")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewClient_BadScheme(t *testing.T) {
	_, err := NewClient("ftp://api.example.com", "key")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewClient_EmptyAPIKeyAllowed(t *testing.T) {
	c, err := NewClient("http://api.example.com", "")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestClient_SendsHeaders(t *testing.T) {
	var gotAuth, gotAgent, gotAccept string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.get(context.Background(), "/ping", nil))
	assert.Equal(t, "Bearer test-api-key", gotAuth)
	assert.Contains(t, gotAgent, "claimscope-go-sdk/")
	assert.Equal(t, "application/json", gotAccept)
}

func TestClient_NoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, "")
	require.NoError(t, err)
	require.NoError(t, c.get(context.Background(), "/ping", nil))
	assert.Empty(t, gotAuth)
}

func TestClient_DecodesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "req-7")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "PAT_001",
			"message": "patent not found",
		})
	})

	err := c.get(context.Background(), "/api/v1/patents/missing", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "PAT_001", apiErr.Code)
	assert.Equal(t, "patent not found", apiErr.Message)
	assert.Equal(t, "req-7", apiErr.RequestID)
	assert.Contains(t, apiErr.Error(), "PAT_001")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	lg := &testLogger{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, WithRetryWait(time.Millisecond, 5*time.Millisecond), WithLogger(lg))

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.get(context.Background(), "/flaky", &out))
	assert.True(t, out.OK)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Positive(t, atomic.LoadInt32(&lg.count), "retries should be logged")
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}, WithRetryWait(time.Millisecond, 5*time.Millisecond))

	err := c.get(context.Background(), "/bad", nil)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_RetryBudgetExhausted(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryMax(2), WithRetryWait(time.Millisecond, 5*time.Millisecond))

	err := c.get(context.Background(), "/down", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "initial attempt plus two retries")
}

func TestClient_RetryAfterHonored(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, WithRetryWait(time.Millisecond, 5*time.Millisecond))

	start := time.Now()
	require.NoError(t, c.get(context.Background(), "/limited", nil))
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_UnusableRetryAfter(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, WithRetryWait(time.Millisecond, 5*time.Millisecond))

	err := c.get(context.Background(), "/limited", nil)
	// A zero Retry-After is unusable, so the 429 surfaces to the caller
	// without burning the retry budget.
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimited())
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_ContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, WithRetryWait(time.Hour, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.get(ctx, "/slow", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_SubClientsAreSingletons(t *testing.T) {
	c, err := NewClient("http://api.example.com", "key")
	require.NoError(t, err)
	assert.Same(t, c.Patents(), c.Patents())
	assert.Same(t, c.Analysis(), c.Analysis())
}
