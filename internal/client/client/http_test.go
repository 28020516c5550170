package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zktaccess/zktadmin/internal/client/models"
	"github.com/zktaccess/zktadmin/internal/client/session"
	"github.com/zktaccess/zktadmin/internal/logging"
	"github.com/zktaccess/zktadmin/internal/obs"
)

/*************
 * helpers
 *************/

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*HTTPClient, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore(logging.Discard())
	c, err := NewHTTPClient(srv.URL, store, opts...)
	require.NoError(t, err)
	return c, store
}

func login(t *testing.T, store *session.Store) {
	t.Helper()
	require.NoError(t, store.Login(context.Background(), "tok", models.Identity{Username: "alice", Role: models.RoleAdmin}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

/*************
 * constructor
 *************/

func TestNewHTTPClient_RejectsBadBaseURL(t *testing.T) {
	store := session.NewMemoryStore(logging.Discard())
	_, err := NewHTTPClient("ftp://example", store)
	require.Error(t, err)
	_, err = NewHTTPClient("://bad", store)
	require.Error(t, err)
}

func TestNewHTTPClient_TrimsTrailingSlash(t *testing.T) {
	c, err := NewHTTPClient("http://localhost:5000/", session.NewMemoryStore(logging.Discard()))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", c.baseURL)
}

func TestWithRateLimit_NonPositiveDisables(t *testing.T) {
	c, err := NewHTTPClient("http://localhost", session.NewMemoryStore(logging.Discard()), WithRateLimit(0, 1))
	require.NoError(t, err)
	assert.Nil(t, c.limiter)

	c, err = NewHTTPClient("http://localhost", session.NewMemoryStore(logging.Discard()), WithRateLimit(5, 0))
	require.NoError(t, err)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())
}

/*************
 * Do
 *************/

func TestDo_SetsHeaders(t *testing.T) {
	var got http.Header
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
	})
	c.newID = func() string { return "req-1" }
	login(t, store)

	var out map[string]string
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/x", nil, &out))

	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "req-1", got.Get(RequestIDHeader))
	assert.Equal(t, "1", out["ok"])
}

func TestDo_NoTokenNoAuthorization(t *testing.T) {
	var auth string
	var id string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		id = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/x", nil, nil))
	assert.Empty(t, auth)
	assert.Len(t, id, 36)
}

func TestDo_TokenExpiredClearsSession(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token has expired!"})
	})
	login(t, store)

	err := c.Do(context.Background(), http.MethodGet, "/users", nil, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.True(t, IsSessionExpired(err))

	_, ok := store.Token(context.Background())
	assert.False(t, ok)
	_, ok = store.CurrentUser(context.Background())
	assert.False(t, ok)
}

func TestDo_OtherFailureIsRequestError(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "User already exists"})
	})
	login(t, store)

	err := c.Do(context.Background(), http.MethodPost, "/add_user", map[string]string{}, nil)
	require.ErrorIs(t, err, ErrRequestFailed)
	require.NotErrorIs(t, err, ErrSessionExpired)

	var re *RequestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusBadRequest, re.Status)
	assert.Equal(t, "User already exists", re.Message())
	assert.Equal(t, "User already exists", Describe(err))

	_, ok := store.Token(context.Background())
	assert.True(t, ok, "session must survive ordinary failures")
}

func TestRequestError_Message(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"nope"}`, "nope"},
		{"message field", `{"message":"gone"}`, "gone"},
		{"both", `{"error":"bad","message":"detail"}`, "bad: detail"},
		{"plain text", "Internal Server Error\n", "Internal Server Error"},
		{"empty", "", "status 500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := &RequestError{Status: 500, Body: tc.body}
			assert.Equal(t, tc.want, e.Message())
		})
	}
}

func TestDo_ServerDownIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, session.NewMemoryStore(logging.Discard()))
	require.NoError(t, err)

	err = c.Do(context.Background(), http.MethodGet, "/users", nil, nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDo_CanceledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, WithRateLimit(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Do(ctx, http.MethodGet, "/x", nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDo_Timeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}, WithTimeout(20*time.Millisecond))

	err := c.Do(context.Background(), http.MethodGet, "/slow", nil, nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDo_EmptyBodyWithOut(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	var out []models.User
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/users", nil, &out))
	assert.Nil(t, out)
}

func TestDo_BadJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{not json")
	})
	var out []models.User
	err := c.Do(context.Background(), http.MethodGet, "/users", nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode GET /users")
}

func TestDo_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := obs.NewMetrics(reg)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, WithMetrics(m))

	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/users", nil, nil))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/logs", nil, nil))

	n, err := testutil.GatherAndCount(reg, "zktadmin_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

/*************
 * retries
 *************/

// flakyTransport fails the first n round trips before delegating to next.
type flakyTransport struct {
	n     int
	calls int
	next  http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.n {
		return nil, errors.New("connection reset")
	}
	return f.next.RoundTrip(r)
}

func newFlakyClient(t *testing.T, failures int, opts ...Option) (*HTTPClient, *flakyTransport) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"count": 2})
	}))
	t.Cleanup(srv.Close)

	ft := &flakyTransport{n: failures, next: http.DefaultTransport}
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: ft})}, opts...)
	c, err := NewHTTPClient(srv.URL, session.NewMemoryStore(logging.Discard()), opts...)
	require.NoError(t, err)
	return c, ft
}

func TestDo_RetriesUnavailableGet(t *testing.T) {
	c, ft := newFlakyClient(t, 2, WithRetry(3, time.Millisecond))

	var out models.CountResponse
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/qr/count", nil, &out))
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 3, ft.calls)
}

func TestDo_RetryGivesUp(t *testing.T) {
	c, ft := newFlakyClient(t, 10, WithRetry(2, time.Millisecond))

	err := c.Do(context.Background(), http.MethodGet, "/qr/count", nil, nil)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, ft.calls)
}

func TestDo_DoesNotRetryWrites(t *testing.T) {
	c, ft := newFlakyClient(t, 1, WithRetry(3, time.Millisecond))

	err := c.Do(context.Background(), http.MethodPost, "/qr/generate", map[string]string{"username": "a"}, nil)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, ft.calls)
}

func TestDo_DoesNotRetryRequestErrors(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db"})
	}, WithRetry(3, time.Millisecond))

	err := c.Do(context.Background(), http.MethodGet, "/users", nil, nil)
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, 1, calls)
}
