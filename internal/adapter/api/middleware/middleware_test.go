package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fazaachat/internal/infrastructure/firebase"
)

func echoUID(c echo.Context) error {
	return c.String(http.StatusOK, c.Get("uid").(string))
}

func serve(h echo.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	err := h(e.NewContext(req, rec))
	return rec, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %v", err)
	return httpErr.Code
}

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(firebase.DevTokenVerifier{})
	h := m.Authenticate(echoUID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+firebase.DevToken("u1"))
	rec, err := serve(h, req)
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.Body.String())

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-dev"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		_, err := serve(h, req)
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err), header)
	}
}

func TestAuthenticateWebSocketAcceptsQueryToken(t *testing.T) {
	m := NewAuthMiddleware(firebase.DevTokenVerifier{})
	h := m.AuthenticateWebSocket(echoUID)

	req := httptest.NewRequest(http.MethodGet, "/ws/conversations/c1?token="+firebase.DevToken("u2"), nil)
	rec, err := serve(h, req)
	require.NoError(t, err)
	assert.Equal(t, "u2", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/ws/conversations/c1", nil)
	req.Header.Set("Authorization", "Bearer "+firebase.DevToken("u3"))
	rec, err = serve(h, req)
	require.NoError(t, err)
	assert.Equal(t, "u3", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/ws/conversations/c1?token=bogus", nil)
	_, err = serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

// onePerKey allows the first call per key:action and rejects the rest.
type onePerKey map[string]bool

func (l onePerKey) Allow(key, action string) (bool, time.Duration) {
	k := key + ":" + action
	if l[k] {
		return false, 1500 * time.Millisecond
	}
	l[k] = true
	return true, 0
}

func TestRateLimitPerUser(t *testing.T) {
	h := RateLimit(onePerKey{}, "ws_connect")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	call := func(uid string) *httptest.ResponseRecorder {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if uid != "" {
			c.Set("uid", uid)
		}
		require.NoError(t, h(c))
		return rec
	}

	assert.Equal(t, http.StatusOK, call("u1").Code)
	limited := call("u1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "2", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, call("u2").Code, "buckets are per user")
	assert.Equal(t, http.StatusOK, call("").Code, "anonymous callers fall back to their IP")
	assert.Equal(t, http.StatusTooManyRequests, call("").Code)
}
