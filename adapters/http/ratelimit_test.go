package authhttp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/PaulFidika/authcore/ratelimit"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type failingLimiter struct{}

func (failingLimiter) AllowNamed(string, string) (bool, error) { return false, errors.New("down") }

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t)
	h.svc.WithRateLimiter(ratelimit.NewMemory(map[string]ratelimit.Limit{
		RLOAuthStart: {Limit: 1, Window: time.Minute},
	}))

	require.Equal(t, http.StatusFound, h.do(http.MethodGet, "/auth/oauth/google/login").Code)
	w := h.do(http.MethodGet, "/auth/oauth/google/login")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "rate_limited", errorOf(t, w))
	require.Equal(t, 1.0, testutil.ToFloat64(h.svc.metrics.sessionOps.WithLabelValues("rate_limited")))

	// the callback has its own bucket
	w = h.do(http.MethodGet, "/auth/oauth/google?code=c&state=st")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSessionAndLogoutRateLimited(t *testing.T) {
	h := newHarness(t)
	h.svc.WithRateLimiter(ratelimit.NewMemory(map[string]ratelimit.Limit{
		RLAuthSession: {Limit: 1, Window: time.Minute},
		RLAuthLogout:  {Limit: 1, Window: time.Minute},
	}))

	require.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/auth/session").Code)
	require.Equal(t, http.StatusTooManyRequests, h.do(http.MethodGet, "/auth/session").Code)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/auth/logout").Code)
	require.Equal(t, http.StatusTooManyRequests, h.do(http.MethodDelete, "/auth/logout").Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.svc.WithRateLimiter(failingLimiter{})
	require.Equal(t, http.StatusFound, h.do(http.MethodGet, "/auth/oauth/google/login").Code)

	// loopback peers have no client IP under the default strategy
	h = newHarness(t)
	h.svc.WithRateLimiter(ratelimit.NewMemory(map[string]ratelimit.Limit{RLOAuthStart: {Limit: 1, Window: time.Minute}}))
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/auth/oauth/google/login", nil)
		r.RemoteAddr = "127.0.0.1:5000"
		w := httptest.NewRecorder()
		h.handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusFound, w.Code)
	}
}

func TestClientIPStrategies(t *testing.T) {
	trusted := ClientIPFromForwardedHeaders([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")})

	cases := []struct {
		name   string
		remote string
		hdr    map[string]string
		fn     ClientIPFunc
		want   string
	}{
		{"public peer", "203.0.113.7:443", nil, DefaultClientIP(), "203.0.113.7"},
		{"private peer", "10.1.2.3:443", nil, DefaultClientIP(), ""},
		{"loopback v6", "[::1]:443", nil, DefaultClientIP(), ""},
		{"garbage", "not-an-ip", nil, DefaultClientIP(), ""},
		{"trusted cf header", "10.1.2.3:443", map[string]string{"CF-Connecting-IP": "198.51.100.4"}, trusted, "198.51.100.4"},
		{"trusted xff left-most", "10.1.2.3:443", map[string]string{"X-Forwarded-For": "198.51.100.5, 10.0.0.9"}, trusted, "198.51.100.5"},
		{"untrusted peer ignores headers", "203.0.113.8:443", map[string]string{"X-Forwarded-For": "198.51.100.5"}, trusted, "203.0.113.8"},
		{"private forwarded value", "10.1.2.3:443", map[string]string{"X-Forwarded-For": "192.168.1.1"}, trusted, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.hdr {
				r.Header.Set(k, v)
			}
			require.Equal(t, tc.want, tc.fn(r))
		})
	}
}
