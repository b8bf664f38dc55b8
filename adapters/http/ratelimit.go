package authhttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/PaulFidika/authcore/ratelimit"
)

// RateLimiter counts a hit for key in the named bucket.
// *ratelimit.Memory and *ratelimit.Redis satisfy it.
type RateLimiter interface {
	AllowNamed(bucket string, key string) (bool, error)
}

const (
	RLOAuthStart    = "auth_oauth_start"
	RLOAuthCallback = "auth_oauth_callback"
	RLAuthLogout    = "auth_logout"
	RLAuthSession   = "auth_session_current"
)

// DefaultRateLimits returns the per-client-IP limits NewService installs.
func DefaultRateLimits() map[string]ratelimit.Limit {
	return map[string]ratelimit.Limit{
		ratelimit.DefaultBucket: {Limit: 120, Window: time.Minute},

		RLOAuthStart:    {Limit: 30, Window: 10 * time.Minute},
		RLOAuthCallback: {Limit: 60, Window: 10 * time.Minute},
		RLAuthLogout:    {Limit: 60, Window: 10 * time.Minute},
		RLAuthSession:   {Limit: 60, Window: 10 * time.Minute},
	}
}

// allow fails open when there is no limiter, no client IP, or a limiter error.
func (s *Service) allow(r *http.Request, bucket string) bool {
	if s == nil || s.rl == nil {
		return true
	}
	ipFn := s.clientIP
	if ipFn == nil {
		ipFn = DefaultClientIP()
	}
	ip := ipFn(r)
	if strings.TrimSpace(ip) == "" {
		return true
	}
	ok, err := s.rl.AllowNamed(bucket, "auth:"+bucket+":ip:"+ip)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", "bucket", bucket, "err", err)
		return true
	}
	if !ok {
		s.metrics.sessionOp("rate_limited")
	}
	return ok
}

// limited runs the bucket check ahead of next, so a refused request never
// touches the session store.
func (s *Service) limited(bucket string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(r, bucket) {
			tooMany(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
