package authhttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PaulFidika/authcore/cookie"
	oauthkit "github.com/PaulFidika/authcore/oauth"
	"github.com/PaulFidika/authcore/ratelimit"
	"github.com/PaulFidika/authcore/roles"
	"github.com/PaulFidika/authcore/session"
	"github.com/gorilla/securecookie"
)

// Providers looks up the OAuth engine for a provider. *oauthkit.Registry
// satisfies it.
type Providers interface {
	Client(id oauthkit.ProviderID) (oauthkit.Engine, error)
}

// IdentityResolver turns a verified provider identity into the session
// payload for the host's own user. Returning ErrAccessDenied refuses the login.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, provider oauthkit.ProviderID, id oauthkit.Identity) (session.UserSession, error)
}

// IdentityResolverFunc adapts a function to IdentityResolver.
type IdentityResolverFunc func(ctx context.Context, provider oauthkit.ProviderID, id oauthkit.Identity) (session.UserSession, error)

func (f IdentityResolverFunc) ResolveUser(ctx context.Context, provider oauthkit.ProviderID, id oauthkit.Identity) (session.UserSession, error) {
	return f(ctx, provider, id)
}

// DefaultResolver keys users by "<provider>:<subject>" and gives every new
// login the customer role.
var DefaultResolver = IdentityResolverFunc(func(_ context.Context, provider oauthkit.ProviderID, id oauthkit.Identity) (session.UserSession, error) {
	return session.UserSession{ID: string(provider) + ":" + id.ID, Role: roles.Customer}, nil
})

// Service mounts the OAuth login flow and session endpoints on net/http.
type Service struct {
	providers    Providers
	sessions     *session.Manager
	resolver     IdentityResolver
	codec        *securecookie.SecureCookie
	logger       *slog.Logger
	metrics      *Metrics
	postLoginURL string
	rl           RateLimiter
	clientIP     ClientIPFunc
}

func NewService(providers Providers, sessions *session.Manager) *Service {
	return &Service{
		providers: providers,
		sessions:  sessions,
		resolver:  DefaultResolver,
		logger:    slog.Default(),
		rl:        ratelimit.NewMemory(DefaultRateLimits()),
		clientIP:  DefaultClientIP(),
	}
}

// WithRateLimiter replaces the in-memory limiter, e.g. with a
// *ratelimit.Redis shared across instances.
func (s *Service) WithRateLimiter(rl RateLimiter) *Service { s.rl = rl; return s }
func (s *Service) DisableRateLimiter() *Service            { s.rl = nil; return s }

func (s *Service) WithClientIPFunc(fn ClientIPFunc) *Service {
	if fn == nil {
		fn = DefaultClientIP()
	}
	s.clientIP = fn
	return s
}

func (s *Service) WithResolver(r IdentityResolver) *Service {
	if r != nil {
		s.resolver = r
	}
	return s
}

// WithCookieCodec signs and encrypts every cookie the service writes.
func (s *Service) WithCookieCodec(c *securecookie.SecureCookie) *Service { s.codec = c; return s }

func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *Service) WithMetrics(m *Metrics) *Service { s.metrics = m; return s }

// WithPostLoginURL sets where browsers land after a successful callback.
// Without it the callback answers with JSON.
func (s *Service) WithPostLoginURL(u string) *Service {
	s.postLoginURL = strings.TrimSpace(u)
	return s
}

func (s *Service) Sessions() *session.Manager { return s.sessions }

func (s *Service) jar(w http.ResponseWriter, r *http.Request) *cookie.HTTPJar {
	return cookie.NewHTTPJar(w, r, s.codec)
}

// Handler serves the routes under /auth/*. It can be mounted on any mux.
func (s *Service) Handler() http.Handler {
	if s == nil || s.providers == nil || s.sessions == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { serverErr(w, "authcore_not_initialized") })
	}
	mux := http.NewServeMux()

	mux.Handle("GET /auth/oauth/{provider}/login", http.HandlerFunc(s.handleOAuthLoginGET))
	mux.Handle("GET /auth/oauth/{provider}", http.HandlerFunc(s.handleOAuthCallbackGET))

	mux.Handle("POST /auth/logout", http.HandlerFunc(s.handleLogout))
	mux.Handle("DELETE /auth/logout", http.HandlerFunc(s.handleLogout))
	mux.Handle("GET /auth/session", s.limited(RLAuthSession, s.Middleware(http.HandlerFunc(s.handleSessionGET))))

	return mux
}
