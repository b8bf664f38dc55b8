package oauthkit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PaulFidika/authcore/cookie"
	"github.com/zitadel/oidc/v2/pkg/oidc"
	"golang.org/x/oauth2"
)

const maxUserInfoBytes = 1 << 20

// Endpoints are the three provider URLs the engine needs.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// Identity is the provider-agnostic result of a successful login.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenResponse is the validated part of a token endpoint response. It is
// used once to fetch userinfo and never persisted.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ProviderConfig describes one identity provider. T is the provider's raw
// userinfo payload type.
type ProviderConfig[T any] struct {
	ID           ProviderID
	ClientID     string
	ClientSecret string
	Scopes       []string
	Endpoints    Endpoints
	Validate     Validator[T]
	Map          func(T) Identity
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	now        func() time.Time
	logger     *slog.Logger
}

// WithHTTPClient sets the client used for token and userinfo requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithClock overrides time.Now for cookie expiry.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Client runs the authorization-code-with-PKCE flow against one provider.
type Client[T any] struct {
	cfg         ProviderConfig[T]
	redirectURI string
	conf        *oauth2.Config
	httpClient  *http.Client
	now         func() time.Time
	logger      *slog.Logger
}

// NewClient builds a client whose redirect URI is <redirectBase>/<provider id>.
func NewClient[T any](cfg ProviderConfig[T], redirectBase string, opts ...Option) *Client[T] {
	o := clientOptions{httpClient: http.DefaultClient, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	redirectURI := strings.TrimRight(redirectBase, "/") + "/" + string(cfg.ID)
	return &Client[T]{
		cfg:         cfg,
		redirectURI: redirectURI,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.Endpoints.AuthURL,
				TokenURL:  cfg.Endpoints.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: redirectURI,
			Scopes:      cfg.Scopes,
		},
		httpClient: o.httpClient,
		now:        o.now,
		logger:     o.logger.With("provider", string(cfg.ID)),
	}
}

func (c *Client[T]) Provider() ProviderID { return c.cfg.ID }

func (c *Client[T]) RedirectURI() string { return c.redirectURI }

// CreateAuthURL starts a flow: it stores a fresh state and code verifier in
// jar and returns the provider authorization URL to redirect the browser to.
func (c *Client[T]) CreateAuthURL(jar cookie.Jar) (string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", fmt.Errorf("oauth: generate state: %w", err)
	}
	verifier := GenerateCodeVerifier()

	now := c.now()
	if err := setSecureCookie(jar, StateCookieName, state, now); err != nil {
		return "", fmt.Errorf("oauth: store state: %w", err)
	}
	if err := setSecureCookie(jar, CodeVerifierCookieName, verifier, now); err != nil {
		return "", fmt.Errorf("oauth: store code verifier: %w", err)
	}

	return c.conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", string(oidc.CodeChallengeMethodS256)),
		oauth2.SetAuthURLParam("code_challenge", DeriveCodeChallenge(verifier)),
	), nil
}

// FetchUser completes a flow. The CSRF and PKCE checks run before any network
// call. Flow cookies are left to expire on their own.
func (c *Client[T]) FetchUser(ctx context.Context, code, state string, jar cookie.Jar) (Identity, error) {
	stored, _ := jar.Get(StateCookieName)
	if !ValidateState(state, stored) {
		return Identity{}, ErrCSRF
	}
	verifier, ok := jar.Get(CodeVerifierCookieName)
	if !ok || verifier == "" {
		return Identity{}, ErrMissingVerifier
	}

	tok, err := c.fetchToken(ctx, code, verifier)
	if err != nil {
		return Identity{}, err
	}

	raw, err := c.fetchUserInfo(ctx, tok)
	if err != nil {
		return Identity{}, err
	}
	user, err := c.cfg.Validate(raw)
	if err != nil {
		c.logger.Warn("oauth userinfo rejected", "err", err)
		return Identity{}, fmt.Errorf("%w: %s userinfo: %v", ErrUpstreamValidation, c.cfg.ID, err)
	}
	return c.cfg.Map(user), nil
}

// fetchToken exchanges code at the token endpoint. The form body carries
// code, redirect_uri, grant_type, client_id, client_secret and code_verifier.
// Codes are single-use, so a failed exchange is not retried.
func (c *Client[T]) fetchToken(ctx context.Context, code, verifier string) (TokenResponse, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		c.logger.Warn("oauth token exchange failed", "err", err)
		return TokenResponse{}, fmt.Errorf("%w: %s token exchange: %v", ErrUpstreamValidation, c.cfg.ID, err)
	}
	out := TokenResponse{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if strings.TrimSpace(out.AccessToken) == "" || strings.TrimSpace(out.TokenType) == "" {
		return TokenResponse{}, fmt.Errorf("%w: %s token response missing access_token or token_type", ErrUpstreamValidation, c.cfg.ID)
	}
	return out, nil
}

func (c *Client[T]) fetchUserInfo(ctx context.Context, tok TokenResponse) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoints.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s userinfo url: %v", ErrConfiguration, c.cfg.ID, err)
	}
	req.Header.Set("Authorization", tok.TokenType+" "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth: %s userinfo request: %w", c.cfg.ID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return nil, fmt.Errorf("oauth: %s userinfo read: %w", c.cfg.ID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s userinfo status %d", ErrUpstreamValidation, c.cfg.ID, resp.StatusCode)
	}
	return body, nil
}
