// Package testing provides an in-process identity provider for exercising
// the OAuth login flow end to end.
package testing

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	oauthkit "github.com/PaulFidika/authcore/oauth"
)

type pendingCode struct {
	provider    oauthkit.ProviderID
	clientID    string
	redirectURI string
	challenge   string
}

// FakeProvider impersonates Google, GitHub and Discord on one httptest
// server. Authorization is granted immediately, codes are single-use and the
// token endpoint enforces PKCE S256.
type FakeProvider struct {
	srv *httptest.Server

	mu     sync.Mutex
	codes  map[string]pendingCode
	tokens map[string]oauthkit.ProviderID
	users  map[oauthkit.ProviderID]any
}

// NewFakeProvider starts a provider with one default user per provider.
func NewFakeProvider() *FakeProvider {
	f := &FakeProvider{
		codes:  map[string]pendingCode{},
		tokens: map[string]oauthkit.ProviderID{},
		users: map[oauthkit.ProviderID]any{
			oauthkit.Google: map[string]any{
				"sub": "g-123", "email": "ada@example.com", "email_verified": true, "name": "Ada Lovelace",
			},
			oauthkit.GitHub: map[string]any{
				"id": 42, "login": "ada", "name": nil, "email": "ada@example.com",
			},
			oauthkit.Discord: map[string]any{
				"id": "d-7", "username": "ada", "global_name": "Ada L", "email": "ada@example.com",
			},
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{provider}/authorize", f.handleAuthorize)
	mux.HandleFunc("POST /{provider}/token", f.handleToken)
	mux.HandleFunc("GET /{provider}/userinfo", f.handleUserInfo)
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *FakeProvider) URL() string { return f.srv.URL }

func (f *FakeProvider) Close() { f.srv.Close() }

// Client returns an HTTP client that can reach the provider.
func (f *FakeProvider) Client() *http.Client { return f.srv.Client() }

// Endpoints returns the provider's URLs for id.
func (f *FakeProvider) Endpoints(id oauthkit.ProviderID) oauthkit.Endpoints {
	base := f.srv.URL + "/" + string(id)
	return oauthkit.Endpoints{
		AuthURL:     base + "/authorize",
		TokenURL:    base + "/token",
		UserInfoURL: base + "/userinfo",
	}
}

// RegistryOptions points every provider of a Registry at f.
func (f *FakeProvider) RegistryOptions() []oauthkit.RegistryOption {
	opts := []oauthkit.RegistryOption{oauthkit.WithClientOptions(oauthkit.WithHTTPClient(f.Client()))}
	for _, id := range oauthkit.Providers {
		opts = append(opts, oauthkit.WithEndpoints(id, f.Endpoints(id)))
	}
	return opts
}

// SetUser replaces the userinfo payload served for id.
func (f *FakeProvider) SetUser(id oauthkit.ProviderID, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = payload
}

func (f *FakeProvider) provider(r *http.Request) (oauthkit.ProviderID, bool) {
	id, err := oauthkit.ParseProviderID(r.PathValue("provider"))
	return id, err == nil
}

func (f *FakeProvider) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	id, ok := f.provider(r)
	q := r.URL.Query()
	redirectURI := q.Get("redirect_uri")
	if !ok || redirectURI == "" || q.Get("response_type") != "code" ||
		q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		http.Error(w, "invalid_request", http.StatusBadRequest)
		return
	}
	code := randHex(16)
	f.mu.Lock()
	f.codes[code] = pendingCode{provider: id, clientID: q.Get("client_id"), redirectURI: redirectURI, challenge: q.Get("code_challenge")}
	f.mu.Unlock()

	u, err := url.Parse(redirectURI)
	if err != nil {
		http.Error(w, "invalid_request", http.StatusBadRequest)
		return
	}
	back := u.Query()
	back.Set("code", code)
	back.Set("state", q.Get("state"))
	u.RawQuery = back.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

func (f *FakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	id, ok := f.provider(r)
	if !ok || r.ParseForm() != nil || r.PostForm.Get("grant_type") != "authorization_code" {
		tokenErr(w, "invalid_request")
		return
	}
	f.mu.Lock()
	pc, found := f.codes[r.PostForm.Get("code")]
	delete(f.codes, r.PostForm.Get("code"))
	f.mu.Unlock()
	switch {
	case !found || pc.provider != id:
		tokenErr(w, "invalid_grant")
		return
	case pc.clientID != r.PostForm.Get("client_id") || pc.redirectURI != r.PostForm.Get("redirect_uri"):
		tokenErr(w, "invalid_grant")
		return
	case oauthkit.DeriveCodeChallenge(r.PostForm.Get("code_verifier")) != pc.challenge:
		tokenErr(w, "invalid_grant")
		return
	}

	access := randHex(24)
	f.mu.Lock()
	f.tokens[access] = id
	f.mu.Unlock()

	tokenType := "Bearer"
	if id == oauthkit.GitHub {
		tokenType = "bearer"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"access_token": access, "token_type": tokenType, "scope": r.PostForm.Get("scope")})
}

func (f *FakeProvider) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := f.provider(r)
	scheme, tok, _ := strings.Cut(r.Header.Get("Authorization"), " ")
	f.mu.Lock()
	owner, known := f.tokens[tok]
	payload := f.users[id]
	f.mu.Unlock()
	if !ok || !strings.EqualFold(scheme, "bearer") || !known || owner != id {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func tokenErr(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
