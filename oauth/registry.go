package oauthkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/PaulFidika/authcore/cookie"
)

// ProviderID identifies a supported identity provider. The set is closed.
type ProviderID string

const (
	Google  ProviderID = "google"
	GitHub  ProviderID = "github"
	Discord ProviderID = "discord"
)

// Providers lists every supported provider.
var Providers = []ProviderID{Google, GitHub, Discord}

// ParseProviderID maps a path or config value to a ProviderID.
func ParseProviderID(s string) (ProviderID, error) {
	switch id := ProviderID(strings.ToLower(strings.TrimSpace(s))); id {
	case Google, GitHub, Discord:
		return id, nil
	}
	return "", fmt.Errorf("%w: unknown provider %q", ErrConfiguration, s)
}

// Credentials are the client credentials registered with a provider.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// complete reports whether both halves are set. The token exchange always
// sends client_secret, so a provider without one is unusable.
func (c Credentials) complete() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

// Engine is the provider-independent view of a Client.
type Engine interface {
	Provider() ProviderID
	RedirectURI() string
	CreateAuthURL(jar cookie.Jar) (string, error)
	FetchUser(ctx context.Context, code, state string, jar cookie.Jar) (Identity, error)
}

var (
	_ Engine = (*Client[googleUser])(nil)
	_ Engine = (*Client[githubUser])(nil)
	_ Engine = (*Client[discordUser])(nil)
)

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	endpoints  map[ProviderID]Endpoints
	clientOpts []Option
}

// WithEndpoints replaces the default endpoints of one provider.
func WithEndpoints(id ProviderID, e Endpoints) RegistryOption {
	return func(o *registryOptions) { o.endpoints[id] = e }
}

// WithClientOptions applies opts to every client the registry builds.
func WithClientOptions(opts ...Option) RegistryOption {
	return func(o *registryOptions) { o.clientOpts = append(o.clientOpts, opts...) }
}

// Registry holds one fully configured client per provider.
type Registry struct {
	creds   map[ProviderID]Credentials
	google  *Client[googleUser]
	github  *Client[githubUser]
	discord *Client[discordUser]
}

// NewRegistry builds a client for every provider up front. Providers without
// a client id and secret are built but refused by Client.
func NewRegistry(redirectBase string, creds map[ProviderID]Credentials, opts ...RegistryOption) *Registry {
	o := registryOptions{endpoints: map[ProviderID]Endpoints{}}
	for id, e := range defaultEndpoints {
		o.endpoints[id] = e
	}
	for _, opt := range opts {
		opt(&o)
	}
	cp := make(map[ProviderID]Credentials, len(creds))
	for id, c := range creds {
		cp[id] = c
	}
	return &Registry{
		creds:   cp,
		google:  NewClient(googleConfig(cp[Google], o.endpoints[Google]), redirectBase, o.clientOpts...),
		github:  NewClient(githubConfig(cp[GitHub], o.endpoints[GitHub]), redirectBase, o.clientOpts...),
		discord: NewClient(discordConfig(cp[Discord], o.endpoints[Discord]), redirectBase, o.clientOpts...),
	}
}

// Client returns the engine for id. Unknown or unconfigured providers yield
// ErrConfiguration.
func (r *Registry) Client(id ProviderID) (Engine, error) {
	var e Engine
	switch id {
	case Google:
		e = r.google
	case GitHub:
		e = r.github
	case Discord:
		e = r.discord
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrConfiguration, id)
	}
	if !r.creds[id].complete() {
		return nil, fmt.Errorf("%w: provider %q needs a client id and secret", ErrConfiguration, id)
	}
	return e, nil
}

// Configured lists providers that have a client id and secret.
func (r *Registry) Configured() []ProviderID {
	var out []ProviderID
	for _, id := range Providers {
		if r.creds[id].complete() {
			out = append(out, id)
		}
	}
	return out
}
