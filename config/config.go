// Package config loads authcore settings from the environment.
package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"github.com/PaulFidika/authcore/cookie"
	oauthkit "github.com/PaulFidika/authcore/oauth"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr      string `env:"AUTHCORE_LISTEN_ADDR" envDefault:":8080"`
	RedirectURLBase string `env:"OAUTH_REDIRECT_URL_BASE,required,notEmpty"`
	PostLoginURL    string `env:"AUTHCORE_POST_LOGIN_URL"`
	CookieSecret    string `env:"AUTHCORE_COOKIE_SECRET,required,notEmpty"`

	// RedisURL selects the Redis session store; empty keeps sessions in memory.
	RedisURL string `env:"REDIS_URL"`
	// DatabaseURL enables the session event log and its purge job.
	DatabaseURL        string `env:"DATABASE_URL"`
	PurgeCron          string `env:"AUTHCORE_PURGE_CRON" envDefault:"30 3 * * *"`
	EventRetentionDays int    `env:"AUTHCORE_EVENT_RETENTION_DAYS" envDefault:"90"`

	// TrustedProxies lists CIDRs whose forwarded client-IP headers are believed.
	TrustedProxies    []string `env:"AUTHCORE_TRUSTED_PROXIES" envSeparator:","`
	RateLimitDisabled bool     `env:"AUTHCORE_RATE_LIMIT_DISABLED"`

	GoogleClientID      string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string `env:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID      string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret  string `env:"GITHUB_CLIENT_SECRET"`
	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.RedirectURLBase)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: OAUTH_REDIRECT_URL_BASE must be an absolute URL, got %q", c.RedirectURLBase)
	}
	if len(c.CookieSecret) < cookie.MinSecretLen {
		return fmt.Errorf("config: AUTHCORE_COOKIE_SECRET must be at least %d bytes", cookie.MinSecretLen)
	}
	for _, p := range []struct{ name, id, secret string }{
		{"GOOGLE", c.GoogleClientID, c.GoogleClientSecret},
		{"GITHUB", c.GitHubClientID, c.GitHubClientSecret},
		{"DISCORD", c.DiscordClientID, c.DiscordClientSecret},
	} {
		if strings.TrimSpace(p.id) != "" && strings.TrimSpace(p.secret) == "" {
			return fmt.Errorf("config: %s_CLIENT_SECRET is required when %s_CLIENT_ID is set", p.name, p.name)
		}
	}
	if c.EventRetentionDays <= 0 {
		return fmt.Errorf("config: AUTHCORE_EVENT_RETENTION_DAYS must be positive")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is taken as a
// single-host prefix.
func (c Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if p, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("config: AUTHCORE_TRUSTED_PROXIES: invalid entry %q", raw)
		}
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// Credentials returns the client credentials of every provider with a client id.
func (c Config) Credentials() map[oauthkit.ProviderID]oauthkit.Credentials {
	out := map[oauthkit.ProviderID]oauthkit.Credentials{}
	add := func(id oauthkit.ProviderID, clientID, secret string) {
		if strings.TrimSpace(clientID) == "" {
			return
		}
		out[id] = oauthkit.Credentials{ClientID: strings.TrimSpace(clientID), ClientSecret: secret}
	}
	add(oauthkit.Google, c.GoogleClientID, c.GoogleClientSecret)
	add(oauthkit.GitHub, c.GitHubClientID, c.GitHubClientSecret)
	add(oauthkit.Discord, c.DiscordClientID, c.DiscordClientSecret)
	return out
}
