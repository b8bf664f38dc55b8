package oauthkit

import (
	"errors"
	"strconv"
	"strings"

	"github.com/zitadel/oidc/v2/pkg/oidc"
)

var defaultEndpoints = map[ProviderID]Endpoints{
	Google: {
		AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:    "https://oauth2.googleapis.com/token",
		UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
	},
	GitHub: {
		AuthURL:     "https://github.com/login/oauth/authorize",
		TokenURL:    "https://github.com/login/oauth/access_token",
		UserInfoURL: "https://api.github.com/user",
	},
	Discord: {
		AuthURL:     "https://discord.com/oauth2/authorize",
		TokenURL:    "https://discord.com/api/oauth2/token",
		UserInfoURL: "https://discord.com/api/users/@me",
	},
}

// DefaultEndpoints returns the public endpoints for id.
func DefaultEndpoints(id ProviderID) (Endpoints, bool) {
	e, ok := defaultEndpoints[id]
	return e, ok
}

type googleUser struct {
	Subject       string    `json:"sub" validate:"required"`
	Email         string    `json:"email" validate:"required,email"`
	EmailVerified oidc.Bool `json:"email_verified"`
	Name          string    `json:"name"`
}

var validateGoogleUser = JSONSchema[googleUser]()

// verifiedGoogleUser refuses accounts whose email Google has not verified,
// since the email is handed on as part of the identity.
func verifiedGoogleUser(raw []byte) (googleUser, error) {
	u, err := validateGoogleUser(raw)
	if err != nil {
		return u, err
	}
	if !bool(u.EmailVerified) {
		return googleUser{}, errors.New("email_verified is false")
	}
	return u, nil
}

func googleConfig(c Credentials, e Endpoints) ProviderConfig[googleUser] {
	return ProviderConfig[googleUser]{
		ID:           Google,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       []string{oidc.ScopeOpenID, oidc.ScopeEmail, oidc.ScopeProfile},
		Endpoints:    e,
		Validate:     verifiedGoogleUser,
		Map: func(u googleUser) Identity {
			return Identity{ID: u.Subject, Email: u.Email, Name: firstNonEmpty(u.Name, u.Email)}
		},
	}
}

type githubUser struct {
	ID    int64   `json:"id" validate:"required"`
	Login string  `json:"login" validate:"required"`
	Name  *string `json:"name"`
	Email string  `json:"email" validate:"required,email"`
}

func githubConfig(c Credentials, e Endpoints) ProviderConfig[githubUser] {
	return ProviderConfig[githubUser]{
		ID:           GitHub,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       []string{"user:email"},
		Endpoints:    e,
		Validate:     JSONSchema[githubUser](),
		Map: func(u githubUser) Identity {
			name := u.Login
			if u.Name != nil {
				name = firstNonEmpty(*u.Name, u.Login)
			}
			return Identity{ID: strconv.FormatInt(u.ID, 10), Email: u.Email, Name: name}
		},
	}
}

type discordUser struct {
	ID         string  `json:"id" validate:"required"`
	Username   string  `json:"username" validate:"required"`
	GlobalName *string `json:"global_name"`
	Email      string  `json:"email" validate:"required,email"`
}

func discordConfig(c Credentials, e Endpoints) ProviderConfig[discordUser] {
	return ProviderConfig[discordUser]{
		ID:           Discord,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       []string{"identify", "email"},
		Endpoints:    e,
		Validate:     JSONSchema[discordUser](),
		Map: func(u discordUser) Identity {
			name := u.Username
			if u.GlobalName != nil {
				name = firstNonEmpty(*u.GlobalName, u.Username)
			}
			return Identity{ID: u.ID, Email: u.Email, Name: name}
		},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
