package oauthkit

import "errors"

var (
	// ErrConfiguration reports an unknown or unconfigured provider. It is fatal
	// and must not be retried.
	ErrConfiguration = errors.New("oauth: configuration error")
	// ErrCSRF reports a callback state that does not match the stored state.
	ErrCSRF = errors.New("oauth: state mismatch")
	// ErrMissingVerifier reports an absent or expired PKCE verifier cookie.
	ErrMissingVerifier = errors.New("oauth: missing code verifier")
	// ErrUpstreamValidation reports a token or userinfo response from the
	// provider that failed validation, or a failed token exchange.
	ErrUpstreamValidation = errors.New("oauth: upstream response failed validation")
)
