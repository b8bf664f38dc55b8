package oauthkit

import (
	"time"

	"github.com/PaulFidika/authcore/cookie"
)

// Flow cookies. Only one flow is in flight per cookie jar; starting a second
// flow overwrites the first.
const (
	StateCookieName        = "oauth_state"
	CodeVerifierCookieName = "oauth_code_verifier"

	FlowTTL = 10 * time.Minute
)

func setSecureCookie(jar cookie.Jar, key, value string, now time.Time) error {
	return jar.Set(key, value, cookie.Secure(now.Add(FlowTTL)))
}
