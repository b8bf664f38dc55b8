// Package cookie defines the cookie capability the auth core writes flow
// state and session tokens through, plus adapters for net/http and tests.
package cookie

import (
	"net/http"
	"time"
)

// Options are the attributes applied to a cookie on Set.
type Options struct {
	Path     string
	Expires  time.Time
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// Jar is the per-request cookie capability supplied by the calling web layer.
//
// Get reports found=false for absent, expired, or unreadable cookies.
type Jar interface {
	Get(name string) (string, bool)
	Set(name, value string, opts Options) error
	Delete(name string)
}

// Secure returns the attribute set used for every auth cookie: secure,
// httpOnly, SameSite=Lax, scoped to "/" and expiring at exp.
func Secure(exp time.Time) Options {
	return Options{
		Path:     "/",
		Expires:  exp,
		Secure:   true,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
