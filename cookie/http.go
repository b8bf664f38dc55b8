package cookie

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
)

// HTTPJar adapts a request/response pair to Jar. Writes made through the jar
// are visible to later reads in the same request.
type HTTPJar struct {
	w     http.ResponseWriter
	r     *http.Request
	codec *securecookie.SecureCookie

	mu      sync.Mutex
	pending map[string]*string
}

// NewHTTPJar returns a jar over w and r. A nil codec stores values verbatim;
// otherwise values are authenticated and encrypted, and tampered cookies read
// as absent.
func NewHTTPJar(w http.ResponseWriter, r *http.Request, codec *securecookie.SecureCookie) *HTTPJar {
	return &HTTPJar{w: w, r: r, codec: codec, pending: map[string]*string{}}
}

func (j *HTTPJar) Get(name string) (string, bool) {
	j.mu.Lock()
	v, ok := j.pending[name]
	j.mu.Unlock()
	if ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	if j.r == nil {
		return "", false
	}
	c, err := j.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	if j.codec == nil {
		return c.Value, true
	}
	var out string
	if err := j.codec.Decode(name, c.Value, &out); err != nil {
		return "", false
	}
	return out, true
}

func (j *HTTPJar) Set(name, value string, opts Options) error {
	encoded := value
	if j.codec != nil {
		var err error
		if encoded, err = j.codec.Encode(name, value); err != nil {
			return err
		}
	}
	path := opts.Path
	if path == "" {
		path = "/"
	}
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     path,
		Expires:  opts.Expires,
		Secure:   opts.Secure,
		HttpOnly: opts.HTTPOnly,
		SameSite: opts.SameSite,
	})
	j.mu.Lock()
	j.pending[name] = &value
	j.mu.Unlock()
	return nil
}

func (j *HTTPJar) Delete(name string) {
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	j.mu.Lock()
	j.pending[name] = nil
	j.mu.Unlock()
}
