package cookie

import (
	"sync"
	"time"
)

type memCookie struct {
	value string
	opts  Options
}

// MemoryJar is an in-process Jar for tests and non-HTTP callers. Cookies
// past their Expires time read as absent.
type MemoryJar struct {
	mu      sync.Mutex
	now     func() time.Time
	cookies map[string]memCookie
}

func NewMemoryJar() *MemoryJar {
	return &MemoryJar{now: time.Now, cookies: map[string]memCookie{}}
}

// WithClock replaces the clock used for expiry checks.
func (j *MemoryJar) WithClock(now func() time.Time) *MemoryJar {
	j.mu.Lock()
	j.now = now
	j.mu.Unlock()
	return j
}

func (j *MemoryJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	c, ok := j.cookies[name]
	if !ok {
		return "", false
	}
	if !c.opts.Expires.IsZero() && !j.now().Before(c.opts.Expires) {
		delete(j.cookies, name)
		return "", false
	}
	return c.value, true
}

func (j *MemoryJar) Set(name, value string, opts Options) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies[name] = memCookie{value: value, opts: opts}
	return nil
}

func (j *MemoryJar) Delete(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.cookies, name)
}

// Options returns the attributes the named cookie was last written with.
func (j *MemoryJar) Options(name string) (Options, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	c, ok := j.cookies[name]
	return c.opts, ok
}

// Len reports how many cookies are held, expired ones included.
func (j *MemoryJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies)
}
