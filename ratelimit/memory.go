package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Memory is a single-process limiter. Counters live until their window ends
// and are swept on the next hit after that.
type Memory struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string]*window
	now     func() time.Time
	hits    int
}

func NewMemory(limits map[string]Limit) *Memory {
	return &Memory{limits: limits, windows: make(map[string]*window), now: time.Now}
}

func (m *Memory) WithClock(now func() time.Time) *Memory {
	if now != nil {
		m.now = now
	}
	return m
}

// AllowNamed counts a hit against key under bucket's limit. Buckets without
// a limit, and no default, are unlimited.
func (m *Memory) AllowNamed(bucket, key string) (bool, error) {
	l, ok := lookup(m.limits, bucket)
	if !ok {
		return true, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.hits++
	if m.hits%1024 == 0 {
		m.sweep(now)
	}
	w := m.windows[key]
	if w == nil || now.Sub(w.start) >= l.Window {
		m.windows[key] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count >= l.Limit {
		return false, nil
	}
	w.count++
	return true, nil
}

func (m *Memory) sweep(now time.Time) {
	longest := time.Duration(0)
	for _, l := range m.limits {
		if l.Window > longest {
			longest = l.Window
		}
	}
	for k, w := range m.windows {
		if now.Sub(w.start) >= longest {
			delete(m.windows, k)
		}
	}
}
