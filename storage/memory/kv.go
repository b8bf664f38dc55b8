package memorystore

import (
	"context"
	"sync"
	"time"
)

type kvItem struct {
	value   []byte
	expires time.Time
}

// KV is an in-process key-value store with per-key expiry. It satisfies
// session.Store and is only safe for single-process deployments.
type KV struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]kvItem
}

func NewKV() *KV {
	return &KV{now: time.Now, items: make(map[string]kvItem)}
}

// WithClock replaces the clock used for expiry; tests use it to jump ahead.
func (k *KV) WithClock(now func() time.Time) *KV {
	k.mu.Lock()
	k.now = now
	k.mu.Unlock()
	return k
}

func (k *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	it, ok := k.live(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), it.value...), true, nil
}

// Set stores value; ttl <= 0 keeps the key until deleted.
func (k *KV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = k.now().Add(ttl)
	}
	k.items[key] = kvItem{value: append([]byte(nil), value...), expires: exp}
	return nil
}

func (k *KV) Del(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.items, key)
	return nil
}

// TTL reports the remaining lifetime of key. ok is false for missing keys;
// a zero duration with ok=true means the key never expires.
func (k *KV) TTL(key string) (time.Duration, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	it, ok := k.live(key)
	if !ok {
		return 0, false
	}
	if it.expires.IsZero() {
		return 0, true
	}
	return it.expires.Sub(k.now()), true
}

// Len counts unexpired keys.
func (k *KV) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := 0
	for key := range k.items {
		if _, ok := k.live(key); ok {
			n++
		}
	}
	return n
}

// live must be called with mu held. Expired items are dropped on sight.
func (k *KV) live(key string) (kvItem, bool) {
	it, ok := k.items[key]
	if !ok {
		return kvItem{}, false
	}
	if !it.expires.IsZero() && !k.now().Before(it.expires) {
		delete(k.items, key)
		return kvItem{}, false
	}
	return it, true
}
