// Package ratelimit holds fixed-window counters keyed by bucket and caller.
package ratelimit

import "time"

// DefaultBucket is consulted when a bucket has no limit of its own.
const DefaultBucket = "default"

// Limit allows Limit hits per Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

func lookup(limits map[string]Limit, bucket string) (Limit, bool) {
	if l, ok := limits[bucket]; ok && l.Limit > 0 && l.Window > 0 {
		return l, true
	}
	if l, ok := limits[DefaultBucket]; ok && l.Limit > 0 && l.Window > 0 {
		return l, true
	}
	return Limit{}, false
}
