package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares counters across instances. The first hit in a window sets the
// key's expiry, so the window is fixed from that hit.
type Redis struct {
	rdb     redis.UniversalClient
	limits  map[string]Limit
	prefix  string
	timeout time.Duration
}

func NewRedis(rdb redis.UniversalClient, limits map[string]Limit) *Redis {
	return &Redis{rdb: rdb, limits: limits, prefix: "authcore:rl:", timeout: 500 * time.Millisecond}
}

var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func (r *Redis) AllowNamed(bucket, key string) (bool, error) {
	l, ok := lookup(r.limits, bucket)
	if !ok {
		return true, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	n, err := incrWindow.Run(ctx, r.rdb, []string{r.prefix + key}, l.Window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= int64(l.Limit), nil
}
