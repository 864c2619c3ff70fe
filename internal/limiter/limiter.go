package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Strategy is a rate limiting algorithm.
type Strategy interface {
	// Allow counts one hit against key and reports whether it fits within
	// limit hits per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Manager applies a strategy under a key prefix and lets requests through when
// the backing store fails.
type Manager struct {
	strategy Strategy
	prefix   string
	logger   *zap.Logger
}

func NewManager(strategy Strategy, prefix string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{strategy: strategy, prefix: prefix, logger: logger}
}

// Allow proxies to the strategy. Store errors are logged and the hit allowed.
func (m *Manager) Allow(ctx context.Context, key string, limit int, window time.Duration) Decision {
	decision, err := m.strategy.Allow(ctx, m.prefix+key, limit, window)
	if err != nil {
		m.logger.Warn("rate limiter unavailable; allowing request", zap.String("key", key), zap.Error(err))
		return Decision{Allowed: true, Remaining: limit}
	}
	return decision
}

// fixedWindowScript increments the counter, starts the window on the first
// hit and returns the count with the remaining window in milliseconds.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`

// RedisFixedWindow counts hits per window in Redis so limits hold across
// instances.
type RedisFixedWindow struct {
	rdb    *redis.Client
	script *redis.Script
}

func NewRedisFixedWindow(rdb *redis.Client) *RedisFixedWindow {
	return &RedisFixedWindow{rdb: rdb, script: redis.NewScript(fixedWindowScript)}
}

func (s *RedisFixedWindow) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	res, err := s.script.Run(ctx, s.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	return decide(int(res[0]), limit, time.Duration(res[1])*time.Millisecond), nil
}

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryFixedWindow counts hits per window in process memory.
type MemoryFixedWindow struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
	now      func() time.Time
}

func NewMemoryFixedWindow() *MemoryFixedWindow {
	return &MemoryFixedWindow{counters: make(map[string]*windowCounter), now: time.Now}
}

func (s *MemoryFixedWindow) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		s.sweep(now)
		c = &windowCounter{resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return decide(c.count, limit, c.resetAt.Sub(now)), nil
}

// sweep drops expired windows. Called with mu held.
func (s *MemoryFixedWindow) sweep(now time.Time) {
	for key, c := range s.counters {
		if !now.Before(c.resetAt) {
			delete(s.counters, key)
		}
	}
}

func decide(count, limit int, ttl time.Duration) Decision {
	if count > limit {
		return Decision{Allowed: false, RetryAfter: ttl}
	}
	return Decision{Allowed: true, Remaining: limit - count}
}
