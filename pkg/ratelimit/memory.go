package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a per-key token bucket. Each key may spend limit tokens at once
// and regains them evenly over window.
type Memory struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	every    rate.Limit
	ttl      time.Duration
	now      func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemory creates a limiter and starts evicting keys idle for longer
// than two windows.
func NewMemory(limit int, window time.Duration) *Memory {
	m := newMemory(limit, window, time.Now)
	go m.sweep()
	return m
}

func newMemory(limit int, window time.Duration, now func() time.Time) *Memory {
	if window <= 0 {
		window = time.Minute
	}
	return &Memory{
		visitors: make(map[string]*visitor),
		limit:    limit,
		every:    rate.Every(window / time.Duration(max(limit, 1))),
		ttl:      2 * window,
		now:      now,
		stop:     make(chan struct{}),
	}
}

// Allow implements Limiter. A non-positive limit disables limiting.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	if m.limit <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := m.now()

	m.mu.Lock()
	v, ok := m.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.every, m.limit)}
		m.visitors[key] = v
	}
	v.lastSeen = now
	m.mu.Unlock()

	res := v.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Decision{Limit: m.limit, RetryAfter: delay}, nil
	}

	return Decision{
		Allowed:   true,
		Limit:     m.limit,
		Remaining: int(v.limiter.TokensAt(now)),
	}, nil
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) evictIdle() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.visitors {
		if now.Sub(v.lastSeen) > m.ttl {
			delete(m.visitors, k)
		}
	}
}

func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}

// Close stops the eviction loop.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}
