// Package ratelimit throttles credential endpoints with fixed-window counters.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter reports whether another request for key fits into the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// ClientIP returns the host part of RemoteAddr. Forwarding headers are
// ignored here; behind a trusted proxy the router rewrites RemoteAddr first.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type bucket struct {
	count int
	reset time.Time
}

// MemoryLimiter keeps counters in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*bucket
	rate    int
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

func NewMemoryLimiter(rate int, window time.Duration) *MemoryLimiter {
	m := &MemoryLimiter{
		entries: make(map[string]*bucket),
		rate:    rate,
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.cleanup()
	return m
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || !now.Before(e.reset) {
		m.entries[key] = &bucket{count: 1, reset: now.Add(m.window)}
		return m.rate >= 1, nil
	}

	if e.count >= m.rate {
		return false, nil
	}
	e.count++
	return true, nil
}

// Close stops the cleanup goroutine.
func (m *MemoryLimiter) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

func (m *MemoryLimiter) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.entries {
		if !now.Before(e.reset) {
			delete(m.entries, key)
		}
	}
}
