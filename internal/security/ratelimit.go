package security

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a fixed-window limiter keyed by client
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	rate    int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	remaining int
	startedAt time.Time
}

// NewRateLimiter allows rate requests per client in each period
func NewRateLimiter(rate int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*window),
		rate:    rate,
		period:  period,
		now:     time.Now,
	}
}

// Allow reports whether client may make another request and consumes one if so
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[client]
	if !ok || now.Sub(w.startedAt) >= rl.period {
		w = &window{remaining: rl.rate, startedAt: now}
		rl.clients[client] = w
	}
	if w.remaining <= 0 {
		return false
	}
	w.remaining--
	return true
}

// RunCleanup forgets idle clients every interval until ctx is done
func (rl *RateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for client, w := range rl.clients {
		if now.Sub(w.startedAt) > rl.period*2 {
			delete(rl.clients, client)
		}
	}
}

// ClientIP returns the originating client address of r. The first
// X-Forwarded-For hop wins, then X-Real-IP, then the connection address
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
