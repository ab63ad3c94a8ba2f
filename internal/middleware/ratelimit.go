package middleware

import (
	"net/http"
	"sync"
	"time"
)

type clientWindow struct {
	count       int
	windowStart time.Time
}

// RateLimiter is a fixed-window per-IP limiter for the auth endpoints.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
	}

	// Cleanup goroutine
	go func() {
		for {
			time.Sleep(window)
			rl.mu.Lock()
			for ip, c := range rl.clients {
				if time.Since(c.windowStart) > window {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr

		rl.mu.Lock()
		c, exists := rl.clients[ip]
		if !exists || time.Since(c.windowStart) > rl.window {
			rl.clients[ip] = &clientWindow{count: 1, windowStart: time.Now()}
			rl.mu.Unlock()
			next.ServeHTTP(w, r)
			return
		}

		c.count++
		count := c.count
		rl.mu.Unlock()

		if count > rl.limit {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
