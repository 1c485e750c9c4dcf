package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

type RateLimiter struct {
	requests map[string]*clientWindow
	mu       sync.Mutex
}

type clientWindow struct {
	count    int
	lastSeen time.Time
}

const (
	// Students stream frames every couple of seconds, so the window has
	// to leave room for a full exam session plus dashboard polling.
	maxRequests    = 600
	windowDuration = time.Minute * 5
)

var limiter = &RateLimiter{
	requests: make(map[string]*clientWindow),
}

func (s *Server) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A valid API key bypasses rate limiting entirely
		apiKey := r.Header.Get("Authorization")
		if apiKey != "" && s.Keys.Validate(apiKey) {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := r.RemoteAddr

		limiter.mu.Lock()
		defer limiter.mu.Unlock()

		// Clean up old entries
		now := time.Now()
		for ip, win := range limiter.requests {
			if now.Sub(win.lastSeen) > windowDuration {
				delete(limiter.requests, ip)
			}
		}

		client, exists := limiter.requests[clientIP]
		if !exists {
			client = &clientWindow{lastSeen: now}
			limiter.requests[clientIP] = client
		}

		// Reset the window once it expires
		if now.Sub(client.lastSeen) > windowDuration {
			client.count = 0
			client.lastSeen = now
		}

		reset := time.Unix(client.lastSeen.Add(windowDuration).Unix(), 0).Format(time.RFC3339)

		if client.count >= maxRequests {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", reset)
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		client.count++
		client.lastSeen = now

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(maxRequests-client.count))
		w.Header().Set("X-RateLimit-Reset", reset)

		next.ServeHTTP(w, r)
	})
}
