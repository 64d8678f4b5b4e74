package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter is a sliding window limiter keyed by client IP.
type RateLimiter struct {
	rate      int
	interval  time.Duration
	ips       map[string][]time.Time
	lastSweep time.Time
	mu        sync.Mutex
}

func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		rate:     rate,
		interval: interval,
		ips:      make(map[string][]time.Time),
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  false,
				"message": "Too many requests",
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.interval)
	if now.Sub(rl.lastSweep) >= rl.interval {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	valid := rl.ips[ip][:0]
	for _, t := range rl.ips[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.rate {
		rl.ips[ip] = valid
		return false
	}
	rl.ips[ip] = append(valid, now)
	return true
}

// sweep forgets clients with no request inside the window.
func (rl *RateLimiter) sweep(cutoff time.Time) {
	for ip, hits := range rl.ips {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(rl.ips, ip)
		}
	}
}

// NewStrictRateLimiter gives every client IP its own token bucket. Used on
// login and registration endpoints.
func NewStrictRateLimiter(every time.Duration, burst int) gin.HandlerFunc {
	sl := newStrictLimiter(every, burst)
	return func(c *gin.Context) {
		if !sl.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  false,
				"message": "Too many attempts, please wait a moment",
			})
			return
		}
		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type strictLimiter struct {
	every     time.Duration
	burst     int
	idle      time.Duration
	visitors  map[string]*visitor
	lastSweep time.Time
	mu        sync.Mutex
}

// A bucket left alone for idle is full again, so dropping it loses nothing.
func newStrictLimiter(every time.Duration, burst int) *strictLimiter {
	return &strictLimiter{
		every:    every,
		burst:    burst,
		idle:     every * time.Duration(burst),
		visitors: make(map[string]*visitor),
	}
}

func (sl *strictLimiter) allow(ip string, now time.Time) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if now.Sub(sl.lastSweep) >= sl.idle {
		for key, v := range sl.visitors {
			if now.Sub(v.lastSeen) >= sl.idle {
				delete(sl.visitors, key)
			}
		}
		sl.lastSweep = now
	}

	v, ok := sl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(sl.every), sl.burst)}
		sl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}
