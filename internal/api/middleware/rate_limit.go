package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	apiContext "qrgen/internal/api/context"
	"qrgen/internal/pkg/errors"
	"qrgen/internal/platform/config"
)

const (
	LimitGenerate = "generate"
	LimitAPI      = "api"
)

type RateLimiter struct {
	store  *sync.Map // map[string]*Bucket
	limits map[string]int
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

type Bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
	// We need to know when it was last accessed to clean it up
	lastAccess time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		store: &sync.Map{},
		limits: map[string]int{
			LimitGenerate: cfg.GeneratePerMinute,
			LimitAPI:      cfg.APIPerMinute,
		},
		now:  time.Now,
		stop: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the background cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup(10 * time.Minute)
		}
	}
}

func (rl *RateLimiter) cleanup(idle time.Duration) {
	now := rl.now()
	rl.store.Range(func(key, value interface{}) bool {
		bucket := value.(*Bucket)
		bucket.mu.Lock()
		if now.Sub(bucket.lastAccess) > idle {
			rl.store.Delete(key)
		}
		bucket.mu.Unlock()
		return true
	})
}

func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := rl.now()

	val, _ := rl.store.LoadOrStore(key, &Bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	bucket := val.(*Bucket)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.lastAccess = now

	// Rate is limit / 60 seconds
	elapsed := now.Sub(bucket.lastRefill)
	refillRate := float64(limit) / 60.0
	refillTokens := int(elapsed.Seconds() * refillRate)

	if refillTokens > 0 {
		if bucket.tokens+refillTokens > limit {
			bucket.tokens = limit
		} else {
			bucket.tokens += refillTokens
		}
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// Limit rejects requests over the per-minute budget for limitType. Requests
// from an established session are keyed by session; requests whose session
// was issued by this very request are keyed by client IP, so dropping the
// cookie does not reset the budget. A non-positive budget disables limiting.
func (rl *RateLimiter) Limit(limitType string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			limit := rl.limits[limitType]
			if limit <= 0 {
				next(w, r)
				return
			}

			if !rl.Allow(limitKey(r, limitType), limit) {
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}

			next(w, r)
		}
	}
}

func limitKey(r *http.Request, limitType string) string {
	id, _ := r.Context().Value(apiContext.SessionID).(string)
	issued, _ := r.Context().Value(apiContext.SessionIssued).(bool)
	if id != "" && !issued {
		return fmt.Sprintf("session:%s:%s", id, limitType)
	}
	return fmt.Sprintf("ip:%s:%s", clientIP(r), limitType)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
