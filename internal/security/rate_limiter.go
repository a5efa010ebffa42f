package security

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/leslieo2/go-hello/internal/config"
	"github.com/leslieo2/go-hello/internal/constants"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type RateLimiter struct {
	limiters *cache.Cache
	config   *config.RateLimitConfig
	clock    Clock

	stop     chan struct{}
	stopOnce sync.Once
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type RateLimitStatus struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	Reset      time.Time     `json:"reset"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	rl := newRateLimiter(cfg, RealClock{})

	if cfg.Enabled {
		maxCacheSize := cfg.MaxCacheSize
		if maxCacheSize == 0 {
			maxCacheSize = constants.RateLimitMaxCacheSize
		}
		go rl.periodicCleanup(maxCacheSize)
	}

	return rl
}

func newRateLimiter(cfg *config.RateLimitConfig, clock Clock) *RateLimiter {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = constants.RateLimitCleanupInterval
	}

	return &RateLimiter{
		limiters: cache.New(cfg.CleanupInterval, cfg.CleanupInterval*2),
		config:   cfg,
		clock:    clock,
		stop:     make(chan struct{}),
	}
}

// Close stops the background cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// periodicCleanup keeps the number of tracked clients under maxSize
func (rl *RateLimiter) periodicCleanup(maxSize int) {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evict(maxSize)
		}
	}
}

func (rl *RateLimiter) evict(maxSize int) {
	currentSize := rl.limiters.ItemCount()
	if currentSize <= maxSize {
		return
	}

	// Remove an extra 10% to avoid evicting on every tick
	toRemove := currentSize - maxSize + maxSize/10

	// go-cache keeps no access times; map iteration order is random enough
	removed := 0
	for key := range rl.limiters.Items() {
		if removed >= toRemove {
			break
		}
		rl.limiters.Delete(key)
		removed++
	}
}

// Allow consumes one token for identifier and reports the resulting status
func (rl *RateLimiter) Allow(identifier string, limit *config.RateLimit) (bool, *RateLimitStatus) {
	now := rl.clock.Now()

	if !rl.config.Enabled {
		return true, &RateLimitStatus{
			Limit:     limit.BurstSize,
			Remaining: limit.BurstSize,
			Reset:     now,
		}
	}

	limiter := rl.limiterFor(identifier, limit)
	allowed := limiter.AllowN(now, 1)

	tokens := limiter.TokensAt(now)
	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	perSecond := float64(limit.RequestsPerSecond)
	status := &RateLimitStatus{
		Limit:     limit.BurstSize,
		Remaining: remaining,
		Reset:     now.Add(secondsToDuration((float64(limit.BurstSize) - tokens) / perSecond)),
	}

	if !allowed {
		retryAfter := secondsToDuration((1 - tokens) / perSecond)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		status.RetryAfter = retryAfter
	}

	return allowed, status
}

func (rl *RateLimiter) limiterFor(identifier string, limit *config.RateLimit) *rate.Limiter {
	if item, found := rl.limiters.Get(identifier); found {
		return item.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rate.Limit(limit.RequestsPerSecond), limit.BurstSize)
	if err := rl.limiters.Add(identifier, limiter, cache.DefaultExpiration); err != nil {
		// Another request stored one first; share it.
		if item, found := rl.limiters.Get(identifier); found {
			return item.(*rate.Limiter)
		}
		rl.limiters.Set(identifier, limiter, cache.DefaultExpiration)
	}
	return limiter
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(seconds)) * time.Second
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.config.Enabled || rl.shouldSkipRateLimit(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		identifier := rl.getIdentifier(r)
		limit := rl.getRateLimit()

		allowed, status := rl.Allow(identifier, limit)

		w.Header().Set(constants.HeaderXRateLimitLimit, strconv.Itoa(status.Limit))
		w.Header().Set(constants.HeaderXRateLimitRemaining, strconv.Itoa(status.Remaining))
		w.Header().Set(constants.HeaderXRateLimitReset, strconv.FormatInt(status.Reset.Unix(), 10))

		if !allowed {
			w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(int(status.RetryAfter.Seconds())))
			w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
			w.WriteHeader(http.StatusTooManyRequests)

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error":       fmt.Sprintf("Rate limit exceeded. Try again in %v", status.RetryAfter),
				"code":        constants.ErrorCodeRateLimitExceeded,
				"retry_after": int(status.RetryAfter.Seconds()),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) getIdentifier(r *http.Request) string {
	if rl.config.Strategy == constants.RateLimitStrategyGlobal {
		return "global"
	}
	return "ip:" + rl.getClientIP(r)
}

func (rl *RateLimiter) getClientIP(r *http.Request) string {
	if xff := r.Header.Get(constants.HeaderXForwardedFor); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get(constants.HeaderXRealIP); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) getRateLimit() *config.RateLimit {
	if rl.config.Strategy != constants.RateLimitStrategyGlobal && rl.config.ByIP != nil {
		return rl.config.ByIP
	}
	return rl.config.Global
}

func (rl *RateLimiter) shouldSkipRateLimit(path string) bool {
	switch path {
	case constants.PathHealth, constants.PathReady, constants.PathMetrics:
		return true
	}
	return false
}
