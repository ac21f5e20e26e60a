package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DeviceRateLimit limita por device_id (query) o, si no viene, por IP.
type DeviceRateLimit struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*limiterEntry
	now      func() time.Time
	idleTTL  time.Duration
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewDeviceRateLimit(perSec float64, burst int) *DeviceRateLimit {
	if burst <= 0 {
		burst = 1
	}
	return &DeviceRateLimit{
		limit:    rate.Limit(perSec),
		burst:    burst,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
		idleTTL:  10 * time.Minute,
	}
}

func (d *DeviceRateLimit) Handler(next http.Handler) http.Handler {
	// perSec <= 0 desactiva el límite.
	if d == nil || d.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !d.allow(rateKey(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (d *DeviceRateLimit) allow(key string) bool {
	now := d.now()

	d.mu.Lock()
	e, ok := d.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(d.limit, d.burst)}
		d.limiters[key] = e
	}
	e.lastSeen = now
	d.evictLocked(now)
	d.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

func (d *DeviceRateLimit) evictLocked(now time.Time) {
	if len(d.limiters) < 1024 {
		return
	}
	for k, e := range d.limiters {
		if now.Sub(e.lastSeen) > d.idleTTL {
			delete(d.limiters, k)
		}
	}
}

func rateKey(r *http.Request) string {
	if id := strings.TrimSpace(r.URL.Query().Get("device_id")); id != "" {
		return "device:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
