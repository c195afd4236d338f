package security

import (
	"log/slog"
	"sync"
	"time"
)

// Endpoint classes for rate limiting. Uploads are the most expensive
// operation and get the tightest budget.
const (
	EndpointUpload   = "upload"
	EndpointDownload = "download"
	EndpointCleanup  = "cleanup"
	EndpointSecurity = "security"
	EndpointDefault  = "default"
)

// requestsPerMinute maps endpoint classes to their per-IP budget over a
// one-minute sliding window.
var requestsPerMinute = map[string]int{
	EndpointUpload:   10,
	EndpointDownload: 20,
	EndpointCleanup:  30,
	EndpointSecurity: 5,
	EndpointDefault:  30,
}

const (
	rateWindow    = time.Minute
	blockDuration = 5 * time.Minute
	// A client that keeps hammering after hitting its limit gets blocked
	// outright once it racks up this many rejections inside one window.
	aggressiveThreshold = 10
)

type clientRecord struct {
	hits         map[string][]time.Time
	rejections   []time.Time
	blockedUntil time.Time
}

// RateLimiter enforces per-IP sliding-window limits with per-endpoint
// budgets. Clients that keep pushing after being limited are blocked for a
// cooling-off period.
type RateLimiter struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientRecord
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateClock overrides the limiter's time source.
func WithRateClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) { l.now = now }
}

// NewRateLimiter builds a limiter with the standard endpoint budgets.
func NewRateLimiter(logger *slog.Logger, opts ...RateLimiterOption) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	l := &RateLimiter{
		logger:  logger,
		now:     time.Now,
		clients: map[string]*clientRecord{},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allow records one request from ip against the endpoint class and reports
// whether it may proceed. When denied, retryAfter says how long the client
// should back off.
func (l *RateLimiter) Allow(ip, endpoint string) (allowed bool, retryAfter time.Duration) {
	limit, ok := requestsPerMinute[endpoint]
	if !ok {
		limit = requestsPerMinute[EndpointDefault]
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.clients[ip]
	if rec == nil {
		rec = &clientRecord{hits: map[string][]time.Time{}}
		l.clients[ip] = rec
	}

	if now.Before(rec.blockedUntil) {
		return false, rec.blockedUntil.Sub(now)
	}

	cutoff := now.Add(-rateWindow)
	hits := pruneTimes(rec.hits[endpoint], cutoff)

	if len(hits) >= limit {
		rec.hits[endpoint] = hits
		rec.rejections = append(pruneTimes(rec.rejections, cutoff), now)
		if len(rec.rejections) >= aggressiveThreshold {
			rec.blockedUntil = now.Add(blockDuration)
			rec.rejections = nil
			l.logger.Warn("ratelimit.block", "ip", ip, "duration", blockDuration)
			return false, blockDuration
		}
		return false, hits[0].Add(rateWindow).Sub(now)
	}

	rec.hits[endpoint] = append(hits, now)
	return true, 0
}

// IsBlocked reports whether the ip is currently serving a block.
func (l *RateLimiter) IsBlocked(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.clients[ip]
	return rec != nil && l.now().Before(rec.blockedUntil)
}

// Prune drops clients with no activity inside the current window, bounding
// memory on long-running gateways.
func (l *RateLimiter) Prune() {
	now := l.now()
	cutoff := now.Add(-rateWindow)

	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, rec := range l.clients {
		if now.Before(rec.blockedUntil) {
			continue
		}
		active := false
		for endpoint, hits := range rec.hits {
			hits = pruneTimes(hits, cutoff)
			rec.hits[endpoint] = hits
			if len(hits) > 0 {
				active = true
			}
		}
		if !active {
			delete(l.clients, ip)
		}
	}
}

func pruneTimes(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}
