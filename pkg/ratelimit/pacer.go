// Package ratelimit paces requests against the Codacy API. The pacer keeps
// a minimum interval between requests and honors Retry-After hints on 429
// responses so a rate-limited run backs off instead of hammering the host.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request pacing.
var (
	pacerThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codacy_pacer_throttles_total",
		Help: "Total requests delayed by the pacer",
	})

	pacerHoldoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codacy_pacer_holdoff_seconds",
		Help:    "Pacer holdoff durations in seconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
	})
)

// DefaultMinInterval is the spacing between requests when none is given.
const DefaultMinInterval = 100 * time.Millisecond

// Pacer spaces out requests and converts server rate-limit hints into
// holdoffs. A single pacer is shared by all requests of one run.
type Pacer struct {
	mu          sync.Mutex
	minInterval time.Duration
	nextAllowed time.Time
	logger      zerolog.Logger
	now         func() time.Time
}

// NewPacer creates a pacer with the given minimum interval between
// requests. Zero or negative falls back to DefaultMinInterval.
func NewPacer(minInterval time.Duration, logger zerolog.Logger) *Pacer {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Pacer{
		minInterval: minInterval,
		logger:      logger,
		now:         time.Now,
	}
}

// Wait blocks until the next request is allowed or the context ends.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	delay := p.nextAllowed.Sub(p.now())
	p.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	pacerThrottlesTotal.Inc()
	pacerHoldoffSeconds.Observe(delay.Seconds())
	p.logger.Debug().Dur("delay", delay).Msg("Pacing request")

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ObserveResponse records a completed request. Every response arms the
// minimum interval; a 429 with a Retry-After header extends the holdoff to
// whatever the server asked for.
func (p *Pacer) ObserveResponse(statusCode int, headers http.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	holdoff := p.minInterval

	if statusCode == http.StatusTooManyRequests {
		if retryAfter, ok := parseRetryAfter(headers.Get("Retry-After"), now); ok && retryAfter > holdoff {
			holdoff = retryAfter
		}
		p.logger.Warn().
			Dur("holdoff", holdoff).
			Msg("Rate limited - holding off")
	}

	next := now.Add(holdoff)
	if next.After(p.nextAllowed) {
		p.nextAllowed = next
	}
}

// parseRetryAfter parses a Retry-After header value, either delay-seconds
// or an HTTP date. Reports false for absent, malformed or past values.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	if at, err := http.ParseTime(value); err == nil {
		delay := at.Sub(now)
		if delay <= 0 {
			return 0, false
		}
		return delay, true
	}

	return 0, false
}
