package engine

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// generationLimiter enforces maxEventsPerHour as a token bucket refilled at
// n/3600 tokens per second with burst n. n <= 0 disables it.
type generationLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter // nil when disabled
}

func newGenerationLimiter(perHour int, now time.Time) *generationLimiter {
	l := &generationLimiter{}
	l.resize(perHour, now)
	return l
}

// resize applies a new hourly budget. Tokens already in the bucket carry over.
func (l *generationLimiter) resize(perHour int, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if perHour <= 0 {
		l.limiter = nil
		return
	}
	limit := rate.Limit(float64(perHour) / time.Hour.Seconds())
	if l.limiter == nil {
		l.limiter = rate.NewLimiter(limit, perHour)
		return
	}
	l.limiter.SetLimitAt(now, limit)
	l.limiter.SetBurstAt(now, perHour)
}

// take reserves one generation at now. release hands the token back when the
// generation fails after the reservation.
func (l *generationLimiter) take(now time.Time) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limiter == nil {
		return func() {}, true
	}
	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return nil, false
	}
	if r.DelayFrom(now) > 0 {
		r.CancelAt(now)
		return nil, false
	}
	return func() { r.CancelAt(now) }, true
}
