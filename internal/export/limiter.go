package export

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket per export destination
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing requestsPerSecond per destination
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until destination may be called or ctx is done
func (l *Limiter) Wait(ctx context.Context, destination string) error {
	return l.get(destination).Wait(ctx)
}

func (l *Limiter) get(destination string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[destination]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[destination]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[destination] = limiter
	return limiter
}
