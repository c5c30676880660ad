package circuitbreaker

import (
	"sync"
	"time"
)

// Registry hands out one breaker per generator base URL.
type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*CircuitBreaker
	threshold int
	timeout   time.Duration
	now       func() time.Time
}

func NewRegistry(threshold int, timeout time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Breaker returns the breaker for baseURL, creating it on first use.
func (r *Registry) Breaker(baseURL string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[baseURL]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if cb, exists = r.breakers[baseURL]; exists {
		return cb
	}

	cb = newCircuitBreaker(r.threshold, r.timeout, r.now)
	r.breakers[baseURL] = cb
	return cb
}

// Lookup returns the breaker for baseURL if one was created with Breaker.
func (r *Registry) Lookup(baseURL string) (*CircuitBreaker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cb, ok := r.breakers[baseURL]
	return cb, ok
}

// Stats returns the current state of every breaker, keyed by base URL. A nil
// registry reports nothing.
func (r *Registry) Stats() map[string]State {
	if r == nil {
		return nil
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for baseURL, cb := range r.breakers {
		stats[baseURL] = cb.State()
	}
	return stats
}
