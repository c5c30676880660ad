package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/angeloszaimis/print-farm/internal/circuitbreaker"
)

// BreakerStats reports circuit breaker states keyed by generator base URL.
type BreakerStats interface {
	Stats() map[string]circuitbreaker.State
}

// Handler serves the current snapshot as JSON. breakers may be nil.
func (c *Collector) Handler(breakers BreakerStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.metrics.Snapshot()

		if breakers != nil {
			if stats := breakers.Stats(); len(stats) > 0 {
				snap.Breakers = make(map[string]string, len(stats))
				for baseURL, state := range stats {
					snap.Breakers[baseURL] = state.String()
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
