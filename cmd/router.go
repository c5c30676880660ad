package main

import (
	"net/http"

	"github.com/angeloszaimis/print-farm/internal/circuitbreaker"
	"github.com/angeloszaimis/print-farm/internal/handler"
	"github.com/angeloszaimis/print-farm/internal/metrics"
)

func setupRouter(labelHandler *handler.LabelHandler, metricsCollector *metrics.Collector, breakers *circuitbreaker.Registry) *http.ServeMux {
	var breakerStats metrics.BreakerStats
	if breakers != nil {
		breakerStats = breakers
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/labels", labelHandler.List)
	mux.HandleFunc("POST /api/labels/generate", labelHandler.Generate)
	mux.HandleFunc("GET /health", labelHandler.Health)
	mux.HandleFunc("GET /metrics", metricsCollector.Handler(breakerStats))

	return mux
}
