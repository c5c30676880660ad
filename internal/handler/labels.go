package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/print-farm/internal/generator"
	"github.com/angeloszaimis/print-farm/internal/label"
	"github.com/angeloszaimis/print-farm/internal/metrics"
	"github.com/angeloszaimis/print-farm/internal/printer"
)

const maxRequestBody = 1 << 20

// Resolver maps a request target to a generator base URL.
type Resolver interface {
	Resolve(target, override string) (string, error)
}

// Generator performs the remote generate call.
type Generator interface {
	Generate(ctx context.Context, baseURL string, payload label.GeneratorPayload) (*generator.Result, error)
}

type LabelHandler struct {
	logger    *slog.Logger
	resolver  Resolver
	generator Generator
	collector *metrics.Collector
}

// NewLabelHandler wires the label endpoints. collector may be nil.
func NewLabelHandler(logger *slog.Logger, resolver Resolver, gen Generator, collector *metrics.Collector) *LabelHandler {
	return &LabelHandler{
		logger:    logger,
		resolver:  resolver,
		generator: gen,
		collector: collector,
	}
}

var endpointIndex = map[string]any{
	"message": "Print Farm API",
	"endpoints": map[string]string{
		"GET /api/labels":           "This document",
		"POST /api/labels/generate": "Proxy to the remote generator to create a label PDF; set print to also print it",
		"GET /health":               "Liveness probe",
		"GET /metrics":              "Per-target forwarding metrics",
	},
}

// List serves the static endpoint index.
func (h *LabelHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, endpointIndex)
}

// Health reports process liveness.
func (h *LabelHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Generate normalizes the request, resolves its target and either returns the
// would-be call (dry run) or forwards it once and relays the outcome.
func (h *LabelHandler) Generate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		h.logger.Warn("Failed to read request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, detailedErrorResponse{
			Error:   msgInvalidBody,
			Details: readErrorDetails(err),
		})
		return
	}

	req, err := label.Decode(body)
	if err != nil {
		h.logger.Warn("Rejected label request", slog.String("error", err.Error()))
		var invalid *label.InvalidBodyError
		details := err.Error()
		if errors.As(err, &invalid) {
			details = invalid.Reason
		}
		writeJSON(w, http.StatusBadRequest, detailedErrorResponse{Error: msgInvalidBody, Details: details})
		return
	}

	metricTarget := metricsTarget(req.Target)
	h.collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Target: metricTarget})

	baseURL, err := h.resolver.Resolve(req.Target, req.URL)
	if err != nil {
		h.logger.Warn("No printer URL configured for target",
			slog.String("target", req.Target),
			slog.String("error", err.Error()))
		h.collector.Emit(metrics.MetricEvent{Type: metrics.EventMissingTarget, Target: metricTarget})
		writeJSON(w, http.StatusBadRequest, missingTargetResponse{Error: msgMissingTarget, Target: req.Target})
		return
	}

	payload := req.Payload()
	endpoint := generator.Endpoint(baseURL)

	if req.DryRun {
		h.logger.Info("Dry run, not forwarding",
			slog.String("target", req.Target),
			slog.String("url", endpoint))
		h.collector.Emit(metrics.MetricEvent{Type: metrics.EventDryRun, Target: metricTarget})
		writeJSON(w, http.StatusOK, dryRunResponse{
			OK:      true,
			DryRun:  true,
			Target:  req.Target,
			URL:     endpoint,
			Payload: payload,
		})
		return
	}

	h.logger.Info("Forwarding to generator",
		slog.String("target", req.Target),
		slog.String("url", endpoint),
		slog.String("template", payload.Template),
		slog.String("label_size", payload.LabelSize),
		slog.Int("copies", payload.Copies),
		slog.Bool("print", payload.Print))

	start := time.Now()
	result, err := h.generator.Generate(r.Context(), baseURL, payload)
	duration := time.Since(start)

	if err != nil {
		h.writeForwardError(w, req.Target, metricTarget, endpoint, duration, err)
		return
	}

	h.collector.Emit(metrics.MetricEvent{
		Type:       metrics.EventForwardCompleted,
		Target:     metricTarget,
		Duration:   duration,
		StatusCode: result.StatusCode,
	})

	h.logger.Info("Generator succeeded",
		slog.String("target", req.Target),
		slog.Int("status", result.StatusCode),
		slog.Duration("duration", duration))

	writeRawJSON(w, http.StatusOK, result.Body)
}

func (h *LabelHandler) writeForwardError(w http.ResponseWriter, target, metricTarget, endpoint string, duration time.Duration, err error) {
	var remoteErr *generator.RemoteError
	if errors.As(err, &remoteErr) {
		h.logger.Warn("Generator returned an error status",
			slog.String("target", target),
			slog.String("url", endpoint),
			slog.Int("status", remoteErr.StatusCode))
		h.collector.Emit(metrics.MetricEvent{
			Type:       metrics.EventForwardCompleted,
			Target:     metricTarget,
			Duration:   duration,
			StatusCode: remoteErr.StatusCode,
		})
		writeJSON(w, http.StatusBadGateway, remoteErrorResponse{
			Error:  msgRemoteError,
			Status: remoteErr.StatusCode,
			Body:   remoteErr.Body,
		})
		return
	}

	h.logger.Error("Failed to reach generator",
		slog.String("target", target),
		slog.String("url", endpoint),
		slog.String("error", err.Error()))
	h.collector.Emit(metrics.MetricEvent{
		Type:     metrics.EventForwardFailed,
		Target:   metricTarget,
		Duration: duration,
	})
	writeJSON(w, http.StatusInternalServerError, detailedErrorResponse{
		Error:   msgUnreachable,
		Details: err.Error(),
	})
}

// metricsTarget folds unrecognized target names into one series so that
// untrusted input cannot grow the metrics map.
func metricsTarget(target string) string {
	if printer.IsKnown(target) {
		return target
	}
	return "unknown"
}

func readErrorDetails(err error) string {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return "request body too large"
	}
	return err.Error()
}
