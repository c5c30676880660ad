package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/print-farm/config"
	"github.com/angeloszaimis/print-farm/internal/circuitbreaker"
	"github.com/angeloszaimis/print-farm/internal/generator"
	"github.com/angeloszaimis/print-farm/internal/handler"
	"github.com/angeloszaimis/print-farm/internal/healthcheck"
	"github.com/angeloszaimis/print-farm/internal/httpserver"
	"github.com/angeloszaimis/print-farm/internal/metrics"
	"github.com/angeloszaimis/print-farm/internal/printer"
	"github.com/angeloszaimis/print-farm/pkg/logger"
)

// writeSlack keeps the server write deadline past the generator timeout so a
// timed out forward still gets its 500 written.
const writeSlack = 5 * time.Second

type durations struct {
	generatorTimeout    time.Duration
	healthCheckInterval time.Duration
	breakerReset        time.Duration
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := parseDurations(cfg)
	if err != nil {
		log.Error("Invalid duration in config", slog.Any("err", err))
		os.Exit(1)
	}

	registry := printer.NewRegistry(cfg.Printer.SmallURL, cfg.Printer.MediumURL, cfg.Printer.LargeURL)
	for _, target := range registry.Targets() {
		log.Info("Printer target configured",
			slog.String("target", target.Name),
			slog.String("url", target.URL))
	}

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	breakers := initializeBreakers(cfg, registry, d.breakerReset)
	client := newGeneratorClient(d.generatorTimeout, log, breakers)

	if cfg.HealthCheck.Enabled {
		startHealthChecks(ctx, registry.Targets(), d.healthCheckInterval, log, collector)
	}

	labelHandler := handler.NewLabelHandler(log, registry, client, collector)
	router := setupRouter(labelHandler, collector, breakers)

	srv, err := httpserver.New(cfg.Server.Address,
		withMiddleware(router, log),
		httpserver.WithWriteTimeout(d.generatorTimeout+writeSlack),
	)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Print farm listening", slog.String("address", srv.Addr()))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting print farm", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func parseDurations(cfg *config.Config) (durations, error) {
	var (
		d   durations
		err error
	)

	if d.generatorTimeout, err = time.ParseDuration(cfg.Generator.Timeout); err != nil {
		return durations{}, err
	}
	if d.healthCheckInterval, err = time.ParseDuration(cfg.HealthCheck.Interval); err != nil {
		return durations{}, err
	}
	if d.breakerReset, err = time.ParseDuration(cfg.CircuitBreaker.ResetTimeout); err != nil {
		return durations{}, err
	}

	return d, nil
}

// initializeBreakers returns nil when breakers are disabled. Otherwise every
// configured target gets a breaker up front.
func initializeBreakers(cfg *config.Config, registry *printer.Registry, resetTimeout time.Duration) *circuitbreaker.Registry {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}

	breakers := circuitbreaker.NewRegistry(cfg.CircuitBreaker.Threshold, resetTimeout)
	for _, target := range registry.Targets() {
		breakers.Breaker(target.URL)
	}

	return breakers
}

func newGeneratorClient(timeout time.Duration, log *slog.Logger, breakers *circuitbreaker.Registry) *generator.Client {
	var opts []generator.Option
	if breakers != nil {
		opts = append(opts, generator.WithCircuitBreakers(breakers))
	}

	return generator.NewClient(timeout, log, opts...)
}

func startHealthChecks(ctx context.Context, targets []printer.Target, interval time.Duration, log *slog.Logger, collector *metrics.Collector) {
	report := func(target string, healthy bool) {
		collector.Emit(metrics.MetricEvent{
			Type:    metrics.EventHealthChanged,
			Target:  target,
			Healthy: healthy,
		})
	}

	for _, target := range targets {
		go healthcheck.HealthCheck(ctx, target, interval, log, report)
	}
}

func withMiddleware(next http.Handler, log *slog.Logger) http.Handler {
	return handler.RequestLogger(log)(handler.Recovery(log)(next))
}
