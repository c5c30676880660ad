package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/print-farm/internal/printer"
)

const probeTimeout = 5 * time.Second

// Reporter is told about every change in a target's health, including the
// first observation.
type Reporter func(target string, healthy bool)

// HealthCheck probes the target's generator status endpoint (GET {base}/)
// immediately and then once per interval until ctx is cancelled. A 2xx answer
// is healthy. Results only feed report; forwarding never consults them.
func HealthCheck(
	ctx context.Context,
	target printer.Target,
	interval time.Duration,
	logger *slog.Logger,
	report Reporter,
) {
	client := &http.Client{
		Timeout: probeTimeout,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		known   bool
		healthy bool
	)

	check := func() {
		current := probe(ctx, client, target.URL)
		if known && current == healthy {
			return
		}

		known, healthy = true, current
		if healthy {
			logger.Info("Generator is up",
				slog.String("target", target.Name),
				slog.String("url", target.URL))
		} else {
			logger.Warn("Generator is down",
				slog.String("target", target.Name),
				slog.String("url", target.URL))
		}

		if report != nil {
			report(target.Name, healthy)
		}
	}

	check()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped",
				slog.String("target", target.Name))
			return

		case <-ticker.C:
			check()
		}
	}
}

func probe(ctx context.Context, client *http.Client, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/", nil)
	if err != nil {
		return false
	}

	res, err := client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return res.StatusCode >= 200 && res.StatusCode <= 299
}
