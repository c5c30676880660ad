package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/print-farm/internal/label"
)

const (
	msgInvalidBody   = "Invalid request body"
	msgMissingTarget = "No printer URL configured for target"
	msgRemoteError   = "Remote service error"
	msgUnreachable   = "Failed to reach generator service"
	msgInternal      = "Internal server error"
)

type missingTargetResponse struct {
	Error  string `json:"error"`
	Target string `json:"target"`
}

type remoteErrorResponse struct {
	Error  string          `json:"error"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type detailedErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

type dryRunResponse struct {
	OK      bool                   `json:"ok"`
	DryRun  bool                   `json:"dryRun"`
	Target  string                 `json:"target"`
	URL     string                 `json:"url"`
	Payload label.GeneratorPayload `json:"payload"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", slog.String("error", err.Error()))
	}
}

// writeRawJSON writes body, which must already be valid JSON, unchanged.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write JSON response", slog.String("error", err.Error()))
	}
}
