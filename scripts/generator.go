//go:build ignore

// Generator is a stand-in for the label generator service used when running
// the print farm locally. It provides POST /generate and GET / endpoints.
//
// Usage:
//
//	go run scripts/generator.go -port 3001
//	go run scripts/generator.go -port 3002 -fail-rate 0.2 -delay 250ms
//
// Every generate call is logged and answered with a JSON document naming a
// fake PDF file.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	mrand "math/rand/v2"
	"net/http"
	"time"
)

// newJobID returns 8 random bytes hex encoded.
func newJobID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}

// GeneratePayload mirrors what the print farm forwards.
type GeneratePayload struct {
	Template  string         `json:"template"`
	Data      map[string]any `json:"data"`
	LabelSize string         `json:"labelSize"`
	Copies    int            `json:"copies"`
	Print     bool           `json:"print"`
}

// GenerateResult is returned for every accepted payload.
type GenerateResult struct {
	OK        bool   `json:"ok"`
	File      string `json:"file"`
	Template  string `json:"template"`
	LabelSize string `json:"labelSize"`
	Copies    int    `json:"copies"`
	Printed   bool   `json:"printed"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func main() {
	port := flag.Int("port", 3001, "port to listen on")
	failRate := flag.Float64("fail-rate", 0, "fraction of generate calls answered with 500")
	delay := flag.Duration("delay", 0, "artificial latency added to each generate call")
	plain := flag.Bool("plain", false, "answer generate calls with plain text instead of JSON")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
			return
		}
		log.Printf("request: method=%s path=%s from=%s body=%s", r.Method, r.URL.Path, r.RemoteAddr, string(body))

		if *delay > 0 {
			time.Sleep(*delay)
		}

		if *failRate > 0 && mrand.Float64() < *failRate {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "printer jammed"})
			return
		}

		var payload GeneratePayload
		if err := json.Unmarshal(body, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}

		file := fmt.Sprintf("label-%s-%s.pdf", payload.LabelSize, newJobID())

		if *plain {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("generated " + file))
			return
		}

		writeJSON(w, http.StatusOK, GenerateResult{
			OK:        true,
			File:      file,
			Template:  payload.Template,
			LabelSize: payload.LabelSize,
			Copies:    payload.Copies,
			Printed:   payload.Print,
		})
	})

	// status endpoint probed by the print farm health checker
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "running", "service": "label-generator"})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting generator on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
