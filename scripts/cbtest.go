//go:build ignore

// cbtest verifies the print farm's circuit breaker by killing a local stub
// generator and watching forwards switch from connection errors to fast
// failures.
//
// Usage:
//
//	CIRCUIT_BREAKER_ENABLED=true PRINTER_SMALL_URL=http://localhost:3001 go run ./cmd
//	go run scripts/cbtest.go -farm http://localhost:8080 -target small -generator-port 3001
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

type outcome struct {
	status  int
	details string
	elapsed time.Duration
}

func main() {
	var (
		farmURL       = flag.String("farm", "http://localhost:8080", "Print farm URL")
		target        = flag.String("target", "small", "Printer target whose generator gets killed")
		generatorPort = flag.Int("generator-port", 3001, "Port of the stub generator to kill")
		requests      = flag.Int("requests", 10, "Requests per phase")
		skipKill      = flag.Bool("skip-kill", false, "Skip killing the generator")
	)
	flag.Parse()

	client := &http.Client{Timeout: 35 * time.Second}

	fmt.Println(colorCyan + "━━━ PRINT FARM CIRCUIT BREAKER TEST ━━━" + colorReset)
	fmt.Println()

	fmt.Println(colorBlue + "PHASE 1: Normal forwarding" + colorReset)
	ok := 0
	for i := 0; i < *requests; i++ {
		out, err := generate(client, *farmURL, *target)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		if out.status == http.StatusOK {
			ok++
		} else {
			fmt.Printf(colorYellow+"  Request %d: status=%d details=%s\n"+colorReset, i+1, out.status, out.details)
		}
	}
	if ok == 0 {
		fmt.Println(colorRed + "  ✗ No label was generated. Are the print farm and generator running?" + colorReset)
		os.Exit(1)
	}
	fmt.Printf(colorGreen+"  ✓ %d/%d forwarded\n"+colorReset, ok, *requests)
	fmt.Println()

	if !*skipKill {
		fmt.Println(colorBlue + "PHASE 2: Generator failure" + colorReset)
		if err := killGenerator(*generatorPort); err != nil {
			fmt.Printf(colorYellow+"  Warning: could not kill generator: %v\n"+colorReset, err)
		} else {
			fmt.Printf(colorGreen+"  ✓ Generator on port %d killed\n"+colorReset, *generatorPort)
		}
		time.Sleep(500 * time.Millisecond)

		fastFails := 0
		for i := 0; i < *requests; i++ {
			out, err := generate(client, *farmURL, *target)
			if err != nil {
				fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
				continue
			}
			marker := ""
			if strings.Contains(out.details, "circuit breaker open") {
				fastFails++
				marker = " (breaker open)"
			}
			fmt.Printf("  Request %d: status=%d took=%v%s\n", i+1, out.status, out.elapsed, marker)
		}

		if fastFails > 0 {
			fmt.Printf(colorGreen+"  ✓ %d requests failed fast\n"+colorReset, fastFails)
		} else {
			fmt.Println(colorYellow + "  ⚠ Breaker never opened. Is CIRCUIT_BREAKER_ENABLED set?" + colorReset)
		}
		fmt.Println()
	}

	fmt.Println(colorBlue + "PHASE 3: /metrics" + colorReset)
	snap, err := getMetrics(client, *farmURL+"/metrics")
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch metrics: %v\n"+colorReset, err)
		return
	}
	if breakers, ok := snap["breakers"].(map[string]any); ok {
		for url, state := range breakers {
			fmt.Printf("    %s → %v\n", url, state)
		}
	} else {
		fmt.Println("    no breakers reported")
	}
	if targets, ok := snap["targets"].(map[string]any); ok {
		if ts, ok := targets[*target].(map[string]any); ok {
			fmt.Printf("    %s → forwarded=%v unreachable=%v\n", *target, ts["forwarded"], ts["unreachable"])
		}
	}
}

func generate(client *http.Client, farmURL, target string) (outcome, error) {
	body := fmt.Sprintf(`{"target":%q,"data":{"title":"breaker test"}}`, target)

	start := time.Now()
	resp, err := client.Post(farmURL+"/api/labels/generate", "application/json", strings.NewReader(body))
	if err != nil {
		return outcome{}, err
	}
	defer resp.Body.Close()

	var decoded struct {
		Details string `json:"details"`
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &decoded)

	return outcome{status: resp.StatusCode, details: decoded.Details, elapsed: time.Since(start)}, nil
}

func killGenerator(port int) error {
	output, err := exec.Command("lsof", "-ti", fmt.Sprintf(":%d", port)).Output()
	if err != nil {
		return fmt.Errorf("no process found on port %d", port)
	}

	pid := strings.TrimSpace(string(output))
	if pid == "" {
		return fmt.Errorf("no process found on port %d", port)
	}

	return exec.Command("kill", pid).Run()
}

func getMetrics(client *http.Client, url string) (map[string]any, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var snap map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, err
	}
	return snap, nil
}
