//go:build ignore

// Loadtest drives concurrent label requests through the print farm and reports
// throughput, latency percentiles and outcome counts per printer target.
//
// Usage:
//
//	go run scripts/loadtest.go -url http://localhost:8080/api/labels/generate -concurrency 10 -requests 1000
//	go run scripts/loadtest.go -targets small,large -dry-run -csv results.csv -out summary.json
//
// Requests are spread round-robin over the -targets list.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// TargetStats tracks outcomes for one printer target.
type TargetStats struct {
	Count     int32
	Success   int32
	Failure   int32
	Latencies []time.Duration
}

// TargetSummary is the JSON form of TargetStats.
type TargetSummary struct {
	Total   int32   `json:"total"`
	Success int32   `json:"success"`
	Failure int32   `json:"failure"`
	P50     float64 `json:"p50_ms"`
	P90     float64 `json:"p90_ms"`
	P95     float64 `json:"p95_ms"`
	P99     float64 `json:"p99_ms"`
}

func sorted(latencies []time.Duration) []time.Duration {
	tmp := make([]time.Duration, len(latencies))
	copy(tmp, latencies)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })
	return tmp
}

func pick(tmp []time.Duration, p float64) time.Duration {
	if len(tmp) == 0 {
		return 0
	}
	return tmp[int(float64(len(tmp)-1)*p)]
}

func requestBody(target, template, labelSize string, copies int, dryRun, printLabels bool, idx int) []byte {
	b, _ := json.Marshal(map[string]any{
		"target":    target,
		"template":  template,
		"labelSize": labelSize,
		"copies":    copies,
		"dryRun":    dryRun,
		"print":     printLabels,
		"data": map[string]any{
			"title": fmt.Sprintf("Load test label %d", idx),
		},
	})
	return b
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/api/labels/generate", "Print farm generate URL")
		targetList  = flag.String("targets", "small", "Comma separated printer targets to rotate through")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		template    = flag.String("template", "simple", "Label template")
		labelSize   = flag.String("label-size", "2x4", "Label size")
		copies      = flag.Int("copies", 1, "Copies per request")
		dryRun      = flag.Bool("dry-run", false, "Ask the print farm not to forward")
		printLabels = flag.Bool("print", false, "Ask the generator to print")
		timeout     = flag.Duration("timeout", 35*time.Second, "Per-request timeout")
	)

	outJSON := flag.String("out", "", "Write JSON summary to this file (optional)")
	outCSV := flag.String("csv", "", "Write per-request CSV to this file (optional)")
	verbose := flag.Bool("v", false, "Verbose per-request logging to stdout")
	flag.Parse()

	targets := strings.Split(*targetList, ",")
	client := &http.Client{Timeout: *timeout}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var total, success, failure int32

	targetStats := make(map[string]*TargetStats, len(targets))
	for _, t := range targets {
		targetStats[t] = &TargetStats{}
	}
	var statsMu sync.Mutex

	statusCodes := make(map[int]int32)
	var statusMu sync.Mutex

	var csvFile *os.File
	var csvWriter *csv.Writer
	var csvMu sync.Mutex
	if *outCSV != "" {
		f, err := os.Create(*outCSV)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create csv file: %v\n", err)
			os.Exit(1)
		}
		csvFile = f
		csvWriter = csv.NewWriter(f)
		csvWriter.Write([]string{"idx", "timestamp", "target", "status", "duration_ms"})
	}

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				atomic.AddInt32(&total, 1)
				target := targets[idx%len(targets)]
				body := requestBody(target, *template, *labelSize, *copies, *dryRun, *printLabels, idx)

				start := time.Now()
				resp, err := client.Post(*url, "application/json", bytes.NewReader(body))
				dur := time.Since(start)

				statsMu.Lock()
				ts := targetStats[target]
				ts.Count++
				ts.Latencies = append(ts.Latencies, dur)
				statsMu.Unlock()

				if err != nil {
					atomic.AddInt32(&failure, 1)
					statsMu.Lock()
					ts.Failure++
					statsMu.Unlock()
					if *verbose {
						fmt.Printf("[%d] idx=%d target=%s error=%v\n", workerID, idx, target, err)
					}
					continue
				}

				statusMu.Lock()
				statusCodes[resp.StatusCode]++
				statusMu.Unlock()

				ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
				statsMu.Lock()
				if ok {
					ts.Success++
				} else {
					ts.Failure++
				}
				statsMu.Unlock()
				if ok {
					atomic.AddInt32(&success, 1)
				} else {
					atomic.AddInt32(&failure, 1)
				}

				if csvWriter != nil {
					csvMu.Lock()
					csvWriter.Write([]string{
						fmt.Sprintf("%d", idx),
						time.Now().Format(time.RFC3339Nano),
						target,
						fmt.Sprintf("%d", resp.StatusCode),
						fmt.Sprintf("%.3f", float64(dur.Microseconds())/1000.0),
					})
					csvMu.Unlock()
				}

				if *verbose {
					fmt.Printf("[%d] idx=%d target=%s status=%d dur=%v\n", workerID, idx, target, resp.StatusCode, dur)
				}

				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)

	if csvWriter != nil {
		csvWriter.Flush()
		csvFile.Close()
	}

	throughput := float64(total) / totalDuration.Seconds()

	fmt.Println("--- Print Farm Load Test ---")
	fmt.Printf("URL: %s  dry-run: %v\n", *url, *dryRun)
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("Total sent: %d  Success: %d  Failure: %d\n", total, success, failure)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, throughput)

	fmt.Println("\nStatus codes:")
	var scKeys []int
	for k := range statusCodes {
		scKeys = append(scKeys, k)
	}
	sort.Ints(scKeys)
	for _, k := range scKeys {
		fmt.Printf("  %d -> %d\n", k, statusCodes[k])
	}

	fmt.Println("\nPer target:")
	summaries := make(map[string]TargetSummary, len(targetStats))
	for _, name := range targets {
		ts := targetStats[name]
		lat := sorted(ts.Latencies)
		fmt.Printf("  %s -> total=%d success=%d failure=%d\n", name, ts.Count, ts.Success, ts.Failure)
		if len(lat) > 0 {
			fmt.Printf("    latencies: min=%v max=%v p50=%v p90=%v p95=%v p99=%v\n",
				lat[0], lat[len(lat)-1], pick(lat, 0.50), pick(lat, 0.90), pick(lat, 0.95), pick(lat, 0.99))
		}
		summaries[name] = TargetSummary{
			Total:   ts.Count,
			Success: ts.Success,
			Failure: ts.Failure,
			P50:     float64(pick(lat, 0.50).Milliseconds()),
			P90:     float64(pick(lat, 0.90).Milliseconds()),
			P95:     float64(pick(lat, 0.95).Milliseconds()),
			P99:     float64(pick(lat, 0.99).Milliseconds()),
		}
	}

	if *outJSON != "" {
		report := map[string]any{
			"url":            *url,
			"dry_run":        *dryRun,
			"requests":       *requests,
			"concurrency":    *concurrency,
			"total_sent":     total,
			"success":        success,
			"failure":        failure,
			"duration_ms":    totalDuration.Milliseconds(),
			"throughput_rps": throughput,
			"targets":        summaries,
		}

		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failure > 0 {
		os.Exit(2)
	}
}
