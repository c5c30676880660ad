//go:build ignore

// Check_results validates CSV output from loadtest.go by checking for
// duplicate request indices and summarizing outcomes per printer target.
//
// Usage:
//
//	go run scripts/check_results.go -csv results.csv -expected 5000
//
// Exit codes:
//
//	0 - Verification passed
//	2 - File errors or malformed CSV
//	3 - Duplicate indices found
//	4 - Non-2xx answers found and -strict set
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
)

type targetCounts struct {
	total    int
	byStatus map[string]int
}

func main() {
	csvPath := flag.String("csv", "results.csv", "Path to CSV produced by loadtest")
	expected := flag.Int("expected", 0, "Expected number of rows (optional)")
	strict := flag.Bool("strict", false, "Fail when any request got a non-2xx answer")
	flag.Parse()

	f, err := os.Open(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open csv: %v\n", err)
		os.Exit(2)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read csv: %v\n", err)
		os.Exit(2)
	}

	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "csv empty\n")
		os.Exit(2)
	}

	// header expected: idx,timestamp,target,status,duration_ms
	if header := rows[0]; len(header) < 5 || header[2] != "target" {
		fmt.Fprintf(os.Stderr, "unexpected csv header: %v\n", header)
		os.Exit(2)
	}

	idxSeen := map[int]bool{}
	counts := map[string]*targetCounts{}
	failed := 0

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 5 {
			fmt.Fprintf(os.Stderr, "malformed row %d: %v\n", i, row)
			os.Exit(2)
		}
		idx, err := strconv.Atoi(row[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid idx at row %d: %v\n", i, err)
			os.Exit(2)
		}
		if idxSeen[idx] {
			fmt.Printf("DUPLICATE idx=%d at csv row %d\n", idx, i)
		}
		idxSeen[idx] = true

		status, err := strconv.Atoi(row[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid status at row %d: %v\n", i, err)
			os.Exit(2)
		}
		if status < 200 || status > 299 {
			failed++
		}

		tc, ok := counts[row[2]]
		if !ok {
			tc = &targetCounts{byStatus: map[string]int{}}
			counts[row[2]] = tc
		}
		tc.total++
		tc.byStatus[row[3]]++
	}

	totalRows := len(rows) - 1
	unique := len(idxSeen)
	fmt.Printf("Total rows: %d  Unique idx: %d  Non-2xx: %d\n", totalRows, unique, failed)

	if *expected > 0 && totalRows != *expected {
		fmt.Printf("Warning: total rows (%d) != expected (%d)\n", totalRows, *expected)
	}

	if totalRows != unique {
		fmt.Printf("ERROR: found %d duplicate indices\n", totalRows-unique)
		os.Exit(3)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Per-target counts:")
	for _, name := range names {
		tc := counts[name]
		fmt.Printf("  %s -> %d %v\n", name, tc.total, tc.byStatus)
	}

	if *strict && failed > 0 {
		fmt.Printf("ERROR: %d requests were not answered with 2xx\n", failed)
		os.Exit(4)
	}

	fmt.Println("Verification passed: no duplicate indices and counts sum match rows.")
}
