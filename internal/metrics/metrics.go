package metrics

import (
	"sort"
	"sync"
	"time"
)

// maxLatencySamples bounds the per-target latency window used for percentiles.
const maxLatencySamples = 1000

type targetStats struct {
	requests      int64
	dryRuns       int64
	missingConfig int64
	forwarded     int64
	remoteErrors  int64
	unreachable   int64
	latencies     []time.Duration
	statusCodes   map[int]int64
	healthy       *bool
}

type Metrics struct {
	mutex     sync.RWMutex
	targets   map[string]*targetStats
	startTime time.Time
}

type Snapshot struct {
	TotalRequests int64                    `json:"total_requests"`
	Uptime        time.Duration            `json:"uptime"`
	Targets       map[string]TargetMetrics `json:"targets"`
	Breakers      map[string]string        `json:"breakers,omitempty"`
}

type TargetMetrics struct {
	Requests      int64         `json:"requests"`
	DryRuns       int64         `json:"dry_runs"`
	MissingConfig int64         `json:"missing_config"`
	Forwarded     int64         `json:"forwarded"`
	RemoteErrors  int64         `json:"remote_errors"`
	Unreachable   int64         `json:"unreachable"`
	Healthy       *bool         `json:"healthy"`
	AvgLatency    time.Duration `json:"avg_latency"`
	P50Latency    time.Duration `json:"p50_latency"`
	P95Latency    time.Duration `json:"p95_latency"`
	P99Latency    time.Duration `json:"p99_latency"`
	StatusCodes   map[int]int64 `json:"status_codes,omitempty"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		targets:   make(map[string]*targetStats),
		startTime: time.Now(),
	}
}

// target must be called with the write lock held.
func (m *Metrics) target(name string) *targetStats {
	ts, ok := m.targets[name]
	if !ok {
		ts = &targetStats{statusCodes: make(map[int]int64)}
		m.targets[name] = ts
	}
	return ts
}

func (m *Metrics) IncrementRequests(target string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.target(target).requests++
}

func (m *Metrics) RecordDryRun(target string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.target(target).dryRuns++
}

func (m *Metrics) RecordMissingTarget(target string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.target(target).missingConfig++
}

// RecordResponse records a generator call that returned an HTTP response.
// Any status outside 2xx counts as a remote error.
func (m *Metrics) RecordResponse(target string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	ts := m.target(target)
	ts.forwarded++
	ts.statusCodes[statusCode]++
	if statusCode < 200 || statusCode > 299 {
		ts.remoteErrors++
	}
	ts.addLatency(duration)
}

// RecordUnreachable records a generator call that produced no response.
func (m *Metrics) RecordUnreachable(target string, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	ts := m.target(target)
	ts.forwarded++
	ts.unreachable++
	ts.addLatency(duration)
}

func (m *Metrics) UpdateHealthStatus(target string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.target(target).healthy = &healthy
}

func (ts *targetStats) addLatency(d time.Duration) {
	ts.latencies = append(ts.latencies, d)
	if len(ts.latencies) > maxLatencySamples {
		ts.latencies = ts.latencies[1:]
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:  time.Since(m.startTime),
		Targets: make(map[string]TargetMetrics, len(m.targets)),
	}

	for name, ts := range m.targets {
		snap.TotalRequests += ts.requests

		tm := TargetMetrics{
			Requests:      ts.requests,
			DryRuns:       ts.dryRuns,
			MissingConfig: ts.missingConfig,
			Forwarded:     ts.forwarded,
			RemoteErrors:  ts.remoteErrors,
			Unreachable:   ts.unreachable,
		}

		if ts.healthy != nil {
			healthy := *ts.healthy
			tm.Healthy = &healthy
		}

		if len(ts.statusCodes) > 0 {
			tm.StatusCodes = make(map[int]int64, len(ts.statusCodes))
			for code, n := range ts.statusCodes {
				tm.StatusCodes[code] = n
			}
		}

		if len(ts.latencies) > 0 {
			sorted := make([]time.Duration, len(ts.latencies))
			copy(sorted, ts.latencies)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			tm.AvgLatency = average(sorted)
			tm.P50Latency = percentile(sorted, 0.50)
			tm.P95Latency = percentile(sorted, 0.95)
			tm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Targets[name] = tm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
