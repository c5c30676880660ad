// Package healthcheck periodically probes the status endpoint of each named
// printer target's generator service and reports availability changes.
package healthcheck
