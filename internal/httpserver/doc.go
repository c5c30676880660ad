// Package httpserver runs the print farm's HTTP listener with sane timeouts
// and a bounded graceful shutdown.
package httpserver
