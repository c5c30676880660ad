// Package logger builds the structured slog logger shared by the forwarder.
// Production output is JSON; development output is human-readable text.
package logger
