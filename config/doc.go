// Package config loads the forwarder configuration from an optional YAML file
// and environment variables. It defines the server settings, the printer
// target URLs, the outbound generator timeout and the optional health check,
// circuit breaker, metrics and logging settings.
package config
