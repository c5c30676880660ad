// Package printer holds the fixed registry of named printer targets and
// resolves a request's target to the base URL of its generator service.
package printer
