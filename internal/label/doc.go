// Package label decodes inbound label-print requests and normalizes them into
// the payload sent to a generator service. Missing fields take their defaults
// and copies is clamped to a positive integer; templates, label sizes and
// targets are not checked against their enumerations.
package label
