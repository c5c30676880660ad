// Package handler implements the HTTP surface of the label forwarder: the
// informational endpoint listing, the generate endpoint that resolves a
// printer target and forwards the normalized payload, and the request logging
// and panic recovery middleware wrapped around them.
package handler
