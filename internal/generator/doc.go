// Package generator forwards normalized label payloads to a remote generator
// service and translates the outcome.
//
// A call is a single POST to {base}/generate. The response body is relayed as
// JSON, or wrapped as {"raw": text} when it is not JSON. Non-2xx responses
// become *RemoteError and calls that never get a response become
// *UnreachableError. Nothing is retried.
package generator
