// Package checker probes a running bridge through its gRPC health endpoint.
package checker
