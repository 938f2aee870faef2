// Package health exposes the HAL connection state through the standard gRPC
// health checking protocol so orchestrators and probes can watch it.
package health
