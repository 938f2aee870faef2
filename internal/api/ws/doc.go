// Package ws serves the observer push channel: a WebSocket endpoint where
// browsers receive robot state as JSON envelopes and report sensor readings.
package ws
