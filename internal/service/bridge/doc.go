// Package bridge implements the UDP session between the simulated robot and a
// control runtime speaking the HAL simulation extension protocol.
//
// The session learns its peer from inbound traffic, applies motor commands from
// fresh frames, streams telemetry back on a fixed period and forgets the peer
// when the watchdog declares it lost.
package bridge
