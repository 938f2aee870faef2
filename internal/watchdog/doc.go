// Package watchdog tracks whether the control runtime is still sending frames.
//
// The watchdog starts Lost. Every accepted inbound frame feeds it, and a
// periodic poll declares it Lost again once no feed arrived within the timeout.
// Both edges are logged and reported to an optional transition handler.
package watchdog
