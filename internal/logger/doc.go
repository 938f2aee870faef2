// Package logger wraps zap to provide:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithMinLevel),
//   - level parsing and configuration,
//   - leveled convenience functions (Infof, WarnKV, etc.).
//
// Services receive a context and pull the logger from it, so the bridge,
// the observer hub and the simulator each log under their own name.
package logger
