package server

import (
	"context"

	"github.com/oshokin/xrp-sim/internal/api/ws"
	"github.com/oshokin/xrp-sim/internal/domain/robot"
	"github.com/oshokin/xrp-sim/internal/logger"
)

// telemetrySink is the part of the bridge session observers write sensors to.
type telemetrySink interface {
	UpdateTelemetry(fn func(telemetry *robot.Telemetry))
}

// resetter returns the simulated robot to its start pose.
type resetter interface {
	Reset(ctx context.Context)
}

// sensorDataHandler copies observer readings into the telemetry snapshot.
// While the server-side simulator runs it owns telemetry and readings are dropped.
func sensorDataHandler(sink telemetrySink, simulated bool) func(context.Context, ws.SensorData) {
	return func(ctx context.Context, data ws.SensorData) {
		if simulated {
			logger.Debug(ctx, "Ignoring observer sensor data, simulator owns telemetry")

			return
		}

		sink.UpdateTelemetry(func(telemetry *robot.Telemetry) {
			if data.Heading != nil {
				telemetry.Heading = *data.Heading
			}

			if data.LeftEncoder != nil {
				telemetry.Encoders.Left = robot.EncoderTicks(*data.LeftEncoder)
			}

			if data.RightEncoder != nil {
				telemetry.Encoders.Right = robot.EncoderTicks(*data.RightEncoder)
			}
		})
	}
}

// resetHandler resets the simulated robot, or ignores the request without a simulator.
func resetHandler(r resetter) func(context.Context) {
	return func(ctx context.Context) {
		if r == nil {
			logger.Debug(ctx, "Ignoring robot reset, simulator disabled")

			return
		}

		r.Reset(ctx)
	}
}
