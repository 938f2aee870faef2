package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/xrp-sim/internal/api/grpc/health"
	"github.com/oshokin/xrp-sim/internal/api/ws"
	"github.com/oshokin/xrp-sim/internal/capture"
	"github.com/oshokin/xrp-sim/internal/clock"
	"github.com/oshokin/xrp-sim/internal/config"
	"github.com/oshokin/xrp-sim/internal/kinematics"
	"github.com/oshokin/xrp-sim/internal/logger"
	"github.com/oshokin/xrp-sim/internal/service/bridge"
	"github.com/oshokin/xrp-sim/internal/service/broadcaster"
	"github.com/oshokin/xrp-sim/internal/service/process"
	"github.com/oshokin/xrp-sim/internal/service/simulator"
)

const (
	// BinaryName is the executable name looked up when the UDP port is taken.
	BinaryName = "xrp-sim"

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Options controls the bridge process. Non-empty fields override the settings file.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// UDPAddress overrides the HAL UDP listen address.
	UDPAddress string
	// HTTPAddress overrides the observer HTTP listen address.
	HTTPAddress string
	// HealthAddress overrides the gRPC health listen address.
	HealthAddress string
	// StaticDir overrides the directory served at "/".
	StaticDir string
	// LogLevel overrides the log level.
	LogLevel string
	// CaptureFile overrides the pcap capture path.
	CaptureFile string
	// Simulate enables the server-side simulator.
	Simulate bool
	// TracePackets logs every HAL datagram.
	TracePackets bool
}

// Run loads settings, starts every component and blocks until ctx is cancelled
// or a component fails.
//
//nolint:funlen,cyclop // Startup wiring is easier to follow in one place.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, BinaryName)

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	level, _ := logger.ParseLogLevel(settings.LogLevel)
	logger.SetLevel(level)

	// Bind every socket before starting anything so a busy port fails fast.
	// Closing twice is harmless: Run and Serve close them on the way out.
	conn, err := bridge.Listen(ctx, settings.UDPAddress)
	if err != nil {
		return process.ExplainBindFailure(ctx, err, process.ExecutableName(BinaryName))
	}
	defer conn.Close()

	lc := net.ListenConfig{}

	httpListener, err := lc.Listen(ctx, "tcp", settings.HTTPAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.HTTPAddress, err)
	}
	defer httpListener.Close()

	var healthListener net.Listener

	if settings.HealthAddress != "" {
		healthListener, err = lc.Listen(ctx, "tcp", settings.HealthAddress)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", settings.HealthAddress, err)
		}
		defer healthListener.Close()
	}

	var recorder *capture.Writer

	if settings.CaptureFile != "" {
		recorder, err = capture.Create(settings.CaptureFile, clock.Real{})
		if err != nil {
			return err
		}

		defer func() {
			if closeErr := recorder.Close(); closeErr != nil {
				logger.WarnKV(ctx, "Capture not closed cleanly", "error", closeErr)
			}

			logger.InfoKV(ctx, "Capture saved", "file", settings.CaptureFile, "datagrams", recorder.Count())
		}()
	}

	sessionOpts := bridge.Options{
		SendInterval:     settings.SendInterval,
		WatchdogInterval: settings.WatchdogInterval,
		WatchdogTimeout:  settings.WatchdogTimeout,
		TracePackets:     settings.TracePackets,
	}
	if recorder != nil {
		sessionOpts.Recorder = recorder
	}

	session, err := bridge.New(conn, sessionOpts)
	if err != nil {
		return fmt.Errorf("initialise bridge: %w", err)
	}

	var (
		sim   *simulator.Simulator
		poses broadcaster.PoseSource
		reset resetter
	)

	if settings.Simulator.Enabled {
		arena := kinematics.Arena{
			RobotSize: settings.Arena.RobotSize,
			Width:     settings.Arena.Width,
			Height:    settings.Arena.Height,
		}

		sim = simulator.New(session, kinematics.NewRobot(arena), simulator.Options{
			TickInterval: settings.Simulator.TickInterval,
			TicksPerUnit: settings.Simulator.TicksPerUnit,
		})
		poses = sim
		reset = sim
	}

	hub, err := ws.NewHub(ws.Options{
		OnSensorData: sensorDataHandler(session, sim != nil),
		OnResetRobot: resetHandler(reset),
	})
	if err != nil {
		return fmt.Errorf("initialise observer hub: %w", err)
	}

	states := broadcaster.New(session, hub, broadcaster.Options{
		Interval: settings.BroadcastInterval,
		Poses:    poses,
	})

	hub.SetGreeting(states.StateMessage)
	session.AddConnectionHandler(states.AnnounceConnection)

	var healthServer *health.Server

	if healthListener != nil {
		healthServer = health.NewServer()
		session.AddConnectionHandler(healthServer.SetConnected)
	}

	httpServer := &http.Server{
		Handler:           newMux(hub, settings.StaticDir),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          logger.StdLog(ctx, zapcore.WarnLevel),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		errsMu  sync.Mutex
		runErrs []error
	)

	// start runs fn until ctx ends; a failure stops every other component.
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if runErr := fn(ctx); runErr != nil {
				errsMu.Lock()
				runErrs = append(runErrs, fmt.Errorf("%s: %w", name, runErr))
				errsMu.Unlock()

				cancel()
			}
		}()
	}

	start("bridge", session.Run)
	start("broadcaster", states.Run)

	if sim != nil {
		start("simulator", sim.Run)
	}

	if healthServer != nil {
		start("health", func(ctx context.Context) error {
			return healthServer.Serve(ctx, healthListener)
		})
	}

	start("http", func(context.Context) error {
		if serveErr := httpServer.Serve(httpListener); !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", serveErr)
		}

		return nil
	})

	logger.InfoKV(ctx, "Bridge started",
		"udp_address", session.LocalAddr().String(),
		"http_address", httpListener.Addr().String(),
		"observer_path", ws.DefaultPath,
		"simulator", sim != nil)

	<-ctx.Done()
	logger.Info(ctx, "Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownCancel()

	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WarnKV(ctx, "HTTP server shutdown failed", "error", err)
	}

	if err = hub.Close(); err != nil {
		logger.WarnKV(ctx, "Observer hub shutdown failed", "error", err)
	}

	wg.Wait()
	logger.Info(ctx, "Bridge stopped")

	return errors.Join(runErrs...)
}

// loadSettings reads the settings file and applies command line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	overrideString(&settings.UDPAddress, opts.UDPAddress)
	overrideString(&settings.HTTPAddress, opts.HTTPAddress)
	overrideString(&settings.HealthAddress, opts.HealthAddress)
	overrideString(&settings.StaticDir, opts.StaticDir)
	overrideString(&settings.LogLevel, opts.LogLevel)
	overrideString(&settings.CaptureFile, opts.CaptureFile)

	settings.Simulator.Enabled = settings.Simulator.Enabled || opts.Simulate
	settings.TracePackets = settings.TracePackets || opts.TracePackets

	if err = config.Validate(settings); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	return settings, nil
}

func overrideString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func newMux(hub http.Handler, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(ws.DefaultPath, hub)

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	return mux
}
