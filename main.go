package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/toggler/cmd"
	"github.com/smazurov/toggler/internal/api"
	"github.com/smazurov/toggler/internal/config"
	"github.com/smazurov/toggler/internal/events"
	"github.com/smazurov/toggler/internal/logging"
	"github.com/smazurov/toggler/internal/metrics/collectors"
	"github.com/smazurov/toggler/internal/metrics/exporters"
	"github.com/smazurov/toggler/internal/runner"
	"github.com/smazurov/toggler/internal/systemd"
	"github.com/smazurov/toggler/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port       string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CorsOrigin string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Robot file settings
	RobotFile       string `help:"Robot file with boards and components (.toml, .yaml or .json)" short:"r" default:"robot.toml" toml:"robot.file" env:"ROBOT_FILE"`
	RobotWatch      bool   `help:"Reapply the robot file when it changes" default:"true" toml:"robot.watch" env:"ROBOT_WATCH"`
	RobotDebounceMs int    `help:"Quiet period before a changed robot file is applied, in milliseconds" default:"1500" toml:"robot.debounce_ms" env:"ROBOT_DEBOUNCE_MS"`

	// Component settings
	CommandTimeoutMs int `help:"Timeout for do_command calls that set none, in milliseconds (0 = none)" default:"2000" toml:"components.command_timeout_ms" env:"COMPONENTS_COMMAND_TIMEOUT_MS"`

	// Metrics settings
	MetricsPrometheusEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSSEEnabled        bool `help:"Publish component stats on the event stream" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`
	MetricsIntervalMs        int  `help:"Component stats interval in milliseconds" default:"1000" toml:"metrics.interval_ms" env:"METRICS_INTERVAL_MS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password or bcrypt hash" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings; per-module levels come from the [logging] table
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := config.LoadLoggingConfig(opts.Config)
		loggingConfig.Level = opts.LoggingLevel
		loggingConfig.Format = opts.LoggingFormat
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(api.LogEntryToEvent(entry))
		})

		r := runner.New(eventBus, logging.GetLogger("runner"),
			runner.WithDefaultTimeout(millis(opts.CommandTimeoutMs)))

		collector := collectors.NewEventCollector(eventBus)

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			CORSOrigin:   opts.CorsOrigin,
			Host:         r,
			EventBus:     eventBus,
		}
		if opts.MetricsPrometheusEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		var sseExporter *exporters.SSEExporter
		if opts.MetricsSSEEnabled {
			sseExporter = exporters.NewSSEExporter(eventBus, millis(opts.MetricsIntervalMs))
		}

		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
		eventBus.Subscribe(func(e events.ConfigReloadFailedEvent) {
			notifier.Status("robot file rejected: " + e.Error)
		})

		ctx, cancel := context.WithCancel(context.Background())
		var (
			mu      sync.Mutex
			watcher *config.Watcher[*config.Robot]
		)

		hooks.OnStart(func() {
			logger.Info("Starting toggler", "version", version.Long(), "robot", opts.RobotFile)

			collector.Start()
			if sseExporter != nil {
				sseExporter.Start(ctx)
			}

			robot, err := config.LoadRobot(opts.RobotFile)
			if err != nil {
				logger.Error("Failed to load robot file", "path", opts.RobotFile, "error", err)
				os.Exit(1)
			}
			if err := r.Apply(ctx, robot); err != nil {
				logger.Error("Failed to apply robot file", "path", opts.RobotFile, "error", err)
				os.Exit(1)
			}

			if opts.RobotWatch {
				w, err := r.Watch(ctx, opts.RobotFile, millis(opts.RobotDebounceMs))
				if err != nil {
					logger.Warn("Failed to watch robot file, hot reload disabled", "path", opts.RobotFile, "error", err)
				} else {
					mu.Lock()
					watcher = w
					mu.Unlock()
					go reloadOnHangup(ctx, w, notifier, logger)
				}
			}

			notifier.Ready()
			notifier.Status(fmt.Sprintf("%d components, generation %d", len(r.Components()), r.Generation()))
			notifier.StartWatchdog(ctx)

			if err := server.Start(opts.Port); err != nil {
				logger.Error("Failed to start HTTP server", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			notifier.Stopping()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := server.Stop(shutdownCtx); err != nil {
				logger.Error("Error stopping HTTP server", "error", err)
			}

			mu.Lock()
			if watcher != nil {
				if err := watcher.Stop(); err != nil {
					logger.Warn("Error stopping robot file watcher", "error", err)
				}
			}
			mu.Unlock()

			cancel()
			if sseExporter != nil {
				sseExporter.Stop()
			}
			collector.Stop()

			if err := r.Close(shutdownCtx); err != nil {
				logger.Error("Error closing components", "error", err)
			}
		})
	})

	cli.Root().Version = version.Long()
	cli.Root().AddCommand(cmd.CreateValidateCmd())
	cli.Root().AddCommand(cmd.CreateToggleCmd())

	cli.Run()
}

// reloadOnHangup reapplies the robot file on SIGHUP.
func reloadOnHangup(ctx context.Context, w *config.Watcher[*config.Robot], notifier *systemd.Notifier, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info("SIGHUP received, reloading robot file")
			notifier.Reloading()
			w.Reload()
			notifier.Ready()
		}
	}
}
