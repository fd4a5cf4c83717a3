package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/audiotopo/cmd"
	"github.com/smazurov/audiotopo/internal/api"
	"github.com/smazurov/audiotopo/internal/config"
	"github.com/smazurov/audiotopo/internal/events"
	"github.com/smazurov/audiotopo/internal/filter"
	"github.com/smazurov/audiotopo/internal/inspector"
	"github.com/smazurov/audiotopo/internal/logging"
	"github.com/smazurov/audiotopo/internal/metrics"
	"github.com/smazurov/audiotopo/internal/platform"
	"github.com/smazurov/audiotopo/internal/platform/fixture"
	"github.com/smazurov/audiotopo/internal/platform/hda"
	"github.com/smazurov/audiotopo/internal/platform/hotplug"
	"github.com/smazurov/audiotopo/internal/topology"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"audiotopo.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8095" toml:"server.port" env:"SERVER_PORT"`

	// Platform settings
	Platform     string `help:"Endpoint backend (auto, hda, fixture)" default:"auto" toml:"platform.backend" env:"PLATFORM"`
	ProcRoot     string `help:"ALSA procfs root read by the hda backend" default:"/proc/asound" toml:"platform.proc_root" env:"PROC_ROOT"`
	FixtureFile  string `help:"Fixture file served by the fixture backend" default:"" toml:"platform.fixture_file" env:"FIXTURE_FILE"`
	WatchFixture bool   `help:"Reload the fixture file when it changes" default:"true" toml:"platform.watch_fixture" env:"WATCH_FIXTURE"`
	WatchHotplug bool   `help:"Rescan the hda backend when sound cards are added or removed" default:"true" toml:"platform.watch_hotplug" env:"WATCH_HOTPLUG"`

	// Inspection settings
	Flow       string `help:"Data flow to enumerate (render, capture, all)" default:"all" toml:"inspect.flow" env:"FLOW"`
	States     string `help:"Comma-separated device states to enumerate, or all" default:"active" toml:"inspect.states" env:"STATES"`
	Filter     string `help:"CEL expression over id, flow, state and name selecting devices" default:"" toml:"inspect.filter" env:"FILTER"`
	Parallel   int    `help:"Concurrent device walks" default:"1" toml:"inspect.parallel" env:"PARALLEL"`
	MaxDepth   int    `help:"Deepest topology level that is expanded" default:"64" toml:"inspect.max_depth" env:"MAX_DEPTH"`
	FollowPeer bool   `help:"Seed walks from the peer of connected top-level connectors" default:"false" toml:"inspect.follow_peer" env:"FOLLOW_PEER"`

	// Metrics settings
	PrometheusEnabled bool `help:"Expose Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"PROMETHEUS_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingTopology  string `help:"Topology walker logging level" default:"info" toml:"logging.topology" env:"LOGGING_TOPOLOGY"`
	LoggingPlatform  string `help:"Platform backend logging level" default:"info" toml:"logging.platform" env:"LOGGING_PLATFORM"`
	LoggingInspector string `help:"Inspector logging level" default:"info" toml:"logging.inspector" env:"LOGGING_INSPECTOR"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP      string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"topology":  o.LoggingTopology,
			"platform":  o.LoggingPlatform,
			"inspector": o.LoggingInspector,
			"api":       o.LoggingAPI,
			"http":      o.LoggingHTTP,
		},
	}
}

func (o *Options) platformConfig() platform.Config {
	return platform.Config{
		Backend:     o.Platform,
		ProcRoot:    o.ProcRoot,
		FixtureFile: o.FixtureFile,
	}
}

// inspectorConfig turns the selection and walk options into an inspector configuration.
func (o *Options) inspectorConfig() (inspector.Config, error) {
	cfg := inspector.DefaultConfig()

	flow, err := topology.ParseDataFlow(o.Flow)
	if err != nil {
		return cfg, fmt.Errorf("invalid flow: %w", err)
	}
	cfg.Flow = flow

	if o.States != "" {
		states, err := topology.ParseDeviceState(o.States)
		if err != nil {
			return cfg, fmt.Errorf("invalid states: %w", err)
		}
		cfg.States = states
	}

	cfg.Filter, err = filter.Compile(o.Filter)
	if err != nil {
		return cfg, err
	}

	cfg.Parallel = o.Parallel
	cfg.Walk.MaxDepth = o.MaxDepth
	cfg.Walk.FollowPeer = o.FollowPeer
	return cfg, nil
}

// buildInspector opens the configured backend and wraps it in an inspector.
func buildInspector(opts *Options, bus *events.Bus) (*inspector.Inspector, error) {
	cfg, err := opts.inspectorConfig()
	if err != nil {
		return nil, err
	}
	catalog, err := platform.Open(opts.platformConfig())
	if err != nil {
		return nil, err
	}
	return inspector.New(catalog, cfg, bus), nil
}

// watchFixture reloads the fixture catalog into insp whenever the file changes.
func watchFixture(path string, insp *inspector.Inspector, logger *slog.Logger) *config.Watcher[*fixture.Catalog] {
	watcher := config.NewConfigWatcher(
		path,
		fixture.Load,
		logging.GetLogger("config"),
		config.WithErrorHandler[*fixture.Catalog](func(err error) {
			insp.ReloadFailed(path, err)
		}),
	)
	watcher.OnReload(func(catalog *fixture.Catalog) {
		insp.SetCatalog(catalog, path)
	})
	if err := watcher.Start(); err != nil {
		logger.Warn("Failed to start fixture watcher, hot-reload disabled", "path", path, "error", err)
		return nil
	}
	logger.Info("Watching fixture file", "path", path)
	return watcher
}

// watchHotplug rescans procRoot into insp whenever a sound card comes or goes. The returned
// function stops the watch; it is nil when uevents cannot be received.
func watchHotplug(procRoot string, insp *inspector.Inspector, logger *slog.Logger) func() {
	monitor, err := hotplug.NewMonitor()
	if err != nil {
		logger.Warn("Failed to open uevent socket, hotplug rescans disabled", "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := hotplug.Watch(ctx, monitor, hotplug.DefaultSettle, logging.GetLogger("platform"), func(ev hotplug.Event) {
			card, _ := ev.Card()
			insp.SetCatalog(hda.NewCatalog(procRoot), "hotplug:"+ev.Action+":card"+strconv.Itoa(card))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Hotplug watch stopped", "error", err)
		}
	}()
	logger.Info("Watching sound card hotplug", "proc_root", procRoot)

	return func() {
		cancel()
		<-done
		_ = monitor.Close()
	}
}

// services holds what the server start hook created, for the stop hook to tear down.
type services struct {
	mu      sync.Mutex
	server  *api.Server
	closers []func()
}

func (r *services) set(server *api.Server, closers []func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.server = server
	r.closers = closers
}

func (r *services) stop(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server != nil {
		if err := r.server.Stop(); err != nil {
			logger.Error("Error stopping HTTP server", "error", err)
		}
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.server, r.closers = nil, nil
}

func main() {
	var cli humacli.CLI
	var opts *Options
	var rt services

	cli = humacli.New(func(hooks humacli.Hooks, parsed *Options) {
		opts = parsed
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		hooks.OnStart(func() {
			logging.Initialize(opts.loggingConfig())
			logger := logging.GetLogger("main")

			eventBus := events.New()
			logging.SetLogCallback(func(entry logging.LogEntry) {
				eventBus.Publish(api.LogEvent(entry))
			})

			insp, err := buildInspector(opts, eventBus)
			if err != nil {
				logger.Error("Failed to set up inspector", "error", err)
				os.Exit(1)
			}

			var closers []func()
			apiOpts := &api.Options{
				AuthUsername: opts.AuthUsername,
				AuthPassword: opts.AuthPassword,
				Inspector:    insp,
				EventBus:     eventBus,
			}
			if opts.PrometheusEnabled {
				closers = append(closers, metrics.Subscribe(eventBus))
				apiOpts.PrometheusHandler = metrics.HTTPHandler()
			}

			backend, _ := opts.platformConfig().Resolve()
			if backend == platform.BackendFixture && opts.WatchFixture {
				if watcher := watchFixture(opts.FixtureFile, insp, logger); watcher != nil {
					closers = append(closers, func() { _ = watcher.Stop() })
				}
			}
			if backend == platform.BackendHDA && opts.WatchHotplug {
				if stop := watchHotplug(opts.ProcRoot, insp, logger); stop != nil {
					closers = append(closers, stop)
				}
			}

			server := api.NewServer(apiOpts)
			rt.set(server, closers)

			logger.Info("Starting HTTP server", "port", opts.Port, "backend", backend)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger := logging.GetLogger("main")
			logger.Info("Shutting down server")
			rt.stop(logger)
		})
	})

	// Subcommands log to stderr so their stdout stays machine-readable.
	setup := func() (*inspector.Inspector, error) {
		logCfg := opts.loggingConfig()
		logCfg.Output = os.Stderr
		logging.Initialize(logCfg)
		return buildInspector(opts, nil)
	}

	cli.Root().AddCommand(cmd.CreateListCmd(setup))
	cli.Root().AddCommand(cmd.CreateWalkCmd(setup))
	cli.Root().AddCommand(cmd.CreateValidateCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}
