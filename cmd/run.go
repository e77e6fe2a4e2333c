package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/smazurov/qaspar/internal/api"
	"github.com/smazurov/qaspar/internal/archive"
	"github.com/smazurov/qaspar/internal/config"
	"github.com/smazurov/qaspar/internal/events"
	"github.com/smazurov/qaspar/internal/ffmpeg"
	"github.com/smazurov/qaspar/internal/logging"
	"github.com/smazurov/qaspar/internal/metrics/collectors"
	"github.com/smazurov/qaspar/internal/metrics/exporters"
	"github.com/smazurov/qaspar/internal/pipeline"
	"github.com/smazurov/qaspar/internal/process"
	"github.com/smazurov/qaspar/internal/systemd"
	"github.com/smazurov/qaspar/internal/updater"
)

const metricsPublishInterval = 5 * time.Second

// RunConfig holds everything a supervision session needs.
type RunConfig struct {
	Pipeline     pipeline.Config
	Verbose      bool
	PollInterval time.Duration

	// StatusAddr enables the HTTP API when non-empty.
	StatusAddr   string
	AuthUsername string
	AuthPassword string
	Metrics      bool

	// UpdateRepository exposes update status on the API when non-empty.
	UpdateRepository string

	// ConfigPath is watched while running when Reload is set.
	ConfigPath string
	Reload     func(path string) (pipeline.Config, error)
}

type cleanupSetter interface {
	SetCleanup(cfg archive.Config, enabled bool)
}

// Runner runs one session of the player and recorder processes.
type Runner struct {
	cfg    RunConfig
	logger *slog.Logger
	done   chan struct{}

	mu         sync.Mutex
	supervisor *process.Supervisor
	stopped    bool

	// current is only touched by the reload handler after startup.
	current pipeline.Config
}

// NewRunner creates a runner. Nothing starts until Run is called.
func NewRunner(cfg RunConfig) *Runner {
	return &Runner{
		cfg:     cfg,
		logger:  logging.GetLogger("main"),
		done:    make(chan struct{}),
		current: cfg.Pipeline,
	}
}

// Run supervises the session until a process stalls or exits, or until Stop
// is called or ctx is cancelled, and returns the exit code of the program.
func (r *Runner) Run(ctx context.Context) int {
	defer close(r.done)

	specs, err := pipeline.Build(r.cfg.Pipeline)
	if errors.Is(err, pipeline.ErrNothingToDo) {
		r.logger.Warn("Called without anything to do!")
		return 0
	}
	if err != nil {
		r.logger.Error("Invalid configuration", "error", err)
		return 1
	}

	if r.cfg.Pipeline.Store {
		dir := r.cfg.Pipeline.StorePath
		if err := archive.EnsureDir(dir, logging.GetLogger("archive")); err != nil {
			r.logger.Error("Failed to prepare archive directory", "dir", dir, "error", err)
			return 1
		}
		unlock, err := archive.Lock(dir)
		if err != nil {
			r.logger.Error("Failed to lock archive directory", "dir", dir, "error", err)
			return 1
		}
		defer unlock()
	}

	eventBus := events.New()
	logging.SetLogCallback(api.PublishLogEntry(eventBus))
	defer logging.SetLogCallback(nil)

	notifier := systemd.NewNotifier(logging.GetLogger("systemd"), r.cfg.PollInterval)

	collector := collectors.NewFFmpegCollector()
	defer collector.Reset()

	sseExporter := exporters.NewSSEExporter(eventBus, metricsPublishInterval)
	sseExporter.Start(ctx)
	defer sseExporter.Stop()

	supervisor, err := process.NewSupervisor(specs, &process.Options{
		PollInterval:   r.cfg.PollInterval,
		Verbose:        r.cfg.Verbose,
		LogParser:      ffmpeg.ParseLogLevel,
		OutputLogger:   logging.GetLogger("ffmpeg"),
		Cleanup:        r.cfg.Pipeline.CleanupConfig(),
		CleanupEnabled: r.cfg.Pipeline.CleanupEnabled(),
		OnOutput:       collector.Observe,
		OnStateChange:  notifier.HandleStateChange,
		EventBus:       eventBus,
		Logger:         logging.GetLogger("supervisor"),
	})
	if err != nil {
		r.logger.Error("Failed to create supervisor", "error", err)
		return 1
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.logger.Info("Stop requested before start")
		return 0
	}
	r.supervisor = supervisor
	r.mu.Unlock()

	if r.cfg.StatusAddr != "" {
		server := api.NewServer(r.apiOptions(supervisor, eventBus))
		if err := server.Start(r.cfg.StatusAddr); err != nil {
			r.logger.Error("Failed to start HTTP server", "addr", r.cfg.StatusAddr, "error", err)
			return 1
		}
		defer func() {
			if err := server.Stop(); err != nil {
				r.logger.Warn("Error stopping HTTP server", "error", err)
			}
		}()
	}

	if stopWatcher := r.watchConfig(supervisor); stopWatcher != nil {
		defer stopWatcher()
	}

	watchdogCtx, cancelWatchdog := context.WithCancel(ctx)
	defer cancelWatchdog()
	go notifier.RunWatchdog(watchdogCtx, supervisor)

	r.logger.Info("Starting session", "processes", len(specs), "cleanup", r.cfg.Pipeline.CleanupEnabled())
	report, err := supervisor.Run(ctx)
	if err != nil {
		r.logger.Error("Failed to launch processes", "error", err)
		return 1
	}

	r.logger.Info("Finished!",
		"ticks", report.Ticks,
		"stalled", len(report.Stalled),
		"exited", len(report.Exited),
		"cleanups", report.Cleanups,
		"stop_requested", report.StopRequested)
	if report.Failed() {
		return 1
	}
	return 0
}

// Stop requests an external stop. A stop before the session started keeps
// it from starting at all.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.supervisor != nil {
		r.supervisor.Stop()
	}
}

// Done is closed once Run has returned.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) apiOptions(supervisor *process.Supervisor, eventBus *events.Bus) *api.Options {
	opts := &api.Options{
		AuthUsername: r.cfg.AuthUsername,
		AuthPassword: r.cfg.AuthPassword,
		Session:      supervisor,
		EventBus:     eventBus,
	}
	if r.cfg.Metrics {
		opts.MetricsHandler = exporters.HTTPHandler()
	}
	if r.cfg.UpdateRepository != "" {
		svc, err := updater.NewService(&updater.Options{Repository: r.cfg.UpdateRepository})
		if err != nil {
			r.logger.Warn("Update status unavailable", "error", err)
		} else {
			opts.UpdateService = svc
		}
	}
	return opts
}

// watchConfig starts the config watcher and returns its stop function, or
// nil when there is nothing to watch.
func (r *Runner) watchConfig(supervisor *process.Supervisor) func() {
	if r.cfg.Reload == nil || r.cfg.ConfigPath == "" {
		return nil
	}
	if _, err := os.Stat(r.cfg.ConfigPath); err != nil {
		r.logger.Debug("Config file not found, hot-reload disabled", "path", r.cfg.ConfigPath)
		return nil
	}

	watcher := config.NewConfigWatcher(r.cfg.ConfigPath, r.cfg.Reload, logging.GetLogger("config"))
	watcher.OnReload(func(next pipeline.Config) {
		r.applyReload(supervisor, next)
	})
	if err := watcher.Start(); err != nil {
		r.logger.Warn("Failed to start config watcher, hot-reload disabled", "error", err)
		return nil
	}
	return func() { _ = watcher.Stop() }
}

// applyReload hot-applies the retention settings and reports every other
// change as needing a restart.
func (r *Runner) applyReload(supervisor cleanupSetter, next pipeline.Config) {
	if fields := r.current.RestartFields(next); len(fields) > 0 {
		r.logger.Warn("Config changes require a restart", "fields", fields)
	}
	if !r.current.RetentionChanged(next) {
		r.logger.Debug("Config reloaded, retention unchanged")
		return
	}

	applied, err := r.current.WithRetention(next)
	if err != nil {
		r.logger.Warn("Ignoring retention change", "error", err)
		return
	}
	r.current = applied
	supervisor.SetCleanup(applied.CleanupConfig(), applied.CleanupEnabled())
}
