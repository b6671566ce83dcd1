// Package daemon implements watch mode: it monitors the tracked module
// roots, debounces filesystem events into regeneration passes, optionally
// regenerates on a fixed schedule, serves Prometheus metrics, and publishes
// run summaries to NATS when configured. One daemon owns the output
// directory; concurrent generator invocations are unsupported.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/modkit/internal/generate"
	"git.home.luguber.info/inful/modkit/internal/logfields"
	"git.home.luguber.info/inful/modkit/internal/modconfig"
)

// Daemon runs generation passes in response to filesystem and timer events.
type Daemon struct {
	workDir  string
	runner   *generate.Runner
	settings modconfig.Settings

	metrics   *Recorder
	events    *EventPublisher
	scheduler gocron.Scheduler
	watcher   *Watcher

	trigger chan string
}

// New assembles a daemon from a runner and settings.
func New(workDir string, runner *generate.Runner, settings modconfig.Settings) *Daemon {
	return &Daemon{
		workDir:  workDir,
		runner:   runner,
		settings: settings,
		trigger:  make(chan string, 1),
	}
}

// Start runs the daemon until ctx is canceled. The first pass runs
// immediately so the artifacts are fresh before any event arrives.
func (d *Daemon) Start(ctx context.Context) error {
	d.metrics = NewRecorder(nil)
	if d.settings.MetricsAddr != "" {
		go d.metrics.Serve(ctx, d.settings.MetricsAddr)
	}

	if d.settings.NATSURL != "" {
		pub, err := NewEventPublisher(d.settings.NATSURL, d.settings.NATSSubject)
		if err != nil {
			return err
		}
		d.events = pub
		defer d.events.Close()
	}

	roots, err := generate.TrackedRoots(d.workDir)
	if err != nil {
		return err
	}
	watcher, err := NewWatcher(roots, d.settings.WatchDebounce, d.trigger)
	if err != nil {
		return err
	}
	d.watcher = watcher
	defer d.watcher.Close()
	go d.watcher.Run(ctx)

	if d.settings.RebuildInterval > 0 {
		if err := d.startSchedule(); err != nil {
			return err
		}
		defer func() { _ = d.scheduler.Shutdown() }()
	}

	d.runOnce(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch mode stopping")
			return nil
		case reason := <-d.trigger:
			d.runOnce(ctx, reason)
		}
	}
}

// startSchedule registers the periodic regeneration job.
func (d *Daemon) startSchedule() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(d.settings.RebuildInterval),
		gocron.NewTask(func() {
			select {
			case d.trigger <- "schedule":
			default:
				// A pass is already pending.
			}
		}),
		gocron.WithName("periodic-generate"),
	)
	if err != nil {
		return fmt.Errorf("create periodic job: %w", err)
	}
	d.scheduler = s
	s.Start()
	return nil
}

// runOnce executes one generation pass and reports it to metrics and the
// event publisher. A failed pass keeps the daemon alive; the next event
// retries.
func (d *Daemon) runOnce(ctx context.Context, reason string) {
	started := time.Now()
	result, err := d.runner.Run(ctx)
	if err != nil {
		slog.Error("Generation pass failed", slog.String("reason", reason), logfields.Error(err))
		d.metrics.ObserveRun(time.Since(started), 0, 0, false)
		return
	}

	d.metrics.ObserveRun(result.Duration, result.Changed(), len(result.Artifacts)-result.Changed(), true)

	if d.events != nil {
		if err := d.events.PublishRun(result, reason); err != nil {
			slog.Warn("Failed to publish run event", logfields.RunID(result.RunID), logfields.Error(err))
		}
	}

	// Re-sync after every pass so directories created by the change that
	// triggered it are tracked too.
	if err := d.watcher.Resync(); err != nil {
		slog.Warn("Failed to resync watcher", logfields.Error(err))
	}
}
