package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const defaultInterval = 10 * time.Minute

// Pruner drops expired entries from an in-process store.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// Target names a store the janitor sweeps.
type Target struct {
	Name   string
	Pruner Pruner
}

// Janitor periodically prunes in-process caches and session tables.
type Janitor struct {
	scheduler *gocron.Scheduler
	targets   []Target
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a janitor. Targets with a nil pruner are skipped.
func New(interval time.Duration, logger *slog.Logger, targets ...Target) *Janitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	live := make([]Target, 0, len(targets))
	for _, target := range targets {
		if target.Pruner != nil {
			live = append(live, target)
		}
	}
	return &Janitor{
		scheduler: gocron.NewScheduler(time.UTC),
		targets:   live,
		interval:  interval,
		logger:    logger.With("component", "janitor"),
	}
}

// Start schedules the sweep and starts the scheduler in the background.
func (j *Janitor) Start() error {
	if len(j.targets) == 0 {
		j.logger.Info("no in-process stores to prune")
		return nil
	}
	_, err := j.scheduler.Every(j.interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		j.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	j.scheduler.StartAsync()
	j.logger.Info("janitor started", "interval", j.interval.String(), "targets", len(j.targets))
	return nil
}

// Sweep prunes every target once.
func (j *Janitor) Sweep(ctx context.Context) map[string]int {
	removed := make(map[string]int, len(j.targets))
	for _, target := range j.targets {
		count, err := target.Pruner.Prune(ctx)
		if err != nil {
			j.logger.Warn("prune failed", "target", target.Name, "error", err)
			continue
		}
		removed[target.Name] = count
		if count > 0 {
			j.logger.Debug("pruned expired entries", "target", target.Name, "removed", count)
		}
	}
	return removed
}

// Stop stops the scheduler.
func (j *Janitor) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}
