// Package worker runs jobs on a daily wall-clock schedule.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

// Job is the unit of work triggered by the schedule.
type Job func(ctx context.Context) error

// Daily calls Job once StartupDelay after Run starts and then every day at
// Hour:Minute in Location. Job errors are logged and never stop the schedule.
type Daily struct {
	Hour         int
	Minute       int
	Location     *time.Location
	StartupDelay time.Duration
	Clock        engine.Clock
	Job          Job
	Logger       *slog.Logger
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		// time.Date normalizes day overflow and keeps the wall clock across DST changes.
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Run blocks until ctx is cancelled.
func (d *Daily) Run(ctx context.Context) error {
	if d.Job == nil {
		return errors.New(config.ErrJobRequired)
	}
	clock := d.Clock
	if clock == nil {
		clock = engine.RealClock{}
	}
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(config.LogKeyComponent, config.CompWorker)

	startup := time.NewTimer(d.StartupDelay)
	defer startup.Stop()

	// schedule arms the timer for the first run strictly after from.
	var target time.Time
	schedule := func(from time.Time) time.Duration {
		target = NextRun(from, d.Hour, d.Minute, loc)
		now := clock.Now()
		log.Info(config.MsgWorkerNext, config.LogKeyNext, target, config.LogKeyWait, target.Sub(now))
		return max(target.Sub(now), 0)
	}

	daily := time.NewTimer(schedule(clock.Now()))
	defer daily.Stop()

	log.Info(config.MsgWorkerStart)

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return nil

		case <-startup.C:
			d.run(ctx, log)

		case <-daily.C:
			fired := target
			d.run(ctx, log)
			// The wall clock may lag the timer; never schedule before the run that just fired.
			daily.Reset(schedule(later(clock.Now(), fired)))
		}
	}
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func (d *Daily) run(ctx context.Context, log *slog.Logger) {
	start := time.Now()
	if err := d.Job(ctx); err != nil {
		log.Error(config.ErrNotifyFailed, config.LogKeyError, err)
		return
	}
	log.Debug(config.MsgWorkerDone, config.LogKeyDuration, time.Since(start).Milliseconds())
}
