// Package scheduler runs the tenant sweep on an interval and on demand,
// never letting two sweeps overlap.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper is the scheduled job.
type Sweeper func(ctx context.Context)

// Scheduler owns a single sweep slot.
type Scheduler struct {
	sweep    Sweeper
	interval time.Duration

	running atomic.Bool
	wg      sync.WaitGroup

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a Scheduler. interval <= 0 disables the ticker; Trigger still
// works.
func New(sweep Sweeper, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{sweep: sweep, interval: interval, ctx: ctx, cancel: cancel}
}

// Start launches the ticker loop when an interval is configured.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-t.C:
				if !s.Trigger() {
					log.Debug().Msg("sweep still running; tick skipped")
				}
			}
		}
	}()
	log.Info().Dur("interval", s.interval).Msg("sweep scheduler started")
}

// Trigger starts a sweep in the background. It reports false when a sweep
// is already running or the scheduler is stopped.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil || !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("sweep panicked")
			}
		}()
		s.sweep(s.ctx)
	}()
	return true
}

// Running reports whether a sweep is in progress.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Stop cancels the running sweep and waits for it until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
