package scrape

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bloxpulse/backend/internal/domain"
)

// CycleRunner executes one scrape cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (domain.ScrapeRun, error)
}

// Scheduler owns the scrape cadence state machine. All state transitions
// go through a single mutex, so at most one cycle is in flight at any
// instant. Cadence is anchored to cycle start: the next run fires at
// started_at + interval regardless of how long the cycle took; an
// overlong cycle triggers the next run immediately, with no catch-up
// queue for missed slots.
type Scheduler struct {
	log    *slog.Logger
	runner CycleRunner
	clock  clockwork.Clock

	mu         sync.Mutex
	mode       domain.ScheduleMode
	interval   time.Duration
	nextRunAt  *time.Time
	lastRun    *domain.ScrapeRun
	timer      clockwork.Timer
	cancelRun  context.CancelFunc
	generation uint64
	// pendingStart records a Start received while a cycle was in flight;
	// the superseded flight is not interrupted, and a fresh cycle under
	// the new cadence launches as soon as it completes.
	pendingStart bool

	wg sync.WaitGroup
}

// NewScheduler creates an idle scheduler.
func NewScheduler(log *slog.Logger, runner CycleRunner, clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		log:    log.With("service", "scrape.scheduler"),
		runner: runner,
		clock:  clock,
		mode:   domain.ScheduleModeIdle,
	}
}

// Start begins a cadence with the given interval, replacing any active
// one. From idle or scheduled a cycle launches immediately; while a cycle
// is in flight the new cadence takes over at its completion.
func (s *Scheduler) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.interval = interval
	s.stopTimerLocked()

	s.log.Info("cadence started",
		slog.Duration("interval", interval),
		slog.String("mode", s.mode.String()),
	)

	if s.mode == domain.ScheduleModeRunning {
		s.pendingStart = true
		s.nextRunAt = nil
		return
	}

	s.launchLocked()
}

// Stop cancels the cadence. A scheduled timer is dropped immediately; an
// in-flight cycle is cancelled cooperatively and the scheduler goes idle
// when it finishes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.pendingStart = false
	s.stopTimerLocked()
	s.nextRunAt = nil

	switch s.mode {
	case domain.ScheduleModeScheduled:
		s.mode = domain.ScheduleModeIdle
	case domain.ScheduleModeRunning:
		if s.cancelRun != nil {
			s.cancelRun()
		}
	}

	s.log.Info("cadence stopped", slog.String("mode", s.mode.String()))
}

// Status returns a snapshot of the schedule state. It never blocks on an
// in-flight cycle.
func (s *Scheduler) Status() domain.ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.ScheduleStatus{
		Mode:     s.mode,
		Interval: s.interval,
	}
	if s.nextRunAt != nil {
		t := *s.nextRunAt
		st.NextRunAt = &t
	}
	if s.lastRun != nil {
		run := *s.lastRun
		st.LastRun = &run
	}
	return st
}

// Shutdown stops the cadence and waits for any in-flight cycle to finish
// or ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Stop()

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

// launchLocked transitions to running and spawns a cycle goroutine.
// Callers must hold s.mu.
func (s *Scheduler) launchLocked() {
	s.mode = domain.ScheduleModeRunning
	s.nextRunAt = nil

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	gen := s.generation

	s.wg.Add(1)
	go s.execute(ctx, cancel, gen)
}

// execute runs one cycle and performs the completion transition.
func (s *Scheduler) execute(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer s.wg.Done()
	defer cancel()

	run, err := s.runner.RunCycle(ctx)
	if err != nil {
		s.log.Error("cycle failed to record", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.lastRun = &run
	}
	s.cancelRun = nil

	// A stale generation means Start or Stop superseded this flight
	// while it ran; it must not schedule under the old cadence.
	if gen != s.generation {
		if s.pendingStart {
			s.pendingStart = false
			s.launchLocked()
			return
		}
		s.mode = domain.ScheduleModeIdle
		s.nextRunAt = nil
		return
	}

	anchor := run.StartedAt
	if err != nil || anchor.IsZero() {
		anchor = s.clock.Now().UTC()
	}

	next := anchor.Add(s.interval)
	now := s.clock.Now().UTC()
	if !next.After(now) {
		// The cycle outlasted the interval; fire immediately.
		s.launchLocked()
		return
	}

	s.mode = domain.ScheduleModeScheduled
	s.nextRunAt = &next
	s.timer = s.clock.AfterFunc(next.Sub(now), func() { s.onTimer(gen) })
}

// onTimer fires a scheduled cycle unless the cadence changed since it was
// armed.
func (s *Scheduler) onTimer(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.mode != domain.ScheduleModeScheduled {
		return
	}
	s.launchLocked()
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
