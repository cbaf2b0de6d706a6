// Package scheduler runs named jobs at fixed IST wall-clock times.
package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"condor-trader/pkg/utils"
)

// Scheduler fires registered jobs at wall-clock times in IST. Each job runs
// in its own goroutine; a panic or error in one job never cancels another.
type Scheduler struct {
	logger zerolog.Logger
	loc    *time.Location
	now    func() time.Time

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	name   string
	timer  *time.Timer
	cancel chan struct{}
}

// New creates a scheduler using the IST clock.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger.With().Str("component", "scheduler").Logger(),
		loc:    utils.IndiaLocation,
		now:    time.Now,
		jobs:   make(map[string]*job),
	}
}

// At schedules fn to run once at the next occurrence of the given IST
// wall-clock time. If the time has already passed today it fires tomorrow.
// Registering a name again replaces the previous registration.
func (s *Scheduler) At(hour, min, sec int, name string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[name]; ok {
		existing.timer.Stop()
		close(existing.cancel)
	}

	delay := s.untilNext(hour, min, sec)
	cancel := make(chan struct{})
	j := &job{name: name, cancel: cancel}

	j.timer = time.AfterFunc(delay, func() {
		select {
		case <-cancel:
			return
		default:
		}

		s.logger.Info().Str("job", name).Msg("Trigger fired")
		s.runGuarded(name, fn)

		s.mu.Lock()
		if s.jobs[name] == j {
			delete(s.jobs, name)
		}
		s.mu.Unlock()
	})

	s.jobs[name] = j
	s.logger.Info().
		Str("job", name).
		Str("fires_in", delay.Round(time.Second).String()).
		Msg("Trigger armed")
}

// Daily schedules fn to run every day at the given IST wall-clock time.
// It survives CancelAll only if re-registered by the caller.
func (s *Scheduler) Daily(hour, min, sec int, name string, fn func()) {
	var arm func()
	arm = func() {
		s.At(hour, min, sec, name, func() {
			fn()
			arm()
		})
	}
	arm()
}

// Cancel removes a single named job if it is armed.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[name]; ok {
		j.timer.Stop()
		close(j.cancel)
		delete(s.jobs, name)
	}
}

// CancelAll removes every armed job.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, j := range s.jobs {
		j.timer.Stop()
		close(j.cancel)
		delete(s.jobs, name)
	}
}

// Armed returns the names of currently armed jobs.
func (s *Scheduler) Armed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) untilNext(hour, min, sec int) time.Duration {
	now := s.now().In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, sec, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (s *Scheduler) runGuarded(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job", name).Interface("panic", r).Msg("Trigger panicked")
		}
	}()
	fn()
}
