// Package sched runs the engine's periodic jobs. Jobs are named, run on
// independent intervals, and fail soft: one job's error or panic never
// stops the others.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/warfront/internal/clock"
)

// JobFunc is one periodic pass. now is the scheduler's view of the current
// time when the job fired.
type JobFunc func(now time.Time) error

type job struct {
	name     string
	interval time.Duration
	fn       JobFunc
	lastRun  time.Time
	runs     uint64
	failures uint64
}

// Scheduler drives registered jobs from a single base ticker. Speed scales
// every interval: 2.0 runs the world twice as fast, 0 pauses it.
type Scheduler struct {
	clk      clock.Clock
	baseTick time.Duration

	mu    sync.Mutex
	jobs  []*job
	speed float64
}

// New creates a scheduler polling at baseTick (clamped to 100ms minimum).
func New(clk clock.Clock, baseTick time.Duration) *Scheduler {
	if baseTick < 100*time.Millisecond {
		baseTick = 100 * time.Millisecond
	}
	return &Scheduler{clk: clk, baseTick: baseTick, speed: 1.0}
}

// Register adds a named job. Registration order is run order when several
// jobs fire on the same poll.
func (s *Scheduler) Register(name string, interval time.Duration, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, &job{
		name:     name,
		interval: interval,
		fn:       fn,
		lastRun:  s.clk.Now(),
	})
}

// SetSpeed changes the time multiplier. Values at or below zero pause.
func (s *Scheduler) SetSpeed(speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if speed < 0 {
		speed = 0
	}
	s.speed = speed
	slog.Info("scheduler speed changed", "speed", speed)
}

// Speed returns the current time multiplier.
func (s *Scheduler) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Run blocks, polling jobs until the context is canceled. The in-flight
// poll finishes before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("scheduler started", "jobs", len(s.jobs), "base_tick", s.baseTick)
	ticker := time.NewTicker(s.baseTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

// poll runs every job whose scaled interval has elapsed.
func (s *Scheduler) poll() {
	now := s.clk.Now()

	s.mu.Lock()
	speed := s.speed
	due := make([]*job, 0, len(s.jobs))
	if speed > 0 {
		for _, j := range s.jobs {
			scaled := time.Duration(float64(j.interval) / speed)
			if now.Sub(j.lastRun) >= scaled {
				j.lastRun = now
				due = append(due, j)
			}
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.runJob(j, now)
	}
}

// RunNow fires one job by name immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	var target *job
	for _, j := range s.jobs {
		if j.name == name {
			target = j
			break
		}
	}
	s.mu.Unlock()
	if target == nil {
		return fmt.Errorf("no job named %q", name)
	}
	s.runJob(target, s.clk.Now())
	return nil
}

func (s *Scheduler) runJob(j *job, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			j.failures++
			s.mu.Unlock()
			slog.Error("job panicked", "job", j.name, "panic", r)
		}
	}()

	err := j.fn(now)

	s.mu.Lock()
	j.runs++
	if err != nil {
		j.failures++
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("job failed", "job", j.name, "err", err)
	}
}

// JobStatus is one job's counters for the status endpoint.
type JobStatus struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	LastRun  time.Time     `json:"last_run"`
	Runs     uint64        `json:"runs"`
	Failures uint64        `json:"failures"`
}

// Status reports all jobs in registration order.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobStatus{
			Name:     j.name,
			Interval: j.interval,
			LastRun:  j.lastRun,
			Runs:     j.runs,
			Failures: j.failures,
		})
	}
	return out
}
