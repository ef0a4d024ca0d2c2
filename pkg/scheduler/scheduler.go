// Package scheduler runs the dashboard's periodic jobs (pollers, sweepers) on robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Job func(ctx context.Context)

type entry struct {
	name    string
	spec    string
	job     Job
	runNow  bool
	entryID cron.EntryID
}

// Scheduler wraps robfig/cron. Jobs never overlap with themselves: a tick that
// fires while the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *logrus.Logger

	mu      sync.Mutex
	entries []*entry
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

func New(logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cronLogger := cron.PrintfLogger(logger)
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger: logger,
	}
}

type Option func(*entry)

// RunImmediately also runs the job once when the scheduler starts.
func RunImmediately() Option {
	return func(e *entry) { e.runNow = true }
}

// Every registers job under name, firing once per interval.
func (s *Scheduler) Every(name string, interval time.Duration, job Job, opts ...Option) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: invalid interval %s for %s", interval, name)
	}
	return s.add(name, fmt.Sprintf("@every %s", interval), job, opts...)
}

// Cron registers job under a standard cron spec.
func (s *Scheduler) Cron(name, spec string, job Job, opts ...Option) error {
	return s.add(name, spec, job, opts...)
}

func (s *Scheduler) add(name, spec string, job Job, opts ...Option) error {
	e := &entry{name: name, spec: spec, job: job}
	for _, opt := range opts {
		opt(e)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if s.started {
		return s.schedule(e)
	}
	return nil
}

func (s *Scheduler) schedule(e *entry) error {
	ctx := s.ctx
	id, err := s.cron.AddFunc(e.spec, func() { s.run(ctx, e) })
	if err != nil {
		return fmt.Errorf("cron.AddFunc %s: %w", e.name, err)
	}
	e.entryID = id
	if e.runNow {
		go s.run(ctx, e)
	}
	return nil
}

func (s *Scheduler) run(ctx context.Context, e *entry) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	e.job(ctx)
	s.logger.WithFields(logrus.Fields{
		"job":      e.name,
		"duration": time.Since(start),
	}).Debug("scheduled job finished")
}

// Start schedules every registered job and starts the cron loop.
// Jobs receive a context that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		if err := s.schedule(e); err != nil {
			s.cancel()
			return err
		}
	}
	s.started = true
	s.cron.Start()
	s.logger.WithField("jobs", len(s.entries)).Info("scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.name)
	}
	return names
}
