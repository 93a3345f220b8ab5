// Package fetch drives the periodic background-fetch cycle.
package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/tzwatchd/internal/watcher"
)

const (
	jobName = "background-fetch"

	// MinInterval is the shortest cadence the cycle accepts.
	MinInterval = 15 * time.Second

	// completionTimeout bounds deferred work after PerformFetch returns.
	completionTimeout = 5 * time.Second
)

// RefreshStatus mirrors the host OS's background refresh permission.
type RefreshStatus string

const (
	Authorized RefreshStatus = "authorized"
	Denied     RefreshStatus = "denied"
	Restricted RefreshStatus = "restricted"
)

// Fetcher is the background-fetch entry point of the watcher.
type Fetcher interface {
	PerformFetch(done watcher.CompletionHandler)
}

type Stats struct {
	NewData    uint64              `json:"newData"`
	NoData     uint64              `json:"noData"`
	Failed     uint64              `json:"failed"`
	LastResult watcher.FetchResult `json:"lastResult,omitempty"`
	LastRun    time.Time           `json:"lastRun,omitempty"`
}

type Scheduler struct {
	fetcher  Fetcher
	interval time.Duration
	status   RefreshStatus

	// runMu keeps scheduled and manual passes from overlapping.
	runMu sync.Mutex

	mu    sync.Mutex
	stats Stats
	sched gocron.Scheduler
}

// NewScheduler returns a cycle calling fetcher every interval. An interval of
// zero disables the cycle; one below MinInterval is raised to it.
func NewScheduler(fetcher Fetcher, interval time.Duration) *Scheduler {
	s := &Scheduler{
		fetcher:  fetcher,
		interval: interval,
		status:   Authorized,
	}
	switch {
	case interval <= 0:
		s.status = Denied
		s.interval = 0
	case interval < MinInterval:
		log.WithFields(log.Fields{
			"requested": interval,
			"minimum":   MinInterval,
		}).Warn("Background fetch interval below minimum, clamping")
		s.status = Restricted
		s.interval = MinInterval
	}
	return s
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.status == Denied {
		log.Info("Background fetch disabled")
		<-ctx.Done()
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.runOnce()
		}),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}

	s.mu.Lock()
	s.sched = sched
	s.mu.Unlock()

	log.WithField("interval", s.interval).Info("Starting background fetch cycle")
	sched.Start()

	<-ctx.Done()
	log.Info("Stopping background fetch cycle")
	return s.Close()
}

func (s *Scheduler) Close() error {
	s.mu.Lock()
	sched := s.sched
	s.sched = nil
	s.mu.Unlock()

	if sched == nil {
		return nil
	}
	return sched.Shutdown()
}

// Trigger runs one pass now, outside the schedule.
func (s *Scheduler) Trigger(ctx context.Context) (watcher.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return watcher.Failed, err
	}
	resultCh := make(chan watcher.FetchResult, 1)
	go func() {
		resultCh <- s.runOnce()
	}()

	select {
	case <-ctx.Done():
		return watcher.Failed, ctx.Err()
	case result := <-resultCh:
		return result, nil
	}
}

func (s *Scheduler) runOnce() watcher.FetchResult {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	resultCh := make(chan watcher.FetchResult, 1)
	var once sync.Once
	s.fetcher.PerformFetch(func(result watcher.FetchResult) {
		delivered := false
		once.Do(func() {
			resultCh <- result
			delivered = true
		})
		if !delivered {
			log.WithField("result", result).Warn("Fetch completion invoked more than once, ignoring")
		}
	})

	var result watcher.FetchResult
	select {
	case result = <-resultCh:
	case <-time.After(completionTimeout):
		log.Error("Fetch did not report completion, recording failure")
		result = watcher.Failed
	}

	s.record(result)
	return result
}

func (s *Scheduler) record(result watcher.FetchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch result {
	case watcher.NewData:
		s.stats.NewData++
	case watcher.NoData:
		s.stats.NoData++
	default:
		s.stats.Failed++
	}
	s.stats.LastResult = result
	s.stats.LastRun = time.Now().UTC()
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) RefreshStatus() RefreshStatus {
	return s.status
}

// Interval is the effective cadence, zero when disabled.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}
