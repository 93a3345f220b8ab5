package runtime

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

type worker struct {
	name   string
	run    func(context.Context) error
	closeF func() error
}

// Supervisor runs named workers until the context ends, then closes them in
// reverse registration order.
type Supervisor struct {
	mu      sync.Mutex
	workers []worker
	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

func (s *Supervisor) Add(name string, run func(context.Context) error, closeF func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker{name: name, run: run, closeF: closeF})
}

func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.WithField("worker", w.name).Debug("Worker starting")
			err := w.run(ctx)
			if err != nil {
				log.WithField("worker", w.name).WithError(err).Error("Worker exited with error")
				s.errOnce.Do(func() { s.err = err })
				return
			}
			log.WithField("worker", w.name).Debug("Worker exited")
		}()
	}
	return nil
}

// Wait blocks until ctx is done, closes every worker and waits for them to
// return. It reports the first run error; close errors are only logged.
func (s *Supervisor) Wait(ctx context.Context) error {
	<-ctx.Done()

	s.mu.Lock()
	workers := append([]worker(nil), s.workers...)
	s.mu.Unlock()

	var closeErrs []error
	for i := len(workers) - 1; i >= 0; i-- {
		if workers[i].closeF == nil {
			continue
		}
		if err := workers[i].closeF(); err != nil {
			closeErrs = append(closeErrs, err)
			log.WithField("worker", workers[i].name).WithError(err).Warn("Worker close failed")
		}
	}
	s.wg.Wait()

	if len(closeErrs) > 0 {
		log.WithError(errors.Join(closeErrs...)).Debug("Shutdown finished with close errors")
	}
	return s.err
}
