package tzmon

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Service turns OS notifications and a periodic reconcile into checks.
type Service struct {
	checker           Checker
	notifiers         []Notifier
	reconcileInterval time.Duration

	mu       sync.Mutex
	triggers map[Trigger]uint64
}

// NewService returns a monitor driving checker. A reconcileInterval of zero
// disables the periodic re-check.
func NewService(checker Checker, reconcileInterval time.Duration, notifiers ...Notifier) *Service {
	return &Service{
		checker:           checker,
		notifiers:         notifiers,
		reconcileInterval: reconcileInterval,
		triggers:          make(map[Trigger]uint64),
	}
}

func (s *Service) Start(ctx context.Context) error {
	log.Info("Starting timezone monitoring service")
	defer log.Info("Stopping timezone monitoring service")

	var wg sync.WaitGroup
	for _, n := range s.notifiers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.Start(ctx, s.handleTrigger); err != nil && ctx.Err() == nil {
				log.WithField("notifier", n.Name()).WithError(err).Error("Timezone notifier failed")
			}
		}()
	}
	defer wg.Wait()

	if s.reconcileInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.handleTrigger(TriggerReconcile)
		}
	}
}

func (s *Service) Close() error {
	return nil
}

func (s *Service) handleTrigger(trigger Trigger) {
	s.mu.Lock()
	s.triggers[trigger]++
	s.mu.Unlock()

	changed, err := s.checker.CheckForChange()
	fields := log.Fields{
		"trigger": trigger,
		"changed": changed,
	}
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("Timezone check failed")
		return
	}
	log.WithFields(fields).Debug("Timezone check complete")
}

// Triggers returns how many times each trigger kind fired.
func (s *Service) Triggers() map[Trigger]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Trigger]uint64, len(s.triggers))
	for k, v := range s.triggers {
		out[k] = v
	}
	return out
}
