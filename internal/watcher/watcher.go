// Package watcher detects changes of the host timezone and reports them to a
// single listener.
package watcher

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/tzwatchd/internal/tz"
)

var _ Plugin = (*Watcher)(nil)

type Watcher struct {
	source tz.Source

	// checkMu serializes checks, listener calls included, so listeners
	// observe changes in order.
	checkMu sync.Mutex

	mu        sync.Mutex
	listener  Listener
	lastKnown tz.Identifier
}

func New(source tz.Source) *Watcher {
	return &Watcher{source: source}
}

// Start records listener and takes the current zone as the baseline. If the
// zone cannot be read the watcher still starts, with no baseline, and the
// error wraps tz.ErrUnavailable.
func (w *Watcher) Start(listener Listener) error {
	if listener == nil {
		return errors.New("watcher: nil listener")
	}

	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	id, err := w.source.Current()

	w.mu.Lock()
	w.listener = listener
	if err != nil {
		w.lastKnown = ""
	} else {
		w.lastKnown = id
	}
	w.mu.Unlock()

	if err != nil {
		log.WithError(err).Warn("Starting timezone watcher without a baseline")
		return fmt.Errorf("watcher start: %w", err)
	}

	log.WithField("timezone", id).Info("Timezone watcher started")
	return nil
}

// Stop drops the listener. Later checks are no-ops until Start is called again.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasWatching := w.listener != nil
	w.listener = nil
	w.mu.Unlock()

	if wasWatching {
		log.Info("Timezone watcher stopped")
	}
}

// CheckForChange compares the current zone with the last known one and
// notifies the listener when they differ. It reports whether the listener
// was notified. The listener must not call CheckForChange or PerformFetch.
func (w *Watcher) CheckForChange() (bool, error) {
	w.checkMu.Lock()
	defer w.checkMu.Unlock()
	return w.check()
}

func (w *Watcher) check() (bool, error) {
	w.mu.Lock()
	listener := w.listener
	w.mu.Unlock()

	if listener == nil {
		return false, nil
	}

	id, err := w.source.Current()
	if err != nil {
		log.WithError(err).Debug("Timezone unavailable, treating as unchanged")
		return false, err
	}

	w.mu.Lock()
	previous := w.lastKnown
	if previous == id {
		w.mu.Unlock()
		return false, nil
	}
	w.lastKnown = id
	// Stop may have raced with the read above.
	listener = w.listener
	w.mu.Unlock()

	if previous == "" {
		log.WithField("timezone", id).Info("Timezone baseline established")
		return false, nil
	}

	log.WithFields(log.Fields{
		"from": previous,
		"to":   id,
	}).Info("Detected timezone change")

	if listener == nil {
		return false, nil
	}
	listener(id)
	return true, nil
}

// PerformFetch runs one background-fetch pass and always calls done exactly
// once: Failed when the zone could not be read or the listener panicked,
// NewData when a change was delivered, NoData otherwise.
func (w *Watcher) PerformFetch(done CompletionHandler) {
	result := Failed
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Background fetch panicked")
			result = Failed
		}
		if done != nil {
			done(result)
		}
	}()

	changed, err := w.CheckForChange()
	switch {
	case err != nil:
		result = Failed
	case changed:
		result = NewData
	default:
		result = NoData
	}

	log.WithField("result", result).Debug("Background fetch complete")
}

func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listener == nil {
		return Stopped
	}
	return Watching
}

// LastKnown returns the baseline zone, if one has been read.
func (w *Watcher) LastKnown() (tz.Identifier, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastKnown, w.lastKnown != ""
}
