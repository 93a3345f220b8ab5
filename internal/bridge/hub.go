package bridge

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/tzwatchd/internal/runtime"
	"github.com/dmdmdm-nz/tzwatchd/internal/tz"
)

// Hub fans watcher notifications out to bridge clients. A change seen while
// no client is attached is held and handed to the next subscriber.
type Hub struct {
	subsMu       sync.Mutex
	notification Notification

	subs   map[int]*runtime.SubQueue[Event]
	nextID int
	// pending is guarded by subsMu so a subscriber cannot miss it.
	pending *Event
	closed  bool
}

func NewHub(notification Notification) *Hub {
	if notification.Title == "" {
		notification.Title = DefaultNotificationTitle
	}
	if notification.Body == "" {
		notification.Body = DefaultNotificationBody
	}
	return &Hub{
		notification: notification,
		subs:         make(map[int]*runtime.SubQueue[Event]),
	}
}

// Publish is the watcher's listener.
func (h *Hub) Publish(id tz.Identifier) {
	ev := NewEvent(id)

	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	if h.closed {
		return
	}

	if len(h.subs) == 0 {
		h.pending = &ev
		log.WithFields(log.Fields{
			"title":    h.notification.Title,
			"body":     h.notification.Body,
			"timezone": ev.Timezone,
		}).Info("No bridge client attached, holding timezone change")
		return
	}

	log.WithFields(log.Fields{
		"timezone":    ev.Timezone,
		"id":          ev.ID,
		"subscribers": len(h.subs),
	}).Debug("Publishing timezone change")
	for _, sub := range h.subs {
		sub.Enqueue(ev)
	}
}

// SetNotification replaces the text logged for a held change. An empty
// value or the literal "null" keeps the current one.
func (h *Hub) SetNotification(title, body string) {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	if title != "" && title != "null" {
		h.notification.Title = title
	}
	if body != "" && body != "null" {
		h.notification.Body = body
	}
}

func (h *Hub) Notification() Notification {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	return h.notification
}

// Subscribe delivers a held change first, then live events.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	sub := runtime.NewSubQueue[Event](8)

	h.subsMu.Lock()
	if h.closed {
		h.subsMu.Unlock()
		sub.Close()
		return sub.Chan(), func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	pending := h.pending
	h.pending = nil
	h.subsMu.Unlock()

	if pending != nil {
		log.WithField("timezone", pending.Timezone).Debug("Delivering held timezone change")
		sub.OutOfBandSnapshotSend(*pending)
	}
	sub.SetPaused(false)

	unsub := func() {
		h.subsMu.Lock()
		if q, ok := h.subs[id]; ok {
			delete(h.subs, id)
			q.Close()
		}
		h.subsMu.Unlock()
	}
	return sub.Chan(), unsub
}

// Pending returns the held change, if any.
func (h *Hub) Pending() (Event, bool) {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	if h.pending == nil {
		return Event{}, false
	}
	return *h.pending, true
}

func (h *Hub) Subscribers() int {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	return len(h.subs)
}

func (h *Hub) Close() error {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for id, q := range h.subs {
		q.Close()
		delete(h.subs, id)
	}
	return nil
}
