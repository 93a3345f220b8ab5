package bridge

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmdmdm-nz/tzwatchd/internal/tz"
)

// TimezoneChanged is the event name the hosting app listens for.
const TimezoneChanged = "timezone-changed-event"

type Event struct {
	ID         string    `json:"id"`
	Name       string    `json:"event"`
	Timezone   string    `json:"timezone"`
	DetectedAt time.Time `json:"detectedAt"`
}

func NewEvent(id tz.Identifier) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       TimezoneChanged,
		Timezone:   id.String(),
		DetectedAt: time.Now().UTC(),
	}
}

// Notification is shown when a change happens with no client attached.
type Notification struct {
	Title string
	Body  string
}

const (
	DefaultNotificationTitle = "Timezone"
	DefaultNotificationBody  = "System timezone has changed."
)

type TimezoneInfo struct {
	Timezone string `json:"timezone"`
	State    string `json:"state"`
}

type RefreshStatusInfo struct {
	Status string `json:"status"`
}

type FetchInfo struct {
	Result string `json:"result"`
}
