package watcher

import "github.com/dmdmdm-nz/tzwatchd/internal/tz"

type State string

const (
	Stopped  State = "stopped"
	Watching State = "watching"
)

// FetchResult classifies a background-fetch pass for the host scheduler.
type FetchResult string

const (
	NewData FetchResult = "newData"
	NoData  FetchResult = "noData"
	Failed  FetchResult = "failed"
)

// Listener receives the new identifier after a change.
type Listener func(id tz.Identifier)

// CompletionHandler must be invoked exactly once per PerformFetch.
type CompletionHandler func(result FetchResult)

// Plugin is the capability set the host bridge registers at startup.
type Plugin interface {
	Start(listener Listener) error
	Stop()
	CheckForChange() (bool, error)
	PerformFetch(done CompletionHandler)
}
