package tzmon

import "context"

// Notifier reports that the host timezone may have changed. It carries no
// payload; the checker re-reads the zone itself.
type Notifier interface {
	// Name identifies the notifier in logs.
	Name() string
	// Start calls callback for each detected change.
	// Blocks until ctx is cancelled or an error occurs.
	Start(ctx context.Context, callback func(Trigger)) error
}
