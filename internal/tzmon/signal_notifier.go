package tzmon

import (
	"context"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// SignalNotifier turns SIGHUP into a re-check, so operators and package
// hooks can force one after changing the zone.
type SignalNotifier struct {
	signals []os.Signal

	// ready runs once the signals are routed to the notifier.
	ready func()
}

func NewSignalNotifier() *SignalNotifier {
	return &SignalNotifier{signals: []os.Signal{unix.SIGHUP}}
}

func (n *SignalNotifier) Name() string { return "signal" }

func (n *SignalNotifier) Start(ctx context.Context, callback func(Trigger)) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, n.signals...)
	defer signal.Stop(ch)
	if n.ready != nil {
		n.ready()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			log.WithField("signal", sig.String()).Info("Received timezone re-check signal")
			callback(TriggerSignal)
		}
	}
}
