package tzmon

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const defaultDebounce = 250 * time.Millisecond

// FileNotifier watches the files that carry the host zone. Tools such as
// timedatectl replace /etc/localtime rather than writing it, so the parent
// directories are watched and events are filtered by file name.
type FileNotifier struct {
	paths    []string
	debounce time.Duration
}

func NewFileNotifier(paths []string, debounce time.Duration) *FileNotifier {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &FileNotifier{paths: paths, debounce: debounce}
}

func (n *FileNotifier) Name() string { return "file" }

func (n *FileNotifier) Start(ctx context.Context, callback func(Trigger)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	wanted := make(map[string]struct{}, len(n.paths))
	dirs := make(map[string]struct{})
	for _, p := range n.paths {
		p = filepath.Clean(p)
		wanted[p] = struct{}{}
		dirs[filepath.Dir(p)] = struct{}{}
	}

	added := 0
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			log.WithField("dir", dir).WithError(err).Warn("Cannot watch timezone directory")
			continue
		}
		added++
		log.WithField("dir", dir).Debug("Watching timezone directory")
	}
	if added == 0 {
		log.Warn("No timezone directories could be watched, file notifications disabled")
		<-ctx.Done()
		return nil
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	fire := func() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		callback(TriggerFilesystem)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if _, ok := wanted[filepath.Clean(ev.Name)]; !ok {
				continue
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}

			log.WithFields(log.Fields{
				"path": ev.Name,
				"op":   ev.Op.String(),
			}).Trace("Timezone file event")

			// Collapse the remove/create/rename burst of one update.
			mu.Lock()
			if timer == nil {
				timer = time.AfterFunc(n.debounce, fire)
			} else {
				timer.Reset(n.debounce)
			}
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("Timezone file watcher error")
		}
	}
}
