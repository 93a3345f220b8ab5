package tzmon

type Trigger string

const (
	TriggerFilesystem Trigger = "FILESYSTEM"
	TriggerSignal     Trigger = "SIGNAL"
	TriggerReconcile  Trigger = "RECONCILE"
)

// Checker is the part of the timezone watcher the monitor drives.
type Checker interface {
	CheckForChange() (bool, error)
}
