package runtime

// OutOfBandSnapshotSend writes ev straight to the out channel. Only valid
// while the queue is paused and the channel has room for the whole snapshot.
func (sq *SubQueue[T]) OutOfBandSnapshotSend(ev T) {
	sq.outCh <- ev
}
