package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestSupervisor_RunsAllWorkers(t *testing.T) {
	s := NewSupervisor()
	var started atomic.Int32
	for _, name := range []string{"tzmon", "fetch", "bridge"} {
		s.Add(name, func(ctx context.Context) error {
			started.Add(1)
			return blockUntilDone(ctx)
		}, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.Eventually(t, func() bool { return started.Load() == 3 }, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, s.Wait(ctx))
}

func TestSupervisor_ClosesInReverseOrder(t *testing.T) {
	s := NewSupervisor()
	var mu sync.Mutex
	var order []string
	for _, name := range []string{"tzmon", "fetch", "bridge"} {
		s.Add(name, blockUntilDone, func() error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	_ = s.Wait(ctx)

	assert.Equal(t, []string{"bridge", "fetch", "tzmon"}, order)
}

func TestSupervisor_FirstRunErrorWins(t *testing.T) {
	s := NewSupervisor()
	first := errors.New("first")
	second := errors.New("second")
	firstDone := make(chan struct{})

	s.Add("a", func(ctx context.Context) error {
		defer close(firstDone)
		return first
	}, nil)
	s.Add("b", func(ctx context.Context) error {
		<-firstDone
		return second
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	<-firstDone
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.Equal(t, first, s.Wait(ctx))
}

func TestSupervisor_CloseErrorNotReturned(t *testing.T) {
	s := NewSupervisor()
	s.Add("bridge", blockUntilDone, func() error { return errors.New("listener already closed") })
	s.Add("nil-close", blockUntilDone, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.NoError(t, s.Wait(ctx))
}

func TestSupervisor_AddAfterStartIsClosed(t *testing.T) {
	s := NewSupervisor()
	var lateRan, lateClosed atomic.Bool

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	s.Add("late", func(ctx context.Context) error {
		lateRan.Store(true)
		return nil
	}, func() error {
		lateClosed.Store(true)
		return nil
	})

	cancel()
	_ = s.Wait(ctx)
	assert.False(t, lateRan.Load())
	assert.True(t, lateClosed.Load())
}

func TestSupervisor_Empty(t *testing.T) {
	s := NewSupervisor()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	assert.NoError(t, s.Wait(ctx))
}
