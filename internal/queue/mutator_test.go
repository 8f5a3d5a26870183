package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutator_RunsWork(t *testing.T) {
	m := NewMutator()
	defer m.Close()

	ran := false
	err := m.Do(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestMutator_FIFOOrder(t *testing.T) {
	m := NewMutator()
	defer m.Close()

	// Block the worker so subsequent items pile up in enqueue order.
	release := make(chan struct{})
	started := make(chan struct{})
	go m.Do(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// Give each goroutine time to enqueue before the next, so enqueue
		// order is deterministic.
		time.Sleep(10 * time.Millisecond)
	}

	close(release)
	wg.Wait()

	require.Len(t, order, 10)
	for i, got := range order {
		assert.Equal(t, i, got, "work item %d ran out of order", i)
	}
}

func TestMutator_AtMostOneInFlight(t *testing.T) {
	m := NewMutator()
	defer m.Close()

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight)
}

func TestMutator_CancelledBeforeStartIsDropped(t *testing.T) {
	m := NewMutator()
	defer m.Close()

	// Occupy the worker.
	release := make(chan struct{})
	started := make(chan struct{})
	go m.Do(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{}, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Do(ctx, func(context.Context) error {
			ran <- struct{}{}
			return nil
		})
	}()

	// Cancel while the item is still queued, then let the worker continue.
	time.Sleep(20 * time.Millisecond)
	cancel()
	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	time.Sleep(20 * time.Millisecond)
	select {
	case <-ran:
		t.Fatal("cancelled queued work must not run")
	default:
	}
}

func TestMutator_StartedWorkRunsToCompletion(t *testing.T) {
	m := NewMutator()
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	finished := make(chan struct{})

	go m.Do(ctx, func(workCtx context.Context) error {
		close(started)
		// The caller's cancellation must not reach in-flight work.
		time.Sleep(30 * time.Millisecond)
		assert.NoError(t, workCtx.Err())
		close(finished)
		return nil
	})

	<-started
	cancel()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("in-flight work did not run to completion")
	}
}

func TestMutator_Closed(t *testing.T) {
	m := NewMutator()
	m.Close()

	err := m.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestGroup_SameKeySameMutator(t *testing.T) {
	g := NewGroup()
	defer g.Close()

	assert.Same(t, g.For("2026-08"), g.For("2026-08"))
	assert.NotSame(t, g.For("2026-08"), g.For("2026-09"))
}
