package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskvault/backupd/internal/model"
	"github.com/duskvault/backupd/internal/session"
)

func newTestAggregator() *session.Aggregator {
	a := session.New(model.NewSession())
	a.SetDirectories([]model.Directory{
		{Name: "a", Selected: true, EstimatedBytes: 100},
		{Name: "b", Selected: true, EstimatedBytes: 200},
	})
	return a
}

func TestCompletedSizeReDerivedFromDirectories(t *testing.T) {
	a := newTestAggregator()
	a.UpdateDirectory(0, func(d *model.Directory) { d.BytesProcessed = 50 })
	a.UpdateDirectory(1, func(d *model.Directory) { d.BytesProcessed = 75 })
	assert.Equal(t, int64(125), a.Raw().CompletedSize)
}

func TestCompletedSizeIdempotentUnderOutOfOrderUpdates(t *testing.T) {
	a := newTestAggregator()
	a.UpdateDirectory(1, func(d *model.Directory) { d.BytesProcessed = 75 })
	a.UpdateDirectory(0, func(d *model.Directory) { d.BytesProcessed = 50 })
	a.UpdateDirectory(0, func(d *model.Directory) { d.BytesProcessed = 50 }) // replay, no change
	assert.Equal(t, int64(125), a.Raw().CompletedSize)
}

func TestStateTransitions(t *testing.T) {
	a := newTestAggregator()
	assert.True(t, a.TransitionState(model.ESessionState.Running()))
	assert.True(t, a.TransitionState(model.ESessionState.Paused()))
	assert.False(t, a.TransitionState(model.SessionState(99)))
	assert.Equal(t, model.ESessionState.Paused(), a.State())
}

func TestConcurrentDirectoryUpdatesAreSafe(t *testing.T) {
	a := newTestAggregator()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.UpdateDirectory(0, func(d *model.Directory) { d.BytesProcessed++ })
		}()
		go func() {
			defer wg.Done()
			a.UpdateDirectory(1, func(d *model.Directory) { d.BytesProcessed++ })
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(200), a.Raw().CompletedSize)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	a := newTestAggregator()
	events, unsubscribe := a.Subscribe()
	defer unsubscribe()

	a.UpdateDirectory(0, func(d *model.Directory) { d.Progress = 42 })

	select {
	case ev := <-events:
		assert.Equal(t, session.EventProgressUpdate, ev.Type)
		assert.Equal(t, 42, ev.Progress)
	case <-time.After(time.Second):
		t.Fatal("expected a ProgressUpdate event")
	}
}

func TestSlowSubscriberDropsRatherThanBlocksPublisher(t *testing.T) {
	a := newTestAggregator()
	events, unsubscribe := a.Subscribe()
	defer unsubscribe()

	// publish far more than the subscriber buffer without ever reading;
	// this must not deadlock.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			a.UpdateDirectory(0, func(d *model.Directory) { d.Progress = i % 100 })
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
	require.NotNil(t, events)
}
