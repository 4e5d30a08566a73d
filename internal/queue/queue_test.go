package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskvault/backupd/internal/model"
	"github.com/duskvault/backupd/internal/queue"
)

func TestPriorityOrdering(t *testing.T) {
	q := queue.New(1)

	// dirA 500MB prio 60, dirB 500KB prio 100, dirC 2GB prio 40
	q.Push(model.Task{ID: 1, DirectoryIndex: 0, Priority: 60})
	q.Push(model.Task{ID: 2, DirectoryIndex: 1, Priority: 100})
	q.Push(model.Task{ID: 3, DirectoryIndex: 2, Priority: 40})

	// one worker gives a dispatch capacity of 2: two tasks go out now, the
	// third once a slot frees up
	require.Equal(t, 2, q.DrainDispatchable())

	var order []int
	for i := 0; i < 3; i++ {
		task := <-q.Dispatch()
		order = append(order, task.DirectoryIndex)
		q.DrainDispatchable()
	}
	assert.Equal(t, []int{1, 0, 2}, order)
}

func TestStableFIFOWithinPriorityBand(t *testing.T) {
	q := queue.New(2) // dispatch capacity 4, room for all three
	q.Push(model.Task{ID: 1, DirectoryIndex: 10, Priority: 80})
	q.Push(model.Task{ID: 2, DirectoryIndex: 11, Priority: 80})
	q.Push(model.Task{ID: 3, DirectoryIndex: 12, Priority: 80})

	q.DrainDispatchable()

	assert.Equal(t, 10, (<-q.Dispatch()).DirectoryIndex)
	assert.Equal(t, 11, (<-q.Dispatch()).DirectoryIndex)
	assert.Equal(t, 12, (<-q.Dispatch()).DirectoryIndex)
}

func TestDispatchFallsBackToHeadWhenChannelFull(t *testing.T) {
	q := queue.New(1) // dispatch capacity = 2
	q.Push(model.Task{ID: 1, DirectoryIndex: 0, Priority: 50})
	q.Push(model.Task{ID: 2, DirectoryIndex: 1, Priority: 50})
	q.Push(model.Task{ID: 3, DirectoryIndex: 2, Priority: 90})

	// only 2 slots; the highest-priority two should win, third stays pending
	n := q.DrainDispatchable()
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, q.PendingLen())
}

func TestObserveTickStarvationSignal(t *testing.T) {
	q := queue.New(1)
	q.Push(model.Task{ID: 1, DirectoryIndex: 0, Priority: 50})
	q.Push(model.Task{ID: 2, DirectoryIndex: 1, Priority: 50})
	q.Push(model.Task{ID: 3, DirectoryIndex: 2, Priority: 50})
	q.DrainDispatchable() // fills the capacity-2 channel, leaves 1 pending

	assert.False(t, q.ObserveTick(), "first full tick should not yet signal starvation")
	assert.True(t, q.ObserveTick(), "second consecutive full tick should signal starvation")
}

func TestDirectoryIndexAppearsAtMostOnce(t *testing.T) {
	q := queue.New(2)
	seen := map[int]bool{}
	q.Push(model.Task{ID: 1, DirectoryIndex: 5, Priority: 50})
	q.DrainDispatchable()
	task := <-q.Dispatch()
	assert.False(t, seen[task.DirectoryIndex])
	seen[task.DirectoryIndex] = true
}
