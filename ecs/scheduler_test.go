package ecs_test

import (
	"context"
	"testing"
	"time"

	"github.com/plus3/softbody/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// budgetSum records the sum of every budget each time it runs.
type budgetSum struct {
	Budgets  ecs.Query[struct{ *Budget }]
	Viewport ecs.Singleton[Viewport]
	runs     []int
}

func (s *budgetSum) Run(*ecs.UpdateFrame) {
	total := 0
	for item := range s.Budgets.Values() {
		total += item.Budget.Current
	}
	s.runs = append(s.runs, total)
}

func TestSchedulerInitializesFields(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	ecs.SetContext(storage, Viewport{Width: 8})
	scheduler := ecs.NewScheduler(storage)

	sum := &budgetSum{}
	scheduler.Register(sum)
	require.NotNil(t, sum.Viewport.Get())
	assert.Equal(t, 8, sum.Viewport.Get().Width)

	storage.Spawn(Budget{Current: 50})
	storage.Spawn(Budget{Current: 75})
	require.NoError(t, scheduler.Once(1))

	storage.Spawn(Budget{Current: 25})
	require.NoError(t, scheduler.Once(1))
	assert.Equal(t, []int{125, 150}, sum.runs)
}

func TestSchedulerDeltaTime(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	id := storage.Spawn(Transform{}, Velocity{DX: 10, DY: 20})

	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(&DriftSystem{})
	var seen []float64
	scheduler.Register(ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
		seen = append(seen, frame.DeltaTime)
		assert.Same(t, storage, frame.Storage)
	}))

	require.NoError(t, scheduler.Once(0.5))
	require.NoError(t, scheduler.Once(0.25))

	transform := ecs.ReadComponent[Transform](storage, id)
	assert.Equal(t, float32(7.5), transform.X)
	assert.Equal(t, float32(15), transform.Y)
	assert.Equal(t, []float64{0.5, 0.25}, seen)
}

func TestSchedulerFlushesBetweenTicks(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	scheduler := ecs.NewScheduler(storage)

	spawned := false
	scheduler.Register(ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
		if !spawned {
			frame.Commands.Spawn(Transform{}, Velocity{DX: 1})
			spawned = true
		}
	}))
	drift := &DriftSystem{}
	scheduler.Register(drift)

	require.NoError(t, scheduler.Once(1))
	assert.Equal(t, 0, drift.Entities.Len(), "queued spawn is applied after the pass")
	assert.Equal(t, 1, storage.Count())

	require.NoError(t, scheduler.Once(1))
	assert.Equal(t, 1, drift.Entities.Len())
}

func TestSchedulerReexecutesQueriesPerSystem(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	scheduler := ecs.NewScheduler(storage)

	drift := &DriftSystem{}
	scheduler.Register(ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
		frame.Storage.Spawn(Transform{}, Velocity{DX: 1})
	}))
	scheduler.Register(drift)

	require.NoError(t, scheduler.Once(1.0))
	assert.Equal(t, 1, drift.Entities.Len(), "entity spawned directly by an earlier system is visible")

	require.NoError(t, scheduler.Once(1.0))
	assert.Equal(t, 2, drift.Entities.Len())
	assert.Equal(t, uint64(2), scheduler.Tick())
}

func TestSchedulerNames(t *testing.T) {
	scheduler := ecs.NewScheduler(ecs.NewStorage(newTestRegistry()))

	var order []string
	scheduler.Register(&budgetSum{})
	scheduler.RegisterNamed("first", ecs.SystemFunc(func(*ecs.UpdateFrame) { order = append(order, "first") }))
	scheduler.RegisterNamed("second", ecs.SystemFunc(func(*ecs.UpdateFrame) { order = append(order, "second") }))

	assert.Equal(t, []string{"budgetSum", "first", "second"}, scheduler.Names())

	require.NoError(t, scheduler.Once(0))
	require.NoError(t, scheduler.Once(0))
	assert.Equal(t, []string{"first", "second", "first", "second"}, order)
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	scheduler := ecs.NewScheduler(ecs.NewStorage(newTestRegistry()))
	runs := 0
	scheduler.Register(ecs.SystemFunc(func(*ecs.UpdateFrame) { runs++ }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx, time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.Positive(t, runs)
}

func TestSchedulerRunReturnsFlushError(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
		frame.Commands.Destroy(ecs.NewEntityId(99, 1))
	}))

	err := scheduler.Run(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)
}
