package ecs_test

import (
	"reflect"
	"slices"
	"testing"

	"github.com/plus3/softbody/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moving struct {
	*Transform
	*Velocity
}

func collectIds[T any](view *ecs.View[T]) []ecs.EntityId {
	var ids []ecs.EntityId
	for id := range view.Iter() {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func TestViewGet(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	full := storage.Spawn(&Transform{X: 1, Y: 2, Z: 3}, Velocity{DX: 4}, Weight(0.5))
	partial := storage.Spawn(Transform{X: 9})

	view := ecs.NewView[struct {
		*Transform
		*Velocity
		*Weight
	}](storage)

	item := view.Get(full)
	require.NotNil(t, item)
	assert.Equal(t, Transform{X: 1, Y: 2, Z: 3}, *item.Transform)
	assert.Equal(t, float32(4), item.Velocity.DX)
	assert.Equal(t, Weight(0.5), *item.Weight)

	assert.Nil(t, view.Get(partial), "missing a required component")
	assert.Nil(t, view.Get(ecs.NewEntityId(4096, 7)), "unknown entity")
}

func TestViewFill(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	id := storage.Spawn(Transform{X: 3}, Budget{Current: 50, Max: 100})
	bare := storage.Spawn(Transform{})

	view := ecs.NewView[struct {
		*Transform
		*Budget
	}](storage)

	var out struct {
		*Transform
		*Budget
	}
	require.True(t, view.Fill(id, &out))
	assert.Equal(t, float32(3), out.Transform.X)
	assert.Equal(t, 50, out.Budget.Current)

	assert.False(t, view.Fill(bare, &out))
}

func TestViewPointersAliasStorage(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	id := storage.Spawn(Transform{X: 1}, Velocity{DX: 2})

	for item := range ecs.NewView[moving](storage).Values() {
		item.Transform.X += item.Velocity.DX
	}

	transform, err := ecs.Get[Transform](storage, id)
	require.NoError(t, err)
	assert.Equal(t, float32(3), transform.X)
}

func TestViewIterAcrossArchetypes(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	a := storage.Spawn(Transform{}, Velocity{})
	b := storage.Spawn(Transform{}, Velocity{}, Label{Value: "b"})
	c := storage.Spawn(Label{Value: "c"}, Velocity{}, Transform{})
	storage.Spawn(Transform{})
	storage.Spawn(Velocity{})

	assert.Equal(t, []ecs.EntityId{a, b, c}, collectIds(ecs.NewView[moving](storage)))
}

func TestViewIterEmptyAndEarlyBreak(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	view := ecs.NewView[moving](storage)
	assert.Empty(t, collectIds(view))

	for i := 0; i < 5; i++ {
		storage.Spawn(Transform{X: float32(i)}, Velocity{})
	}
	seen := 0
	for range view.Iter() {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestViewSkipsDestroyedEntities(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	a := storage.Spawn(Transform{}, Velocity{})
	b := storage.Spawn(Transform{}, Velocity{})
	c := storage.Spawn(Transform{}, Velocity{})
	require.NoError(t, storage.Destroy(b))

	assert.Equal(t, []ecs.EntityId{a, c}, collectIds(ecs.NewView[moving](storage)))
}

func TestViewIterIsRestartable(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	storage.Spawn(Transform{X: 1}, Velocity{})
	storage.Spawn(Transform{X: 2}, Velocity{})

	seq := ecs.NewView[moving](storage).Iter()
	collect := func() []ecs.EntityId {
		var ids []ecs.EntityId
		for id := range seq {
			ids = append(ids, id)
		}
		return ids
	}

	first := collect()
	assert.Len(t, first, 2)
	assert.Equal(t, first, collect(), "ranging twice yields the same sequence")

	// lazy: entities spawned after Iter() was called are seen
	storage.Spawn(Transform{X: 3}, Velocity{})
	assert.Len(t, collect(), 3)
}

func TestViewEntityIdField(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	a := storage.Spawn(Label{Value: "a"})
	b := storage.Spawn(Label{Value: "b"})

	got := map[ecs.EntityId]string{}
	for item := range ecs.NewView[struct {
		Id ecs.EntityId
		*Label
	}](storage).Values() {
		got[item.Id] = item.Label.Value
	}
	assert.Equal(t, map[ecs.EntityId]string{a: "a", b: "b"}, got)
}

func TestViewOptionalFields(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	both := storage.Spawn(Transform{X: 1}, Velocity{DX: 1})
	only := storage.Spawn(Transform{X: 2})
	storage.Spawn(Velocity{DX: 3})

	view := ecs.NewView[struct {
		*Transform
		Velocity *Velocity `ecs:"optional"`
	}](storage)

	assert.Equal(t, []ecs.EntityId{both, only}, collectIds(view))

	item := view.Get(both)
	require.NotNil(t, item)
	assert.NotNil(t, item.Velocity)

	item = view.Get(only)
	require.NotNil(t, item)
	assert.Nil(t, item.Velocity)
}

func TestViewOptionalDoesNotRelaxRequired(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	storage.Spawn(Transform{}, Velocity{})
	match := storage.Spawn(Transform{}, Budget{Max: 1})

	view := ecs.NewView[struct {
		Transform *Transform
		Velocity  *Velocity `ecs:"optional"`
		Budget    *Budget
	}](storage)
	assert.Equal(t, []ecs.EntityId{match}, collectIds(view))
}

func TestViewAllOptionalMatchesEverything(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	storage.Spawn(Velocity{})
	storage.Spawn(Budget{})
	storage.Spawn(Velocity{}, Budget{})
	storage.Spawn(Label{})

	count, empty := 0, 0
	for item := range ecs.NewView[struct {
		Velocity *Velocity `ecs:"optional"`
		Budget   *Budget   `ecs:"optional"`
	}](storage).Values() {
		count++
		if item.Velocity == nil && item.Budget == nil {
			empty++
		}
	}
	assert.Equal(t, 4, count)
	assert.Equal(t, 1, empty)
}

func TestViewInvalidTagPanics(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	assert.PanicsWithValue(t, `invalid ecs tag value: "sometimes" (only "optional" is supported)`, func() {
		ecs.NewView[struct {
			Transform *Transform
			Velocity  *Velocity `ecs:"sometimes"`
		}](storage)
	})
}

func TestViewSpawn(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	view := ecs.NewView[struct {
		Transform *Transform
		Velocity  *Velocity `ecs:"optional"`
		Budget    *Budget   `ecs:"optional"`
	}](storage)

	withBudget := view.Spawn(struct {
		Transform *Transform
		Velocity  *Velocity `ecs:"optional"`
		Budget    *Budget   `ecs:"optional"`
	}{Transform: &Transform{X: 5}, Budget: &Budget{Max: 10}})

	item := view.Get(withBudget)
	require.NotNil(t, item)
	assert.Equal(t, float32(5), item.Transform.X)
	assert.Nil(t, item.Velocity)
	assert.Equal(t, 10, item.Budget.Max)
	assert.False(t, storage.HasComponent(withBudget, reflect.TypeFor[Velocity]()))

	// same archetype as a plain Spawn with the same components
	plain := storage.Spawn(Budget{}, Transform{})
	assert.Len(t, storage.Archetypes(), 1)
	assert.NotNil(t, view.Get(plain))

	assert.PanicsWithValue(t, "required component is nil in View.Spawn", func() {
		view.Spawn(struct {
			Transform *Transform
			Velocity  *Velocity `ecs:"optional"`
			Budget    *Budget   `ecs:"optional"`
		}{})
	})
}
