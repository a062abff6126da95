package ecs

import (
	"iter"
	"reflect"
	"slices"

	"github.com/TheBitDrifter/mask"
)

type byTypeName []reflect.Type

func (a byTypeName) Len() int           { return len(a) }
func (a byTypeName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byTypeName) Less(i, j int) bool { return a[i].String() < a[j].String() }

// Archetype represents a unique combination of component types
type Archetype struct {
	id       uint32
	mask     mask.Mask
	types    []reflect.Type
	storages []iComponentStorage

	// rows maps a storage row to the entity living there; 0 marks a free row.
	rows     []EntityId
	freeRows []int
	count    int
}

// NewArchetype creates a new archetype with the given ID and sorted component types
func NewArchetype(id uint32, types []reflect.Type, registry *ComponentRegistry) *Archetype {
	a := &Archetype{
		id:       id,
		mask:     registry.maskOf(types),
		types:    types,
		storages: make([]iComponentStorage, len(types)),
	}

	// Initialize storage for each component type
	for idx, typ := range types {
		factory := registry.getFactory(typ)
		if factory == nil {
			panic("component type " + typ.String() + " not registered")
		}
		a.storages[idx] = factory()
	}

	return a
}

// insert places an entity and its components into a free row and returns it.
// components must cover every type of the archetype.
func (a *Archetype) insert(id EntityId, components []any) int {
	var row int
	if n := len(a.freeRows); n > 0 {
		row = a.freeRows[n-1]
		a.freeRows = a.freeRows[:n-1]
		a.rows[row] = id
	} else {
		row = len(a.rows)
		a.rows = append(a.rows, id)
	}

	for _, comp := range components {
		if col := a.column(componentType(comp)); col >= 0 {
			a.storages[col].Set(row, comp)
		}
	}

	a.count++
	return row
}

// remove clears a row. Components are dropped without being disposed.
func (a *Archetype) remove(row int) {
	if row < 0 || row >= len(a.rows) || a.rows[row] == 0 {
		return
	}
	for _, storage := range a.storages {
		storage.Delete(row)
	}
	a.rows[row] = 0
	a.freeRows = append(a.freeRows, row)
	a.count--
}

func (a *Archetype) column(compType reflect.Type) int {
	for i, typ := range a.types {
		if typ == compType {
			return i
		}
	}
	return -1
}

// GetComponent returns a pointer to the component of the given type stored at row
func (a *Archetype) GetComponent(row int, compType reflect.Type) any {
	idx := a.column(compType)
	if idx == -1 {
		return nil
	}
	return a.storages[idx].Get(row)
}

// components returns pointers to every component stored at row, in type order.
func (a *Archetype) components(row int) []any {
	out := make([]any, 0, len(a.storages))
	for _, storage := range a.storages {
		if c := storage.Get(row); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// HasComponent checks if this archetype has the given component type
func (a *Archetype) HasComponent(compType reflect.Type) bool {
	return slices.Contains(a.types, compType)
}

// ID returns the archetype's unique identifier
func (a *Archetype) ID() uint32 {
	return a.id
}

// Types returns the sorted component types for this archetype
func (a *Archetype) Types() []reflect.Type {
	return a.types
}

// Len returns the number of live entities in this archetype
func (a *Archetype) Len() int {
	return a.count
}

// Iter returns an iterator over the live rows and the entity stored in each
func (a *Archetype) Iter() iter.Seq2[int, EntityId] {
	return func(yield func(int, EntityId) bool) {
		for row, id := range a.rows {
			if id == 0 {
				continue
			}
			if !yield(row, id) {
				return
			}
		}
	}
}
