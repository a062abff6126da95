package ecs

import (
	"iter"
	"reflect"
	"slices"
	"sort"

	"github.com/TheBitDrifter/mask"
	"github.com/kamstrup/intmap"
)

// Disposer is implemented by components that own external resources. The
// storage calls Dispose when such a component is detached, replaced, or its
// entity destroyed.
type Disposer interface {
	Dispose()
}

// Storage is the registry: it owns every entity, its components and the
// singleton contexts. It is not safe for concurrent use.
type Storage struct {
	registry   *ComponentRegistry
	archetypes []*Archetype
	byMask     map[mask.Mask]*Archetype

	locations   *intmap.Map[EntityId, location]
	generations []uint32
	freeSlots   []uint32
	alive       int

	singletons     map[reflect.Type]*singletonEntry
	singletonOrder []reflect.Type
}

// NewStorage creates a new ECS storage system with the given component registry
func NewStorage(registry *ComponentRegistry) *Storage {
	s := &Storage{
		registry:   registry,
		byMask:     make(map[mask.Mask]*Archetype),
		locations:  intmap.New[EntityId, location](256),
		singletons: make(map[reflect.Type]*singletonEntry),
	}
	return s
}

// Registry returns the component registry backing this storage.
func (s *Storage) Registry() *ComponentRegistry {
	return s.registry
}

// CreateEntity creates an entity with no components.
func (s *Storage) CreateEntity() EntityId {
	return s.Spawn()
}

// Spawn creates a new entity with the provided components
func (s *Storage) Spawn(components ...any) EntityId {
	id := s.allocateId()
	archetype := s.archetypeFor(extractComponentTypes(components))
	row := archetype.insert(id, components)
	s.locations.Put(id, location{archetype: archetype, row: row})
	s.alive++
	return id
}

func (s *Storage) allocateId() EntityId {
	if n := len(s.freeSlots); n > 0 {
		index := s.freeSlots[n-1]
		s.freeSlots = s.freeSlots[:n-1]
		return NewEntityId(index, s.generations[index])
	}
	index := uint32(len(s.generations))
	s.generations = append(s.generations, 1)
	return NewEntityId(index, 1)
}

// Alive reports whether the entity exists.
func (s *Storage) Alive(id EntityId) bool {
	_, ok := s.locations.Get(id)
	return ok
}

// Count returns the number of live entities.
func (s *Storage) Count() int {
	return s.alive
}

// Destroy disposes every component of the entity and frees its id.
func (s *Storage) Destroy(id EntityId) error {
	loc, ok := s.locations.Get(id)
	if !ok {
		return &EntityNotFoundError{Id: id}
	}

	for _, comp := range loc.archetype.components(loc.row) {
		dispose(comp)
	}
	loc.archetype.remove(loc.row)
	s.locations.Del(id)
	s.alive--

	index := id.Index()
	s.generations[index]++
	if s.generations[index] == 0 {
		s.generations[index] = 1
	}
	s.freeSlots = append(s.freeSlots, index)
	return nil
}

// Attach adds a component to an entity. If the entity already carries a
// component of that type it is replaced in place and the old value disposed,
// unless the new value is the stored one (its pointer or an equal copy).
func (s *Storage) Attach(id EntityId, component any) error {
	loc, ok := s.locations.Get(id)
	if !ok {
		return &EntityNotFoundError{Id: id}
	}

	compType := componentType(component)
	if col := loc.archetype.column(compType); col >= 0 {
		old := loc.archetype.storages[col].Get(loc.row)
		if !sameComponent(old, component) {
			dispose(old)
		}
		loc.archetype.storages[col].Set(loc.row, component)
		return nil
	}

	newTypes := make([]reflect.Type, 0, len(loc.archetype.types)+1)
	newTypes = append(newTypes, loc.archetype.types...)
	newTypes = append(newTypes, compType)
	sort.Sort(byTypeName(newTypes))

	components := append(loc.archetype.components(loc.row), component)
	s.move(id, loc, s.archetypeFor(newTypes), components)
	return nil
}

// Detach removes and disposes a component. The entity stays alive even when
// it has no components left.
func (s *Storage) Detach(id EntityId, compType reflect.Type) error {
	loc, ok := s.locations.Get(id)
	if !ok {
		return &EntityNotFoundError{Id: id}
	}

	col := loc.archetype.column(compType)
	if col < 0 {
		return &ComponentNotFoundError{Id: id, Type: compType}
	}
	dispose(loc.archetype.storages[col].Get(loc.row))

	newTypes := make([]reflect.Type, 0, len(loc.archetype.types)-1)
	components := make([]any, 0, len(loc.archetype.types)-1)
	for i, typ := range loc.archetype.types {
		if i == col {
			continue
		}
		newTypes = append(newTypes, typ)
		components = append(components, loc.archetype.storages[i].Get(loc.row))
	}

	s.move(id, loc, s.archetypeFor(newTypes), components)
	return nil
}

// move relocates an entity to another archetype. Component values are copied
// before the old row is cleared.
func (s *Storage) move(id EntityId, from location, to *Archetype, components []any) {
	row := to.insert(id, components)
	from.archetype.remove(from.row)
	s.locations.Put(id, location{archetype: to, row: row})
}

// archetypeFor returns the archetype for a sorted type list, creating it on first use.
func (s *Storage) archetypeFor(types []reflect.Type) *Archetype {
	m := s.registry.maskOf(types)
	if archetype, ok := s.byMask[m]; ok {
		return archetype
	}
	archetype := NewArchetype(uint32(len(s.archetypes)+1), types, s.registry)
	s.archetypes = append(s.archetypes, archetype)
	s.byMask[m] = archetype
	return archetype
}

// GetArchetype returns an archetype storage (if one exists)
func (s *Storage) GetArchetype(components ...any) *Archetype {
	return s.GetArchetypeByTypes(extractComponentTypes(components))
}

// GetArchetypeByTypes returns an archetype storage (if one exists) based on reflect.Type
func (s *Storage) GetArchetypeByTypes(types []reflect.Type) *Archetype {
	sorted := slices.Clone(types)
	sort.Sort(byTypeName(sorted))
	return s.byMask[s.registry.maskOf(sorted)]
}

// Archetypes returns every archetype in creation order
func (s *Storage) Archetypes() []*Archetype {
	return s.archetypes
}

// Entities returns an iterator over every live entity. The order is archetype
// creation order, then row order: unspecified but stable for a given history.
func (s *Storage) Entities() iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		for _, archetype := range s.archetypes {
			for _, id := range archetype.Iter() {
				if !yield(id) {
					return
				}
			}
		}
	}
}

// GetComponent returns the component for the given entity ID and component
// type, or nil when absent.
func (s *Storage) GetComponent(id EntityId, compType reflect.Type) any {
	loc, ok := s.locations.Get(id)
	if !ok {
		return nil
	}
	return loc.archetype.GetComponent(loc.row, compType)
}

// HasComponent checks if an entity has a specific component type
func (s *Storage) HasComponent(id EntityId, compType reflect.Type) bool {
	loc, ok := s.locations.Get(id)
	if !ok {
		return false
	}
	return loc.archetype.HasComponent(compType)
}

// ComponentTypes lists the component types carried by an entity.
func (s *Storage) ComponentTypes(id EntityId) []reflect.Type {
	loc, ok := s.locations.Get(id)
	if !ok {
		return nil
	}
	return loc.archetype.types
}

// Get returns the entity's component of type T. Reading an absent component
// is an error, never a zero value.
func Get[T any](s *Storage, id EntityId) (*T, error) {
	t := reflect.TypeFor[T]()
	loc, ok := s.locations.Get(id)
	if !ok {
		return nil, &EntityNotFoundError{Id: id}
	}
	comp := loc.archetype.GetComponent(loc.row, t)
	if comp == nil {
		return nil, &ComponentNotFoundError{Id: id, Type: t}
	}
	return comp.(*T), nil
}

// extractComponentTypes extracts and sorts component types from a slice of components
func extractComponentTypes(components []any) []reflect.Type {
	types := make([]reflect.Type, 0, len(components))
	for _, comp := range components {
		types = append(types, componentType(comp))
	}
	sort.Sort(byTypeName(types))
	return types
}

// componentType resolves the stored type of a component value or pointer.
func componentType(comp any) reflect.Type {
	compType := reflect.TypeOf(comp)
	if compType == nil {
		panic("components cannot be nil")
	}

	// If it's a pointer, get the underlying type
	if compType.Kind() == reflect.Ptr {
		compType = compType.Elem()
	}

	// Components can be structs or primitives (int, string, etc.)
	// But not pointers, maps, channels, or functions (those aren't value types)
	if compType.Kind() == reflect.Ptr || compType.Kind() == reflect.Map ||
		compType.Kind() == reflect.Chan || compType.Kind() == reflect.Func {
		panic("components cannot be pointers, maps, channels, or functions")
	}
	return compType
}

// sameComponent reports whether component aliases stored, a pointer into a
// column slot. Comparable values that equal the stored value count as the same
// since they share whatever resources the stored value owns.
func sameComponent(stored, component any) bool {
	if stored == nil {
		return false
	}
	if reflect.TypeOf(component).Kind() == reflect.Ptr {
		return stored == component
	}
	v := reflect.ValueOf(component)
	return v.Comparable() && v.Equal(reflect.ValueOf(stored).Elem())
}

// dispose releases comp when it implements Disposer on its value or pointer.
func dispose(comp any) {
	if comp == nil {
		return
	}
	if d, ok := comp.(Disposer); ok {
		d.Dispose()
		return
	}
	v := reflect.ValueOf(comp)
	if v.Kind() == reflect.Ptr {
		return
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	if d, ok := p.Interface().(Disposer); ok {
		d.Dispose()
	}
}

type ComponentReader interface {
	GetComponent(EntityId, reflect.Type) any
}

// ReadComponent returns the entity's component of type T, or nil when absent.
func ReadComponent[T any](reader ComponentReader, entityId EntityId) *T {
	comp, _ := reader.GetComponent(entityId, reflect.TypeFor[T]()).(*T)
	return comp
}
