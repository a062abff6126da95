package ecs

import "fmt"

// EntityId is a stable handle to an entity. The lower 32 bits hold the slot
// index and the upper 32 bits the slot generation, so an id stays valid while
// components come and go and is never reused after Destroy.
type EntityId uint64

// NewEntityId creates an EntityId from a slot index and generation
func NewEntityId(index uint32, generation uint32) EntityId {
	return EntityId(uint64(generation)<<32 | uint64(index))
}

// Index extracts the slot index from the entity ID
func (e EntityId) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the slot generation from the entity ID
func (e EntityId) Generation() uint32 {
	return uint32(e >> 32)
}

func (e EntityId) String() string {
	return fmt.Sprintf("%d#%d", e.Index(), e.Generation())
}

// location is where an entity's components currently live.
type location struct {
	archetype *Archetype
	row       int
}
