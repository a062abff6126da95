package ecs

// iComponentStorage is an interface for a type-erased component column.
// Rows are allocated by the owning Archetype.
type iComponentStorage interface {
	Set(index int, item any) bool
	Delete(index int)
	Get(index int) any
	Has(index int) bool
}
