package ecs_test

import "github.com/plus3/softbody/ecs"

type Transform struct {
	X, Y, Z float32
}

type Velocity struct {
	DX, DY, DZ float32
}

type Label struct {
	Value string
}

// Budget is a bounded counter, like a per-frame draw budget.
type Budget struct {
	Current int
	Max     int
}

// Hidden is a marker component.
type Hidden struct{}

type Lod struct {
	Level int
}

// Primitive-backed components
type Layer int32
type Tag string
type Weight float64

type TestA string
type TestB string

type Link struct {
	Target *Transform
}

type Paths struct {
	Items []string
}

// Handle records its own disposal.
type Handle struct {
	Name     string
	Released *[]string
}

func (h *Handle) Dispose() {
	*h.Released = append(*h.Released, h.Name)
}

var _ ecs.Disposer = (*Handle)(nil)

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Transform](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Label](registry)
	ecs.RegisterComponent[Budget](registry)
	ecs.RegisterComponent[Hidden](registry)
	ecs.RegisterComponent[Lod](registry)
	ecs.RegisterComponent[Layer](registry)
	ecs.RegisterComponent[Tag](registry)
	ecs.RegisterComponent[Weight](registry)
	ecs.RegisterComponent[TestA](registry)
	ecs.RegisterComponent[TestB](registry)
	ecs.RegisterComponent[int32](registry)
	ecs.RegisterComponent[float64](registry)
	ecs.RegisterComponent[string](registry)
	ecs.RegisterComponent[Link](registry)
	ecs.RegisterComponent[Paths](registry)
	ecs.RegisterComponent[Handle](registry)
	return registry
}
