// Package systems holds the per-tick systems run by the engine's head
// system.
package systems

import (
	"log"

	"github.com/plus3/softbody/components"
	"github.com/plus3/softbody/ecs"
)

func logger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}

// InputSystem drains the InputEvents queue filled by the frontend.
// Load events go through the same single-slot mailbox as any other
// producer, so only the last one in a tick survives.
type InputSystem struct {
	Events  ecs.Singleton[components.InputEvents]
	State   ecs.Singleton[components.AppState]
	Request ecs.Singleton[components.LoadMeshParams]
	Meshes  ecs.Query[struct {
		Id ecs.EntityId
		*components.Mesh
	}]

	Logger *log.Logger
}

func (s *InputSystem) Run(frame *ecs.UpdateFrame) {
	state := s.State.Get()
	if state != nil {
		state.Tick = frame.Tick
	}
	queue := s.Events.Get()
	if queue == nil {
		return
	}

	for _, event := range queue.Drain() {
		switch event.Kind {
		case components.QuitEvent:
			if state != nil {
				state.Quit = true
			}
		case components.LoadMeshEvent:
			request := s.Request.Get()
			if request == nil {
				continue
			}
			if request.Pending() {
				logger(s.Logger).Printf("input: request %q replaces %q", event.Path, request.Filename)
			}
			request.Post(event.Path)
		case components.UnloadAllEvent:
			for item := range s.Meshes.Values() {
				frame.Commands.Destroy(item.Id)
			}
		}
	}
}

// TestSystem feeds a fixed list of mesh paths into the mailbox, one per tick
// and only while the slot is empty, so none of them is overwritten.
type TestSystem struct {
	Request ecs.Singleton[components.LoadMeshParams]
	Paths   []string

	next int
}

func (s *TestSystem) Run(frame *ecs.UpdateFrame) {
	request := s.Request.Get()
	if request == nil || request.Pending() || s.next >= len(s.Paths) {
		return
	}
	request.Post(s.Paths[s.next])
	s.next++
}

// Done reports whether every path has been posted.
func (s *TestSystem) Done() bool {
	return s.next >= len(s.Paths)
}
