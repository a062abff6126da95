package ecs

import (
	"errors"
	"fmt"
	"reflect"
)

// Commands provides a buffer for deferred ECS operations that are executed at the end of a frame.
// This prevents structural changes to the ECS storage during system execution.
type Commands struct {
	spawns   []spawnCommand
	destroys []EntityId
	attaches []attachCommand
	detaches []detachCommand
	defers   []deferCommand
}

func newCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	components []any
	done       func(EntityId)
}

type attachCommand struct {
	entity    EntityId
	component any
}

type detachCommand struct {
	entity   EntityId
	compType reflect.Type
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues an entity spawn operation with the given components.
func (c *Commands) Spawn(components ...any) {
	c.spawns = append(c.spawns, spawnCommand{components: components})
}

// SpawnThen queues a spawn and calls done with the new id once it exists.
func (c *Commands) SpawnThen(done func(EntityId), components ...any) {
	c.spawns = append(c.spawns, spawnCommand{components: components, done: done})
}

// Destroy queues an entity destruction.
func (c *Commands) Destroy(entity EntityId) {
	c.destroys = append(c.destroys, entity)
}

// Attach queues a component attach (or replace) operation.
func (c *Commands) Attach(entity EntityId, component any) {
	c.attaches = append(c.attaches, attachCommand{
		entity:    entity,
		component: component,
	})
}

// Detach queues a component removal operation.
func (c *Commands) Detach(entity EntityId, compType reflect.Type) {
	c.detaches = append(c.detaches, detachCommand{
		entity:   entity,
		compType: compType,
	})
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.destroys) + len(c.attaches) + len(c.detaches) + len(c.defers)
}

// Flush applies all commands to the provided storage and resets the buffer.
// Order is destroys, detaches, attaches, spawns, then deferred functions.
// Operations on entities destroyed in the same flush are skipped; every other
// failure is collected and returned. An attached component that does not end
// up in storage is disposed.
func (c *Commands) Flush(storage *Storage) error {
	var errs []error
	destroyed := make(map[EntityId]bool)

	for _, id := range c.destroys {
		if destroyed[id] {
			continue
		}
		if err := storage.Destroy(id); err != nil {
			errs = append(errs, fmt.Errorf("destroy: %w", err))
		}
		destroyed[id] = true
	}

	for _, cmd := range c.detaches {
		if destroyed[cmd.entity] {
			continue
		}
		if err := storage.Detach(cmd.entity, cmd.compType); err != nil {
			errs = append(errs, fmt.Errorf("detach: %w", err))
		}
	}

	for _, cmd := range c.attaches {
		if destroyed[cmd.entity] {
			// the component never reached the registry, release it here
			dispose(cmd.component)
			continue
		}
		if err := storage.Attach(cmd.entity, cmd.component); err != nil {
			dispose(cmd.component)
			errs = append(errs, fmt.Errorf("attach: %w", err))
		}
	}

	for _, cmd := range c.spawns {
		id := storage.Spawn(cmd.components...)
		if cmd.done != nil {
			cmd.done(id)
		}
	}

	for _, df := range c.defers {
		df.fn()
	}

	c.spawns = c.spawns[:0]
	c.destroys = c.destroys[:0]
	c.attaches = c.attaches[:0]
	c.detaches = c.detaches[:0]
	c.defers = c.defers[:0]
	return errors.Join(errs...)
}
