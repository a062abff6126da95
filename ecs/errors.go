package ecs

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrEntityNotFound   = errors.New("entity not found")
	ErrMissingComponent = errors.New("missing component")
	ErrMissingContext   = errors.New("missing context")
)

type EntityNotFoundError struct {
	Id EntityId
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity %v does not exist", e.Id)
}

func (e *EntityNotFoundError) Unwrap() error { return ErrEntityNotFound }

type ComponentNotFoundError struct {
	Id   EntityId
	Type reflect.Type
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist on entity %v: %v", e.Id, e.Type)
}

func (e *ComponentNotFoundError) Unwrap() error { return ErrMissingComponent }

// ContextNotFoundError is returned when a singleton context was never set.
type ContextNotFoundError struct {
	Type reflect.Type
}

func (e *ContextNotFoundError) Error() string {
	return fmt.Sprintf("context was never set: %v", e.Type)
}

func (e *ContextNotFoundError) Unwrap() error { return ErrMissingContext }
