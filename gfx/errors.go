package gfx

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation is wrapped by every backend resource creation failure.
	ErrAllocation    = errors.New("backend allocation failure")
	ErrInvalidHandle = errors.New("invalid handle")
)

// AllocationError reports a failed buffer creation.
type AllocationError struct {
	Kind      string
	Requested int
	Reason    string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate %s buffer of %d bytes: %s", e.Kind, e.Requested, e.Reason)
}

func (e *AllocationError) Unwrap() error { return ErrAllocation }

// Stage names a shader stage.
type Stage string

const (
	VertexStage   Stage = "vertex"
	FragmentStage Stage = "fragment"
)

// CompileError is returned when a shader stage fails to compile.
type CompileError struct {
	Shader string
	Stage  Stage
	Log    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s shader %q: %s", e.Stage, e.Shader, e.Log)
}

// LinkError is returned when compiled stages cannot be linked into a program.
type LinkError struct {
	Shader string
	Log    string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link shader %q: %s", e.Shader, e.Log)
}
