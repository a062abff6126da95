// Package gfx is the graphics backend contract: buffer layouts, opaque
// resource handles and the Device interface that renderers submit through.
// Implementations live in subpackages.
package gfx

import "fmt"

// VarType is the element type of a vertex attribute or constant field.
type VarType int

const (
	Float VarType = iota
	Float2
	Float3
	Float4
	Mat4
	Int32
)

// Size is the packed byte size of one value.
func (t VarType) Size() int {
	switch t {
	case Float, Int32:
		return 4
	case Float2:
		return 8
	case Float3:
		return 12
	case Float4:
		return 16
	case Mat4:
		return 64
	}
	return 0
}

func (t VarType) String() string {
	switch t {
	case Float:
		return "float"
	case Float2:
		return "vec2"
	case Float3:
		return "vec3"
	case Float4:
		return "vec4"
	case Mat4:
		return "mat4"
	case Int32:
		return "int"
	}
	return fmt.Sprintf("VarType(%d)", int(t))
}

type BufferUsage int

const (
	Static BufferUsage = iota
	Dynamic
)

// Attribute is a named, typed slot at a byte offset inside a buffer element.
type Attribute struct {
	Name   string
	Type   VarType
	Offset int
}

// VertexBufferLayout describes one interleaved vertex stream.
type VertexBufferLayout struct {
	Binding    int
	Usage      BufferUsage
	Name       string
	Attributes []Attribute
}

func NewVertexBufferLayout(binding int, usage BufferUsage, name string) *VertexBufferLayout {
	return &VertexBufferLayout{Binding: binding, Usage: usage, Name: name}
}

// Add appends an attribute packed after the previous one.
func (l *VertexBufferLayout) Add(name string, t VarType) *VertexBufferLayout {
	l.Attributes = append(l.Attributes, Attribute{Name: name, Type: t, Offset: l.Stride()})
	return l
}

// Stride is the byte size of one vertex.
func (l *VertexBufferLayout) Stride() int {
	return packedSize(l.Attributes)
}

// Attribute looks up an attribute by name.
func (l *VertexBufferLayout) Attribute(name string) (Attribute, bool) {
	for _, a := range l.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

type IndexBufferType int

const (
	U16 IndexBufferType = iota
	U32
)

func (t IndexBufferType) Size() int {
	if t == U16 {
		return 2
	}
	return 4
}

type IndexBufferLayout struct {
	Type IndexBufferType
}

// ConstantBufferLayout describes a uniform block bound to one shader stage.
type ConstantBufferLayout struct {
	Binding int
	Usage   BufferUsage
	Name    string
	Fields  []Attribute
}

func NewConstantBufferLayout(binding int, usage BufferUsage, name string) *ConstantBufferLayout {
	return &ConstantBufferLayout{Binding: binding, Usage: usage, Name: name}
}

func (l *ConstantBufferLayout) Add(name string, t VarType) *ConstantBufferLayout {
	l.Fields = append(l.Fields, Attribute{Name: name, Type: t, Offset: l.Size()})
	return l
}

// Size is the byte size of the whole block.
func (l *ConstantBufferLayout) Size() int {
	return packedSize(l.Fields)
}

func packedSize(attrs []Attribute) int {
	if len(attrs) == 0 {
		return 0
	}
	last := attrs[len(attrs)-1]
	return last.Offset + last.Type.Size()
}

// Handles are opaque and backend-issued. Zero is never a valid handle.
type (
	VertexBuffer   uint32
	IndexBuffer    uint32
	ConstantBuffer uint32
	Shader         uint32
	Pipeline       uint32
)

func (h VertexBuffer) Valid() bool   { return h != 0 }
func (h IndexBuffer) Valid() bool    { return h != 0 }
func (h ConstantBuffer) Valid() bool { return h != 0 }
func (h Shader) Valid() bool         { return h != 0 }
func (h Pipeline) Valid() bool       { return h != 0 }

// PipelineState is the shader program plus fixed-function configuration.
type PipelineState struct {
	Shader        Shader
	VertexLayouts []*VertexBufferLayout
	DepthTest     bool
	CullBackFaces bool
}

// SceneState is the set of buffers bound for the next draw.
type SceneState struct {
	VertexBuffers   []VertexBuffer
	IndexBuffer     IndexBuffer
	ConstantBuffers []ConstantBuffer
}

type Primitive int

const (
	Triangles Primitive = iota
	Lines
	Points
)

func (p Primitive) String() string {
	switch p {
	case Triangles:
		return "triangles"
	case Lines:
		return "lines"
	case Points:
		return "points"
	}
	return fmt.Sprintf("Primitive(%d)", int(p))
}

// Window is the presentation surface returned by MakeWindow.
type Window struct {
	Title  string
	Width  int
	Height int
}

// Device is the graphics backend. A Device is owned by the goroutine that
// runs the systems and is not safe for concurrent use.
//
// Buffer creation takes an explicit size; data may be nil to allocate an
// uninitialized buffer, otherwise len(data) must not exceed size.
type Device interface {
	MakeWindow(title string, width, height int) (Window, error)

	CreateVertexBuffer(layout *VertexBufferLayout, data []byte, size int) (VertexBuffer, error)
	CreateIndexBuffer(layout IndexBufferLayout, data []byte, size int) (IndexBuffer, error)
	CreateConstantBuffer(layout *ConstantBufferLayout, data []byte, size int) (ConstantBuffer, error)
	DestroyVertexBuffer(VertexBuffer)
	DestroyIndexBuffer(IndexBuffer)
	DestroyConstantBuffer(ConstantBuffer)

	CreateShaderFromSource(name, vertex, fragment string) (Shader, error)
	CreatePipeline(state PipelineState) (Pipeline, error)

	BeginPass(name string)
	BindPipeline(Pipeline)
	BindSceneState(SceneState)
	Draw(primitive Primitive, first, count int)
	EndPass()
}
