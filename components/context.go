package components

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/softbody/ecs"
	"github.com/plus3/softbody/gfx"
)

// LoadMeshParams is the single-slot load request mailbox. An empty Filename
// means nothing is pending. A second Post before the consumer runs replaces
// the first request.
type LoadMeshParams struct {
	Filename string
}

func (p *LoadMeshParams) Post(filename string) {
	p.Filename = filename
}

func (p *LoadMeshParams) Pending() bool {
	return p.Filename != ""
}

// Take returns the pending filename and clears the slot.
func (p *LoadMeshParams) Take() string {
	f := p.Filename
	p.Filename = ""
	return f
}

// PhongVertexConstants mirrors the vertexConstants uniform block.
type PhongVertexConstants struct {
	Camera        mgl32.Mat4
	MVP           mgl32.Mat4
	NormalMat     mgl32.Mat4
	LightPosition mgl32.Vec4
}

// PhongFragConstants mirrors the fragConstants uniform block.
type PhongFragConstants struct {
	LightColor    mgl32.Vec4
	AmbientLight  mgl32.Vec4
	AmbientColor  mgl32.Vec4
	DiffuseColor  mgl32.Vec4
	SpecularColor mgl32.Vec4
	Coefficients  mgl32.Vec4
}

func DefaultPhongMaterial() PhongFragConstants {
	return PhongFragConstants{
		LightColor:    mgl32.Vec4{1, 1, 1, 1},
		AmbientLight:  mgl32.Vec4{0.3, 0.3, 0.3, 1},
		AmbientColor:  mgl32.Vec4{0.3, 0.3, 0.3, 1},
		DiffuseColor:  mgl32.Vec4{1, 0.3, 0.3, 1},
		SpecularColor: mgl32.Vec4{0, 0.3, 0.3, 1},
		Coefficients:  mgl32.Vec4{10, 10, 10, 10},
	}
}

var (
	PhongVertexConstantsSize = int(unsafe.Sizeof(PhongVertexConstants{}))
	PhongFragConstantsSize   = int(unsafe.Sizeof(PhongFragConstants{}))
)

// BufferLayouts is published once by the render system and shared by every
// mesh upload.
type BufferLayouts struct {
	PhongVertex          *gfx.VertexBufferLayout
	PhongIndex           gfx.IndexBufferLayout
	PhongVertexConstants *gfx.ConstantBufferLayout
	PhongFragConstants   *gfx.ConstantBufferLayout
}

func NewPhongLayouts() BufferLayouts {
	return BufferLayouts{
		PhongVertex: gfx.NewVertexBufferLayout(0, gfx.Static, "INPUT").
			Add("vPosition", gfx.Float3).
			Add("vNormal", gfx.Float3),
		PhongIndex: gfx.IndexBufferLayout{Type: gfx.U32},
		PhongVertexConstants: gfx.NewConstantBufferLayout(0, gfx.Dynamic, "vertexConstants").
			Add("camera", gfx.Mat4).
			Add("mvp", gfx.Mat4).
			Add("normal_mat", gfx.Mat4).
			Add("light_position", gfx.Float4),
		PhongFragConstants: gfx.NewConstantBufferLayout(1, gfx.Dynamic, "fragConstants").
			Add("light_color", gfx.Float4).
			Add("ambient_light", gfx.Float4).
			Add("ambient_color", gfx.Float4).
			Add("diffuse_color", gfx.Float4).
			Add("specular_color", gfx.Float4).
			Add("coefficients", gfx.Float4),
	}
}

// GraphicsDevice is the process-wide backend.
type GraphicsDevice struct {
	Device gfx.Device
}

// Surface is the window the render system draws to.
type Surface struct {
	gfx.Window
}

type InputEventKind int

const (
	QuitEvent InputEventKind = iota
	LoadMeshEvent
	UnloadAllEvent
)

func (k InputEventKind) String() string {
	switch k {
	case QuitEvent:
		return "quit"
	case LoadMeshEvent:
		return "load"
	case UnloadAllEvent:
		return "unload-all"
	}
	return "unknown"
}

type InputEvent struct {
	Kind InputEventKind
	Path string
}

// InputEvents is the queue between the frontend event pump and the input
// system.
type InputEvents struct {
	Pending []InputEvent
}

func (q *InputEvents) Push(e InputEvent) {
	q.Pending = append(q.Pending, e)
}

// Drain returns queued events in arrival order and empties the queue.
func (q *InputEvents) Drain() []InputEvent {
	events := q.Pending
	q.Pending = nil
	return events
}

type AppState struct {
	Quit bool
	Tick uint64
}

// LoadReport tracks the outcome of mesh load requests.
type LoadReport struct {
	Requested  int
	Loaded     int
	Failed     int
	LastPath   string
	LastEntity ecs.EntityId
	LastError  error
}

// RegisterAll registers the entity component types with registry.
func RegisterAll(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Mesh](registry)
	ecs.RegisterComponent[MeshBuffers](registry)
	ecs.RegisterComponent[Position](registry)
}
