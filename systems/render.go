package systems

import (
	"fmt"

	"github.com/plus3/softbody/components"
	"github.com/plus3/softbody/ecs"
	"github.com/plus3/softbody/gfx"
	"github.com/plus3/softbody/resource"
)

const PhongPass = "Phong pass"

type RenderConfig struct {
	Title          string
	Width          int
	Height         int
	VertexShader   string
	FragmentShader string
	Resolver       resource.Resolver
}

func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Title:          "voxel-soft-bodies",
		Width:          1920,
		Height:         1080,
		VertexShader:   "shaders/phong.vert",
		FragmentShader: "shaders/phong.frag",
	}
}

// RenderSystem submits one indexed triangle draw per entity carrying both a
// Mesh and its MeshBuffers. Draw order follows registry iteration order.
// The constant buffers are allocated but never filled or bound per entity,
// and Position is not applied.
type RenderSystem struct {
	Drawables ecs.Query[struct {
		*components.Mesh
		*components.MeshBuffers
	}]

	// Material holds the fragment constants the buffers are meant to carry.
	Material components.PhongFragConstants

	device          gfx.Device
	pipeline        gfx.Pipeline
	vertexConstants gfx.ConstantBuffer
	fragConstants   gfx.ConstantBuffer
}

// NewRenderSystem opens the window, publishes the GraphicsDevice, Surface
// and BufferLayouts contexts, allocates the constant buffers and builds the
// phong pipeline. Any error here is a startup failure.
func NewRenderSystem(storage *ecs.Storage, device gfx.Device, cfg RenderConfig) (*RenderSystem, error) {
	r := &RenderSystem{device: device, Material: components.DefaultPhongMaterial()}

	ecs.SetContext(storage, components.GraphicsDevice{Device: device})
	window, err := device.MakeWindow(cfg.Title, cfg.Width, cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("render: make window: %w", err)
	}
	ecs.SetContext(storage, components.Surface{Window: window})

	layouts := ecs.SetContext(storage, components.NewPhongLayouts())

	r.vertexConstants, err = device.CreateConstantBuffer(layouts.PhongVertexConstants, nil, components.PhongVertexConstantsSize)
	if err != nil {
		return nil, fmt.Errorf("render: vertex constants: %w", err)
	}
	r.fragConstants, err = device.CreateConstantBuffer(layouts.PhongFragConstants, nil, components.PhongFragConstantsSize)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("render: fragment constants: %w", err)
	}

	if err := r.buildPipeline(layouts, cfg); err != nil {
		r.Close()
		return nil, fmt.Errorf("render: %w", err)
	}
	return r, nil
}

func (r *RenderSystem) buildPipeline(layouts *components.BufferLayouts, cfg RenderConfig) error {
	vs, err := cfg.Resolver.ReadText(cfg.VertexShader)
	if err != nil {
		return err
	}
	fs, err := cfg.Resolver.ReadText(cfg.FragmentShader)
	if err != nil {
		return err
	}
	shader, err := r.device.CreateShaderFromSource("Phong", vs, fs)
	if err != nil {
		return err
	}
	r.pipeline, err = r.device.CreatePipeline(gfx.PipelineState{
		Shader:        shader,
		VertexLayouts: []*gfx.VertexBufferLayout{layouts.PhongVertex},
		DepthTest:     true,
		CullBackFaces: true,
	})
	return err
}

func (r *RenderSystem) Run(frame *ecs.UpdateFrame) {
	r.device.BeginPass(PhongPass)
	r.device.BindPipeline(r.pipeline)
	for item := range r.Drawables.Values() {
		r.device.BindSceneState(gfx.SceneState{
			VertexBuffers: []gfx.VertexBuffer{item.MeshBuffers.VertexBuffer},
			IndexBuffer:   item.MeshBuffers.IndexBuffer,
		})
		r.device.Draw(gfx.Triangles, 0, len(item.Mesh.Indices))
	}
	r.device.EndPass()
}

// Close releases the constant buffers.
func (r *RenderSystem) Close() {
	if r.vertexConstants.Valid() {
		r.device.DestroyConstantBuffer(r.vertexConstants)
		r.vertexConstants = 0
	}
	if r.fragConstants.Valid() {
		r.device.DestroyConstantBuffer(r.fragConstants)
		r.fragConstants = 0
	}
}
