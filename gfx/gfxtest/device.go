// Package gfxtest provides a recording gfx.Device for tests. It allocates
// nothing, logs every call and can be told to fail specific creations.
package gfxtest

import (
	"fmt"

	"github.com/plus3/softbody/gfx"
)

// DrawCall is one Draw with the state that was bound at the time.
type DrawCall struct {
	Pass      string
	Pipeline  gfx.Pipeline
	Scene     gfx.SceneState
	Primitive gfx.Primitive
	First     int
	Count     int
}

// Buffer is the recorded creation of a buffer.
type Buffer struct {
	Size int
	Data []byte
}

type Device struct {
	// Calls is the ordered list of method names invoked.
	Calls []string
	Draws []DrawCall

	VertexBuffers   map[gfx.VertexBuffer]Buffer
	IndexBuffers    map[gfx.IndexBuffer]Buffer
	ConstantBuffers map[gfx.ConstantBuffer]Buffer
	Shaders         map[gfx.Shader]string
	Pipelines       map[gfx.Pipeline]gfx.PipelineState

	// Released counts destroy calls on live handles; InvalidReleases counts the rest.
	Released        int
	InvalidReleases int

	// FailVertex, FailIndex and FailConstant make the next creations of that
	// kind fail with an allocation error while they are positive.
	FailVertex   int
	FailIndex    int
	FailConstant int
	// FailShader, when set, is returned by CreateShaderFromSource.
	FailShader error

	next     uint32
	pass     string
	pipeline gfx.Pipeline
	scene    gfx.SceneState
}

var _ gfx.Device = (*Device)(nil)

func New() *Device {
	return &Device{
		VertexBuffers:   make(map[gfx.VertexBuffer]Buffer),
		IndexBuffers:    make(map[gfx.IndexBuffer]Buffer),
		ConstantBuffers: make(map[gfx.ConstantBuffer]Buffer),
		Shaders:         make(map[gfx.Shader]string),
		Pipelines:       make(map[gfx.Pipeline]gfx.PipelineState),
	}
}

func (d *Device) record(call string) {
	d.Calls = append(d.Calls, call)
}

func (d *Device) handle() uint32 {
	d.next++
	return d.next
}

func fail(kind string, size int, budget *int) error {
	if *budget <= 0 {
		return nil
	}
	*budget--
	return &gfx.AllocationError{Kind: kind, Requested: size, Reason: "injected failure"}
}

func snapshot(data []byte, size int) Buffer {
	b := Buffer{Size: size}
	if data != nil {
		b.Data = append([]byte(nil), data...)
	}
	return b
}

func (d *Device) MakeWindow(title string, width, height int) (gfx.Window, error) {
	d.record("MakeWindow")
	return gfx.Window{Title: title, Width: width, Height: height}, nil
}

func (d *Device) CreateVertexBuffer(layout *gfx.VertexBufferLayout, data []byte, size int) (gfx.VertexBuffer, error) {
	d.record("CreateVertexBuffer")
	if err := fail("vertex", size, &d.FailVertex); err != nil {
		return 0, err
	}
	h := gfx.VertexBuffer(d.handle())
	d.VertexBuffers[h] = snapshot(data, size)
	return h, nil
}

func (d *Device) CreateIndexBuffer(layout gfx.IndexBufferLayout, data []byte, size int) (gfx.IndexBuffer, error) {
	d.record("CreateIndexBuffer")
	if err := fail("index", size, &d.FailIndex); err != nil {
		return 0, err
	}
	h := gfx.IndexBuffer(d.handle())
	d.IndexBuffers[h] = snapshot(data, size)
	return h, nil
}

func (d *Device) CreateConstantBuffer(layout *gfx.ConstantBufferLayout, data []byte, size int) (gfx.ConstantBuffer, error) {
	d.record("CreateConstantBuffer")
	if err := fail("constant", size, &d.FailConstant); err != nil {
		return 0, err
	}
	h := gfx.ConstantBuffer(d.handle())
	d.ConstantBuffers[h] = snapshot(data, size)
	return h, nil
}

func (d *Device) DestroyVertexBuffer(h gfx.VertexBuffer) {
	d.record("DestroyVertexBuffer")
	if _, ok := d.VertexBuffers[h]; !ok {
		d.InvalidReleases++
		return
	}
	delete(d.VertexBuffers, h)
	d.Released++
}

func (d *Device) DestroyIndexBuffer(h gfx.IndexBuffer) {
	d.record("DestroyIndexBuffer")
	if _, ok := d.IndexBuffers[h]; !ok {
		d.InvalidReleases++
		return
	}
	delete(d.IndexBuffers, h)
	d.Released++
}

func (d *Device) DestroyConstantBuffer(h gfx.ConstantBuffer) {
	d.record("DestroyConstantBuffer")
	if _, ok := d.ConstantBuffers[h]; !ok {
		d.InvalidReleases++
		return
	}
	delete(d.ConstantBuffers, h)
	d.Released++
}

func (d *Device) CreateShaderFromSource(name, vertex, fragment string) (gfx.Shader, error) {
	d.record("CreateShaderFromSource")
	if d.FailShader != nil {
		return 0, d.FailShader
	}
	h := gfx.Shader(d.handle())
	d.Shaders[h] = name
	return h, nil
}

func (d *Device) CreatePipeline(state gfx.PipelineState) (gfx.Pipeline, error) {
	d.record("CreatePipeline")
	if _, ok := d.Shaders[state.Shader]; !ok {
		return 0, fmt.Errorf("create pipeline: shader %d: %w", state.Shader, gfx.ErrInvalidHandle)
	}
	h := gfx.Pipeline(d.handle())
	d.Pipelines[h] = state
	return h, nil
}

func (d *Device) BeginPass(name string) {
	d.record("BeginPass")
	d.pass = name
	d.pipeline = 0
	d.scene = gfx.SceneState{}
}

func (d *Device) BindPipeline(p gfx.Pipeline) {
	d.record("BindPipeline")
	d.pipeline = p
}

func (d *Device) BindSceneState(s gfx.SceneState) {
	d.record("BindSceneState")
	d.scene = s
}

func (d *Device) Draw(primitive gfx.Primitive, first, count int) {
	d.record("Draw")
	d.Draws = append(d.Draws, DrawCall{
		Pass:      d.pass,
		Pipeline:  d.pipeline,
		Scene:     d.scene,
		Primitive: primitive,
		First:     first,
		Count:     count,
	})
}

func (d *Device) EndPass() {
	d.record("EndPass")
	d.pass = ""
}

// LiveBuffers is the number of buffers of any kind not yet destroyed.
func (d *Device) LiveBuffers() int {
	return len(d.VertexBuffers) + len(d.IndexBuffers) + len(d.ConstantBuffers)
}

// Reset clears the call and draw logs, keeping live handles.
func (d *Device) Reset() {
	d.Calls = d.Calls[:0]
	d.Draws = d.Draws[:0]
}

// Count returns how many times the named method was called.
func (d *Device) Count(call string) int {
	n := 0
	for _, c := range d.Calls {
		if c == call {
			n++
		}
	}
	return n
}
