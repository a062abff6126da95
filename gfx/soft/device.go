// Package soft is a headless gfx.Device that rasterizes triangle draws into
// an in-memory framebuffer. It is the default backend for the viewer and
// for tests that need real pixels.
package soft

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/softbody/gfx"
)

// Camera is the fixed preview camera. Per-entity transforms are not applied.
type Camera struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3
	FovY   float32 // degrees
	Near   float32
	Far    float32
}

func DefaultCamera() Camera {
	return Camera{
		Eye:    mgl32.Vec3{3, 2.5, 5},
		Target: mgl32.Vec3{0, 0, 0},
		Up:     mgl32.Vec3{0, 1, 0},
		FovY:   45,
		Near:   0.1,
		Far:    100,
	}
}

func (c Camera) viewProjection(aspect float32) mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
	view := mgl32.LookAtV(c.Eye, c.Target, c.Up)
	return proj.Mul4(view)
}

type Options struct {
	// Supersample renders at N times the window size; Snapshot scales back down.
	Supersample int
	// MaxBufferBytes caps the total size of live buffers. Zero means no cap.
	MaxBufferBytes int
	Camera         Camera
	Light          LightConfig
	ClearColor     [4]uint8
}

func DefaultOptions() Options {
	return Options{
		Supersample: 1,
		Camera:      DefaultCamera(),
		Light:       DefaultLightConfig(),
	}
}

// Stats counts device activity since creation.
type Stats struct {
	Passes          int
	Draws           int
	SkippedDraws    int
	Triangles       int
	Pixels          int
	InvalidReleases int
}

type bufferKind int

const (
	vertexKind bufferKind = iota
	indexKind
	constantKind
)

func (k bufferKind) String() string {
	return [...]string{"vertex", "index", "constant"}[k]
}

type buffer struct {
	kind   bufferKind
	vertex *gfx.VertexBufferLayout
	index  gfx.IndexBufferLayout
	data   []byte
}

type Device struct {
	opts   Options
	window gfx.Window
	fb     *FrameBuffer

	nextHandle  uint32
	buffers     map[uint32]*buffer
	bufferBytes int
	shaders     map[gfx.Shader]*program
	pipelines   map[gfx.Pipeline]gfx.PipelineState

	inPass   bool
	pipeline gfx.Pipeline
	scene    gfx.SceneState
	viewProj mgl32.Mat4

	stats Stats
}

var _ gfx.Device = (*Device)(nil)

// New creates a device. MakeWindow must be called before anything is drawn.
func New(opts Options) *Device {
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	if opts.Camera.FovY == 0 {
		opts.Camera = DefaultCamera()
	}
	if opts.Light.InvGamma == 0 {
		opts.Light = DefaultLightConfig()
	}
	return &Device{
		opts:      opts,
		buffers:   make(map[uint32]*buffer),
		shaders:   make(map[gfx.Shader]*program),
		pipelines: make(map[gfx.Pipeline]gfx.PipelineState),
	}
}

func (d *Device) MakeWindow(title string, width, height int) (gfx.Window, error) {
	if width <= 0 || height <= 0 {
		return gfx.Window{}, &gfx.AllocationError{Kind: "framebuffer", Requested: width * height * 4, Reason: fmt.Sprintf("invalid window size %dx%d", width, height)}
	}
	d.window = gfx.Window{Title: title, Width: width, Height: height}
	ss := d.opts.Supersample
	d.fb = NewFrameBuffer(width*ss, height*ss)
	d.fb.Clear(d.opts.ClearColor)
	d.viewProj = d.opts.Camera.viewProjection(float32(width) / float32(height))
	return d.window, nil
}

func (d *Device) handle() uint32 {
	d.nextHandle++
	return d.nextHandle
}

func (d *Device) allocate(kind bufferKind, data []byte, size, granule int) (*buffer, error) {
	fail := func(reason string) error {
		return &gfx.AllocationError{Kind: kind.String(), Requested: size, Reason: reason}
	}
	switch {
	case size <= 0:
		return nil, fail("empty buffer")
	case len(data) > size:
		return nil, fail(fmt.Sprintf("%d bytes of data exceed the buffer", len(data)))
	case granule > 0 && size%granule != 0:
		return nil, fail(fmt.Sprintf("size is not a multiple of %d", granule))
	case d.opts.MaxBufferBytes > 0 && d.bufferBytes+size > d.opts.MaxBufferBytes:
		return nil, fail(fmt.Sprintf("budget exhausted (%d of %d bytes in use)", d.bufferBytes, d.opts.MaxBufferBytes))
	}
	b := &buffer{kind: kind, data: make([]byte, size)}
	copy(b.data, data)
	d.bufferBytes += size
	return b, nil
}

func (d *Device) CreateVertexBuffer(layout *gfx.VertexBufferLayout, data []byte, size int) (gfx.VertexBuffer, error) {
	if layout == nil || layout.Stride() == 0 {
		return 0, &gfx.AllocationError{Kind: "vertex", Requested: size, Reason: "layout has no attributes"}
	}
	b, err := d.allocate(vertexKind, data, size, layout.Stride())
	if err != nil {
		return 0, err
	}
	b.vertex = layout
	h := d.handle()
	d.buffers[h] = b
	return gfx.VertexBuffer(h), nil
}

func (d *Device) CreateIndexBuffer(layout gfx.IndexBufferLayout, data []byte, size int) (gfx.IndexBuffer, error) {
	b, err := d.allocate(indexKind, data, size, layout.Type.Size())
	if err != nil {
		return 0, err
	}
	b.index = layout
	h := d.handle()
	d.buffers[h] = b
	return gfx.IndexBuffer(h), nil
}

func (d *Device) CreateConstantBuffer(layout *gfx.ConstantBufferLayout, data []byte, size int) (gfx.ConstantBuffer, error) {
	if layout != nil && size < layout.Size() {
		return 0, &gfx.AllocationError{Kind: "constant", Requested: size, Reason: fmt.Sprintf("layout %q needs %d bytes", layout.Name, layout.Size())}
	}
	b, err := d.allocate(constantKind, data, size, 0)
	if err != nil {
		return 0, err
	}
	h := d.handle()
	d.buffers[h] = b
	return gfx.ConstantBuffer(h), nil
}

func (d *Device) release(h uint32, kind bufferKind) {
	b, ok := d.buffers[h]
	if !ok || b.kind != kind {
		d.stats.InvalidReleases++
		return
	}
	d.bufferBytes -= len(b.data)
	delete(d.buffers, h)
}

func (d *Device) DestroyVertexBuffer(h gfx.VertexBuffer)     { d.release(uint32(h), vertexKind) }
func (d *Device) DestroyIndexBuffer(h gfx.IndexBuffer)       { d.release(uint32(h), indexKind) }
func (d *Device) DestroyConstantBuffer(h gfx.ConstantBuffer) { d.release(uint32(h), constantKind) }

func (d *Device) CreateShaderFromSource(name, vertex, fragment string) (gfx.Shader, error) {
	vs, err := compileStage(name, gfx.VertexStage, vertex)
	if err != nil {
		return 0, err
	}
	fs, err := compileStage(name, gfx.FragmentStage, fragment)
	if err != nil {
		return 0, err
	}
	if err := link(name, vs, fs); err != nil {
		return 0, err
	}
	h := gfx.Shader(d.handle())
	d.shaders[h] = &program{name: name, vertex: vs, fragment: fs}
	return h, nil
}

// CreatePipeline checks that every vertex shader input is fed by one of the
// pipeline's vertex layouts.
func (d *Device) CreatePipeline(state gfx.PipelineState) (gfx.Pipeline, error) {
	prog, ok := d.shaders[state.Shader]
	if !ok {
		return 0, fmt.Errorf("create pipeline: shader %d: %w", state.Shader, gfx.ErrInvalidHandle)
	}
	if len(state.VertexLayouts) > 0 {
		for ident := range prog.vertex.inputs {
			if !layoutsProvide(state.VertexLayouts, ident) {
				return 0, &gfx.LinkError{Shader: prog.name, Log: fmt.Sprintf("vertex input %q is not provided by any vertex layout", ident)}
			}
		}
	}
	h := gfx.Pipeline(d.handle())
	d.pipelines[h] = state
	return h, nil
}

func layoutsProvide(layouts []*gfx.VertexBufferLayout, name string) bool {
	for _, l := range layouts {
		if _, ok := l.Attribute(name); ok {
			return true
		}
	}
	return false
}

// BeginPass clears the framebuffer.
func (d *Device) BeginPass(name string) {
	d.inPass = true
	d.pipeline = 0
	d.scene = gfx.SceneState{}
	d.stats.Passes++
	if d.fb != nil {
		d.fb.Clear(d.opts.ClearColor)
	}
}

func (d *Device) BindPipeline(p gfx.Pipeline) {
	if _, ok := d.pipelines[p]; !ok {
		p = 0
	}
	d.pipeline = p
}

func (d *Device) BindSceneState(s gfx.SceneState) {
	d.scene = s
}

func (d *Device) EndPass() {
	d.inPass = false
}

// Draw rasterizes indexed triangles from the bound scene state. Draws that
// cannot be resolved (no pass, no window, unknown handles, non-triangle
// primitives) are counted as skipped.
func (d *Device) Draw(primitive gfx.Primitive, first, count int) {
	d.stats.Draws++
	if !d.inPass || d.fb == nil || primitive != gfx.Triangles || first < 0 || count < 0 {
		d.stats.SkippedDraws++
		return
	}
	state, ok := d.pipelines[d.pipeline]
	if !ok || len(state.VertexLayouts) == 0 || len(d.scene.VertexBuffers) == 0 {
		d.stats.SkippedDraws++
		return
	}
	vb := d.buffers[uint32(d.scene.VertexBuffers[0])]
	ib := d.buffers[uint32(d.scene.IndexBuffer)]
	if vb == nil || vb.kind != vertexKind || ib == nil || ib.kind != indexKind {
		d.stats.SkippedDraws++
		return
	}

	fetch := newVertexFetch(vb)
	indices := decodeIndices(ib)
	if first+count > len(indices) {
		d.stats.SkippedDraws++
		return
	}

	for i := first; i+2 < first+count; i += 3 {
		d.drawTriangle(fetch, [3]uint32{indices[i], indices[i+1], indices[i+2]}, state)
	}
}

func (d *Device) drawTriangle(fetch vertexFetch, idx [3]uint32, state gfx.PipelineState) {
	var screen [3]mgl32.Vec3
	var world [3]mgl32.Vec3
	var normal mgl32.Vec3
	for k, i := range idx {
		pos, n, ok := fetch.vertex(int(i))
		if !ok {
			return
		}
		clip := d.viewProj.Mul4x1(pos.Vec4(1))
		if clip.W() <= 1e-6 {
			return
		}
		ndc := clip.Vec3().Mul(1 / clip.W())
		screen[k] = mgl32.Vec3{
			(ndc.X() + 1) * 0.5 * float32(d.fb.Width),
			(1 - ndc.Y()) * 0.5 * float32(d.fb.Height),
			ndc.Z(),
		}
		world[k] = pos
		normal = normal.Add(n)
	}
	d.stats.Triangles++

	if normal.Len() < 1e-6 {
		normal = world[1].Sub(world[0]).Cross(world[2].Sub(world[0]))
		if normal.Len() < 1e-6 {
			return
		}
	}
	rgb := d.opts.Light.color(d.opts.Light.Shade(normal.Normalize()))
	d.stats.Pixels += d.fb.rasterizeTriangle(screen, rgb, state.DepthTest, state.CullBackFaces)
}

// vertexFetch reads the first Float3 attribute as position and the next
// Float3 attribute, if any, as normal.
type vertexFetch struct {
	data     []byte
	stride   int
	position int
	normal   int
}

func newVertexFetch(b *buffer) vertexFetch {
	f := vertexFetch{data: b.data, stride: b.vertex.Stride(), position: -1, normal: -1}
	for _, a := range b.vertex.Attributes {
		if a.Type != gfx.Float3 {
			continue
		}
		if f.position < 0 {
			f.position = a.Offset
		} else if f.normal < 0 {
			f.normal = a.Offset
		}
	}
	return f
}

func (f vertexFetch) vertex(i int) (pos, normal mgl32.Vec3, ok bool) {
	base := i * f.stride
	if f.position < 0 || i < 0 || base+f.stride > len(f.data) {
		return pos, normal, false
	}
	pos = readVec3(f.data[base+f.position:])
	if f.normal >= 0 {
		normal = readVec3(f.data[base+f.normal:])
	}
	return pos, normal, true
}

func readVec3(b []byte) mgl32.Vec3 {
	return mgl32.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

func decodeIndices(b *buffer) []uint32 {
	if b.index.Type == gfx.U16 {
		out := make([]uint32, len(b.data)/2)
		for i := range out {
			out[i] = uint32(binary.LittleEndian.Uint16(b.data[i*2:]))
		}
		return out
	}
	out := make([]uint32, len(b.data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b.data[i*4:])
	}
	return out
}

func (d *Device) Stats() Stats {
	return d.stats
}

// LiveBuffers is the number of buffers created and not yet destroyed.
func (d *Device) LiveBuffers() int {
	return len(d.buffers)
}

func (d *Device) BufferBytes() int {
	return d.bufferBytes
}

func (d *Device) Window() gfx.Window {
	return d.window
}

// FrameBuffer exposes the render target at supersampled resolution.
func (d *Device) FrameBuffer() *FrameBuffer {
	return d.fb
}
