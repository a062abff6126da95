package soft_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/softbody/gfx"
	"github.com/plus3/softbody/gfx/soft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `#version 460 core
layout (location = 0) in vec3 vPosition;
layout (location = 1) in vec3 vNormal;
out vec3 fragNormal;
void main()
{
    fragNormal = vNormal;
    gl_Position = vec4(vPosition, 1.0);
}
`

const fragmentSource = `#version 460 core
in vec3 fragNormal;
out vec4 outColor;
void main()
{
    outColor = vec4(normalize(fragNormal), 1.0);
}
`

type vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// cube returns one vertex per triangle corner, wound counter-clockwise
// when seen from outside.
func cube() []vertex {
	corners := []mgl32.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	faces := []struct {
		normal mgl32.Vec3
		tris   [2][3]int
	}{
		{mgl32.Vec3{0, 0, 1}, [2][3]int{{4, 5, 6}, {4, 6, 7}}},
		{mgl32.Vec3{0, 0, -1}, [2][3]int{{1, 0, 3}, {1, 3, 2}}},
		{mgl32.Vec3{1, 0, 0}, [2][3]int{{5, 1, 2}, {5, 2, 6}}},
		{mgl32.Vec3{-1, 0, 0}, [2][3]int{{0, 4, 7}, {0, 7, 3}}},
		{mgl32.Vec3{0, 1, 0}, [2][3]int{{7, 6, 2}, {7, 2, 3}}},
		{mgl32.Vec3{0, -1, 0}, [2][3]int{{0, 1, 5}, {0, 5, 4}}},
	}
	var out []vertex
	for _, f := range faces {
		for _, tri := range f.tris {
			for _, c := range tri {
				out = append(out, vertex{Position: corners[c], Normal: f.normal})
			}
		}
	}
	return out
}

func phongLayout() *gfx.VertexBufferLayout {
	return gfx.NewVertexBufferLayout(0, gfx.Static, "INPUT").
		Add("vPosition", gfx.Float3).
		Add("vNormal", gfx.Float3)
}

type scene struct {
	device   *soft.Device
	pipeline gfx.Pipeline
	vb       gfx.VertexBuffer
	ib       gfx.IndexBuffer
	count    int
}

func newScene(t *testing.T, opts soft.Options) *scene {
	t.Helper()
	device := soft.New(opts)
	_, err := device.MakeWindow("test", 64, 48)
	require.NoError(t, err)

	layout := phongLayout()
	shader, err := device.CreateShaderFromSource("Phong", vertexSource, fragmentSource)
	require.NoError(t, err)
	pipeline, err := device.CreatePipeline(gfx.PipelineState{
		Shader:        shader,
		VertexLayouts: []*gfx.VertexBufferLayout{layout},
		DepthTest:     true,
		CullBackFaces: true,
	})
	require.NoError(t, err)

	verts := cube()
	vdata, err := binary.Append(nil, binary.LittleEndian, verts)
	require.NoError(t, err)
	indices := make([]uint32, len(verts))
	for i := range indices {
		indices[i] = uint32(i)
	}
	idata, err := binary.Append(nil, binary.LittleEndian, indices)
	require.NoError(t, err)

	vb, err := device.CreateVertexBuffer(layout, vdata, len(vdata))
	require.NoError(t, err)
	ib, err := device.CreateIndexBuffer(gfx.IndexBufferLayout{Type: gfx.U32}, idata, len(idata))
	require.NoError(t, err)

	return &scene{device: device, pipeline: pipeline, vb: vb, ib: ib, count: len(indices)}
}

func (s *scene) draw() {
	s.device.BeginPass("Phong pass")
	s.device.BindPipeline(s.pipeline)
	s.device.BindSceneState(gfx.SceneState{VertexBuffers: []gfx.VertexBuffer{s.vb}, IndexBuffer: s.ib})
	s.device.Draw(gfx.Triangles, 0, s.count)
	s.device.EndPass()
}

func TestDrawCoversCenter(t *testing.T) {
	s := newScene(t, soft.DefaultOptions())
	s.draw()

	stats := s.device.Stats()
	assert.Equal(t, 1, stats.Draws)
	assert.Equal(t, 0, stats.SkippedDraws)
	assert.Equal(t, 12, stats.Triangles)
	assert.Greater(t, stats.Pixels, 0)

	img := s.device.Snapshot()
	require.NotNil(t, img)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
	assert.Equal(t, uint8(255), img.NRGBAAt(32, 24).A, "block should cover the view center")
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A, "corner should stay clear")
	assert.Greater(t, s.device.FrameBuffer().Covered(), 0)
}

func TestBeginPassClears(t *testing.T) {
	s := newScene(t, soft.DefaultOptions())
	s.draw()
	require.Greater(t, s.device.FrameBuffer().Covered(), 0)

	s.device.BeginPass("empty")
	s.device.EndPass()
	assert.Equal(t, 0, s.device.FrameBuffer().Covered())
}

func TestSupersampledSnapshotKeepsWindowSize(t *testing.T) {
	opts := soft.DefaultOptions()
	opts.Supersample = 2
	s := newScene(t, opts)
	s.draw()

	assert.Equal(t, 128, s.device.FrameBuffer().Width)
	img := s.device.Snapshot()
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
	assert.Greater(t, img.NRGBAAt(32, 24).A, uint8(200))
}

func TestDrawSkipsUnresolvedState(t *testing.T) {
	s := newScene(t, soft.DefaultOptions())

	// outside a pass
	s.device.Draw(gfx.Triangles, 0, s.count)

	s.device.BeginPass("no pipeline")
	s.device.BindSceneState(gfx.SceneState{VertexBuffers: []gfx.VertexBuffer{s.vb}, IndexBuffer: s.ib})
	s.device.Draw(gfx.Triangles, 0, s.count)
	s.device.EndPass()

	s.device.BeginPass("released buffers")
	s.device.BindPipeline(s.pipeline)
	s.device.DestroyVertexBuffer(s.vb)
	s.device.BindSceneState(gfx.SceneState{VertexBuffers: []gfx.VertexBuffer{s.vb}, IndexBuffer: s.ib})
	s.device.Draw(gfx.Triangles, 0, s.count)
	s.device.EndPass()

	stats := s.device.Stats()
	assert.Equal(t, 3, stats.Draws)
	assert.Equal(t, 3, stats.SkippedDraws)
	assert.Equal(t, 0, stats.Triangles)
}

func TestBufferBudget(t *testing.T) {
	opts := soft.DefaultOptions()
	opts.MaxBufferBytes = 48
	device := soft.New(opts)
	layout := phongLayout()

	vb, err := device.CreateVertexBuffer(layout, nil, 48)
	require.NoError(t, err)
	assert.Equal(t, 48, device.BufferBytes())

	_, err = device.CreateIndexBuffer(gfx.IndexBufferLayout{Type: gfx.U32}, nil, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gfx.ErrAllocation))
	var allocErr *gfx.AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, "index", allocErr.Kind)
	assert.Equal(t, 4, allocErr.Requested)

	device.DestroyVertexBuffer(vb)
	assert.Equal(t, 0, device.BufferBytes())
	assert.Equal(t, 0, device.LiveBuffers())

	_, err = device.CreateIndexBuffer(gfx.IndexBufferLayout{Type: gfx.U32}, nil, 4)
	assert.NoError(t, err)
}

func TestBufferValidation(t *testing.T) {
	device := soft.New(soft.DefaultOptions())
	layout := phongLayout()

	tests := []struct {
		name string
		run  func() error
	}{
		{"empty vertex buffer", func() error {
			_, err := device.CreateVertexBuffer(layout, nil, 0)
			return err
		}},
		{"partial vertex", func() error {
			_, err := device.CreateVertexBuffer(layout, nil, 30)
			return err
		}},
		{"data larger than size", func() error {
			_, err := device.CreateIndexBuffer(gfx.IndexBufferLayout{Type: gfx.U32}, make([]byte, 8), 4)
			return err
		}},
		{"nil layout", func() error {
			_, err := device.CreateVertexBuffer(nil, nil, 24)
			return err
		}},
		{"undersized constant buffer", func() error {
			cl := gfx.NewConstantBufferLayout(0, gfx.Dynamic, "vertexConstants").Add("mvp", gfx.Mat4)
			_, err := device.CreateConstantBuffer(cl, nil, 16)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), gfx.ErrAllocation)
		})
	}
	assert.Equal(t, 0, device.LiveBuffers())
}

func TestDoubleReleaseIsCounted(t *testing.T) {
	device := soft.New(soft.DefaultOptions())
	ib, err := device.CreateIndexBuffer(gfx.IndexBufferLayout{Type: gfx.U32}, nil, 12)
	require.NoError(t, err)

	device.DestroyIndexBuffer(ib)
	device.DestroyIndexBuffer(ib)
	device.DestroyVertexBuffer(gfx.VertexBuffer(ib))

	assert.Equal(t, 2, device.Stats().InvalidReleases)
}

func TestMakeWindowRejectsEmptySize(t *testing.T) {
	device := soft.New(soft.DefaultOptions())
	_, err := device.MakeWindow("bad", 0, 10)
	assert.ErrorIs(t, err, gfx.ErrAllocation)
	assert.Nil(t, device.Snapshot())
}

func TestWriteWebP(t *testing.T) {
	s := newScene(t, soft.DefaultOptions())
	s.draw()

	var buf bytes.Buffer
	require.NoError(t, s.device.WriteWebP(&buf))
	require.Greater(t, buf.Len(), 12)
	assert.Equal(t, "RIFF", buf.String()[:4])
	assert.Equal(t, "WEBP", buf.String()[8:12])
}
