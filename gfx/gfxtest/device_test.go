package gfxtest_test

import (
	"testing"

	"github.com/plus3/softbody/gfx"
	"github.com/plus3/softbody/gfx/gfxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsDrawState(t *testing.T) {
	d := gfxtest.New()
	vb, err := d.CreateVertexBuffer(nil, []byte{1, 2, 3}, 24)
	require.NoError(t, err)
	ib, err := d.CreateIndexBuffer(gfx.IndexBufferLayout{Type: gfx.U32}, nil, 12)
	require.NoError(t, err)
	shader, err := d.CreateShaderFromSource("Phong", "", "")
	require.NoError(t, err)
	p, err := d.CreatePipeline(gfx.PipelineState{Shader: shader})
	require.NoError(t, err)

	d.BeginPass("Phong pass")
	d.BindPipeline(p)
	d.BindSceneState(gfx.SceneState{VertexBuffers: []gfx.VertexBuffer{vb}, IndexBuffer: ib})
	d.Draw(gfx.Triangles, 0, 3)
	d.EndPass()

	require.Len(t, d.Draws, 1)
	draw := d.Draws[0]
	assert.Equal(t, "Phong pass", draw.Pass)
	assert.Equal(t, p, draw.Pipeline)
	assert.Equal(t, ib, draw.Scene.IndexBuffer)
	assert.Equal(t, 3, draw.Count)
	assert.Equal(t, 24, d.VertexBuffers[vb].Size)
	assert.Equal(t, []byte{1, 2, 3}, d.VertexBuffers[vb].Data)
	assert.Equal(t, 1, d.Count("Draw"))
}

func TestFailureInjection(t *testing.T) {
	d := gfxtest.New()
	d.FailIndex = 1

	_, err := d.CreateIndexBuffer(gfx.IndexBufferLayout{Type: gfx.U32}, nil, 12)
	assert.ErrorIs(t, err, gfx.ErrAllocation)

	_, err = d.CreateIndexBuffer(gfx.IndexBufferLayout{Type: gfx.U32}, nil, 12)
	assert.NoError(t, err)
	assert.Equal(t, 1, d.LiveBuffers())
}

func TestReleaseAccounting(t *testing.T) {
	d := gfxtest.New()
	cb, err := d.CreateConstantBuffer(nil, nil, 96)
	require.NoError(t, err)

	d.DestroyConstantBuffer(cb)
	d.DestroyConstantBuffer(cb)

	assert.Equal(t, 1, d.Released)
	assert.Equal(t, 1, d.InvalidReleases)
	assert.Equal(t, 0, d.LiveBuffers())
}
