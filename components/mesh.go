// Package components holds the component and context types shared by the
// engine systems.
package components

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/softbody/gfx"
)

// Vertex is packed as position then normal, 24 bytes, little endian.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

const (
	VertexStride = 24
	IndexSize    = 4
)

var ErrInvalidMesh = errors.New("invalid mesh")

// Mesh is CPU-side geometry. It is immutable once attached.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// Validate checks that every index refers to an existing vertex.
func (m *Mesh) Validate() error {
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("%w: index %d at %d exceeds %d vertices", ErrInvalidMesh, idx, i, len(m.Vertices))
		}
	}
	return nil
}

func (m *Mesh) VertexData() []byte {
	buf := make([]byte, 0, len(m.Vertices)*VertexStride)
	for _, v := range m.Vertices {
		for _, f := range v.Position {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
		for _, f := range v.Normal {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return buf
}

func (m *Mesh) IndexData() []byte {
	buf := make([]byte, 0, len(m.Indices)*IndexSize)
	for _, idx := range m.Indices {
		buf = binary.LittleEndian.AppendUint32(buf, idx)
	}
	return buf
}

// MeshBuffers owns the device buffers uploaded from a Mesh. It is the only
// holder of the handles; the registry disposes it when it is detached,
// replaced or its entity destroyed.
type MeshBuffers struct {
	VertexBuffer gfx.VertexBuffer
	IndexBuffer  gfx.IndexBuffer
	VertexCount  int
	IndexCount   int
	VertexBytes  int
	IndexBytes   int

	device gfx.Device
}

func NewMeshBuffers(device gfx.Device, vb gfx.VertexBuffer, ib gfx.IndexBuffer, vertexCount, indexCount int) MeshBuffers {
	return MeshBuffers{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		VertexCount:  vertexCount,
		IndexCount:   indexCount,
		VertexBytes:  vertexCount * VertexStride,
		IndexBytes:   indexCount * IndexSize,
		device:       device,
	}
}

// Matches reports whether the buffers were built from a mesh of this shape.
func (b *MeshBuffers) Matches(m *Mesh) bool {
	return b.VertexCount == len(m.Vertices) && b.IndexCount == len(m.Indices)
}

// Released reports whether Dispose already ran.
func (b *MeshBuffers) Released() bool {
	return !b.VertexBuffer.Valid() && !b.IndexBuffer.Valid()
}

// Dispose releases both buffers. Calling it again is a no-op.
func (b *MeshBuffers) Dispose() {
	if b.device == nil {
		return
	}
	if b.VertexBuffer.Valid() {
		b.device.DestroyVertexBuffer(b.VertexBuffer)
		b.VertexBuffer = 0
	}
	if b.IndexBuffer.Valid() {
		b.device.DestroyIndexBuffer(b.IndexBuffer)
		b.IndexBuffer = 0
	}
}

// Position is a world-space translation. The renderer does not read it yet.
type Position struct {
	mgl32.Vec3
}

// SpawnPosition is where freshly loaded meshes are placed.
var SpawnPosition = Position{mgl32.Vec3{0, 0, 5}}
