// Package resource resolves asset names against an asset root and runs the
// mesh pipeline steps: parse, build the CPU mesh and upload it.
package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/softbody/components"
	"github.com/plus3/softbody/gfx"
	"github.com/plus3/softbody/objfile"
)

var ErrNotFound = errors.New("resource not found")

// Resolver maps asset names to files. Absolute names are used as given,
// relative ones are joined to Root.
type Resolver struct {
	Root string
}

func (r Resolver) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty name: %w", ErrNotFound)
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Root, name)
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", path, ErrNotFound)
	}
	return path, nil
}

// ReadText resolves and reads a whole text asset, such as shader source.
func (r Resolver) ReadText(name string) (string, error) {
	path, err := r.Resolve(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// LoadMesh resolves, parses and builds the mesh for name.
func (r Resolver) LoadMesh(name string) (components.Mesh, error) {
	path, err := r.Resolve(name)
	if err != nil {
		return components.Mesh{}, err
	}
	file, err := objfile.Load(path)
	if err != nil {
		return components.Mesh{}, err
	}
	return BuildMesh(file), nil
}

// BuildMesh emits one vertex per face corner with indices 0..N-1; vertices
// are not shared. A corner without a normal index takes the normal stored at
// its own vertex index, or the zero normal when there is none.
func BuildMesh(file *objfile.File) components.Mesh {
	mesh := components.Mesh{
		Vertices: make([]components.Vertex, len(file.Corners)),
		Indices:  make([]uint32, len(file.Corners)),
	}
	for i, c := range file.Corners {
		normalIdx := c.Normal
		if normalIdx == objfile.NoIndex {
			normalIdx = c.Vertex
		}
		var normal mgl32.Vec3
		if normalIdx < len(file.Normals) {
			normal = file.Normals[normalIdx]
		}
		mesh.Vertices[i] = components.Vertex{Position: file.Positions[c.Vertex], Normal: normal}
		mesh.Indices[i] = uint32(i)
	}
	return mesh
}

// UploadMesh creates the vertex and index buffers for mesh. When the index
// buffer cannot be created the vertex buffer is released before returning.
func UploadMesh(device gfx.Device, layouts *components.BufferLayouts, mesh *components.Mesh) (components.MeshBuffers, error) {
	if err := mesh.Validate(); err != nil {
		return components.MeshBuffers{}, err
	}
	vdata := mesh.VertexData()
	vb, err := device.CreateVertexBuffer(layouts.PhongVertex, vdata, len(mesh.Vertices)*layouts.PhongVertex.Stride())
	if err != nil {
		return components.MeshBuffers{}, fmt.Errorf("upload vertices: %w", err)
	}
	idata := mesh.IndexData()
	ib, err := device.CreateIndexBuffer(layouts.PhongIndex, idata, len(mesh.Indices)*layouts.PhongIndex.Type.Size())
	if err != nil {
		device.DestroyVertexBuffer(vb)
		return components.MeshBuffers{}, fmt.Errorf("upload indices: %w", err)
	}
	return components.NewMeshBuffers(device, vb, ib, len(mesh.Vertices), len(mesh.Indices)), nil
}
