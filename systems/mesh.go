package systems

import (
	"fmt"
	"log"
	"reflect"

	"github.com/plus3/softbody/components"
	"github.com/plus3/softbody/ecs"
	"github.com/plus3/softbody/resource"
)

// MeshManagementSystem consumes the load request mailbox. A pending request
// is cleared in the tick it is seen whether or not the load succeeds; a
// failed load is logged, counted in LoadReport and dropped.
type MeshManagementSystem struct {
	Request ecs.Singleton[components.LoadMeshParams]
	Report  ecs.Singleton[components.LoadReport]
	Layouts ecs.Singleton[components.BufferLayouts]
	Device  ecs.Singleton[components.GraphicsDevice]

	Resolver resource.Resolver
	Logger   *log.Logger
}

func (s *MeshManagementSystem) Run(frame *ecs.UpdateFrame) {
	params := s.Request.Get()
	if params == nil || !params.Pending() {
		return
	}
	path := params.Take()

	report := s.Report.Get()
	if report == nil {
		report = &components.LoadReport{}
	}
	report.Requested++
	report.LastPath = path

	id, err := s.load(frame.Storage, path)
	if err != nil {
		report.Failed++
		report.LastError = err
		logger(s.Logger).Printf("mesh: load %q failed: %v", path, err)
		return
	}
	report.Loaded++
	report.LastError = nil
	report.LastEntity = id
	logger(s.Logger).Printf("mesh: loaded %q as %s", path, id)
}

func (s *MeshManagementSystem) load(storage *ecs.Storage, path string) (ecs.EntityId, error) {
	layouts, err := s.Layouts.Lookup()
	if err != nil {
		return 0, err
	}
	device, err := s.Device.Lookup()
	if err != nil {
		return 0, err
	}

	mesh, err := s.Resolver.LoadMesh(path)
	if err != nil {
		return 0, err
	}
	buffers, err := resource.UploadMesh(device.Device, layouts, &mesh)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return storage.Spawn(mesh, buffers, components.SpawnPosition), nil
}

// RenderBufferManagementSystem keeps MeshBuffers in step with Mesh: entities
// with a Mesh and missing or stale buffers get a fresh upload, and buffers
// left on an entity without a Mesh are detached. Changes are applied through
// the frame's commands.
type RenderBufferManagementSystem struct {
	Meshes ecs.Query[struct {
		Id ecs.EntityId
		*components.Mesh
		Buffers *components.MeshBuffers `ecs:"optional"`
	}]
	Buffers ecs.Query[struct {
		Id ecs.EntityId
		*components.MeshBuffers
		Mesh *components.Mesh `ecs:"optional"`
	}]
	Layouts ecs.Singleton[components.BufferLayouts]
	Device  ecs.Singleton[components.GraphicsDevice]

	Logger *log.Logger
}

func (s *RenderBufferManagementSystem) Run(frame *ecs.UpdateFrame) {
	for item := range s.Buffers.Values() {
		if item.Mesh == nil {
			frame.Commands.Detach(item.Id, reflect.TypeFor[components.MeshBuffers]())
		}
	}

	layouts := s.Layouts.Get()
	device := s.Device.Get()
	if layouts == nil || device == nil {
		return
	}

	for item := range s.Meshes.Values() {
		if item.Buffers != nil && item.Buffers.Matches(item.Mesh) {
			continue
		}
		buffers, err := resource.UploadMesh(device.Device, layouts, item.Mesh)
		if err != nil {
			logger(s.Logger).Printf("buffers: upload for %s failed: %v", item.Id, err)
			continue
		}
		frame.Commands.Attach(item.Id, buffers)
	}
}
