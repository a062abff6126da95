package main

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/softbody/components"
	"github.com/plus3/softbody/ecs"
	"github.com/plus3/softbody/engine"
)

// loadPanel lets the user queue mesh loads and unloads. Requests go through
// the input queue, so they are handled on the next pass like key presses.
type loadPanel struct {
	head   *engine.HeadSystem
	report *ecs.Singleton[components.LoadReport]
	path   string
}

func newLoadPanel(head *engine.HeadSystem) *loadPanel {
	return &loadPanel{
		head:   head,
		report: ecs.NewSingleton[components.LoadReport](head.Storage()),
		path:   "objects/block.obj",
	}
}

func (p *loadPanel) Render() {
	imgui.SetNextWindowPosV(imgui.NewVec2(10, 500), imgui.CondOnce, imgui.NewVec2(0, 0))
	imgui.SetNextWindowSizeV(imgui.NewVec2(350, 180), imgui.CondOnce)
	if imgui.BeginV("Meshes", nil, imgui.WindowFlagsNone) {
		imgui.SetNextItemWidth(200)
		imgui.InputTextWithHint("##path", "objects/block.obj", &p.path, imgui.InputTextFlagsNone, nil)
		imgui.SameLine()
		if imgui.Button("Load") && p.path != "" {
			p.head.Push(components.InputEvent{Kind: components.LoadMeshEvent, Path: p.path})
		}
		if imgui.Button("Unload All") {
			p.head.Push(components.InputEvent{Kind: components.UnloadAllEvent})
		}

		imgui.Separator()
		report := p.report.Get()
		imgui.Text(fmt.Sprintf("Requested: %d  Loaded: %d  Failed: %d", report.Requested, report.Loaded, report.Failed))
		imgui.Text(fmt.Sprintf("Entities: %d", p.head.Storage().Count()))
		if report.LastPath != "" {
			imgui.Text(fmt.Sprintf("Last: %s", report.LastPath))
		}
		if report.LastError != nil {
			imgui.PushStyleColorVec4(imgui.ColText, imgui.NewVec4(0.9, 0.3, 0.3, 1.0))
			imgui.Text(report.LastError.Error())
			imgui.PopStyleColor()
		}
	}
	imgui.End()
}

// describeMesh summarizes a mesh entity for the entity browser.
func describeMesh(storage *ecs.Storage, id ecs.EntityId) string {
	mesh := ecs.ReadComponent[components.Mesh](storage, id)
	if mesh == nil {
		return ""
	}
	detail := fmt.Sprintf("%d verts, %d tris", len(mesh.Vertices), len(mesh.Indices)/3)
	if buffers := ecs.ReadComponent[components.MeshBuffers](storage, id); buffers != nil && !buffers.Released() {
		detail += fmt.Sprintf(", %d B on device", buffers.VertexBytes+buffers.IndexBytes)
	} else {
		detail += ", not uploaded"
	}
	return detail
}
