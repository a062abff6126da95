// Package debugui provides immediate-mode GUI integration for ECS applications using Dear ImGui.
// It manages ImGui rendering and input state through ECS components and systems.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/softbody/ecs"
)

// ImguiItem is a component that holds a Dear ImGui render function.
// Attach this to entities that should render ImGui widgets each frame.
type ImguiItem struct {
	Render func()
}

// ImguiInputState tracks Dear ImGui's input capture state as a singleton component.
// Use this to determine if ImGui is consuming mouse or keyboard input.
type ImguiInputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// ImguiSystem queries all ImguiItem components and the built-in panels and
// defers their render functions to the end of the frame.
// It also updates the ImguiInputState singleton with current input capture state.
type ImguiSystem struct {
	Items      ecs.Query[struct{ *ImguiItem }]
	Browsers   ecs.Query[struct{ *EntityBrowserComponent }]
	Stats      ecs.Query[struct{ *PerformanceStatsComponent }]
	InputState ecs.Singleton[ImguiInputState]
}

// Run updates input state and queues all ImGui render functions for execution.
func (i *ImguiSystem) Run(frame *ecs.UpdateFrame) {
	if state := i.InputState.Get(); state != nil {
		state.WantCaptureMouse = imgui.CurrentIO().WantCaptureMouse()
		state.WantCaptureKeyboard = imgui.CurrentIO().WantCaptureKeyboard()
	}

	for item := range i.Items.Values() {
		frame.Commands.Defer(item.Render)
	}

	storage := frame.Storage
	for item := range i.Browsers.Values() {
		browser := item.EntityBrowserComponent
		frame.Commands.Defer(func() { browser.Render(storage) })
	}

	dt := float32(frame.DeltaTime)
	for item := range i.Stats.Values() {
		stats := item.PerformanceStatsComponent
		frame.Commands.Defer(func() { stats.Render(storage, dt) })
	}
}
