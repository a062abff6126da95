package debugui

import "github.com/plus3/softbody/ecs"

// SpawnDebugUI creates the entity browser and performance panels. describe
// fills the browser's detail column and may be nil.
func SpawnDebugUI(storage *ecs.Storage, describe Describer) {
	storage.Spawn(NewEntityBrowserComponent(100, describe))
	storage.Spawn(NewPerformanceStatsComponent(120))
}

func RegisterDebugUIComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[ImguiItem](registry)
	ecs.RegisterComponent[EntityBrowserComponent](registry)
	ecs.RegisterComponent[PerformanceStatsComponent](registry)
}
