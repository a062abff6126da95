package debugui

import (
	"github.com/plus3/softbody/ecs"
)

// Describer returns a one-line summary of an entity for the browser's
// detail column. An empty string falls back to the component count.
type Describer func(storage *ecs.Storage, id ecs.EntityId) string

type EntityBrowserComponent struct {
	rows       []entityRow
	seen       [2]int
	sortColumn int
	descending bool

	describe Describer
	selected ecs.EntityId
	lastErr  error
	filter   string
	perPage  int
	page     int
}

type PerformanceStatsComponent struct {
	historyFrames int
	frameHistory  []float32
	frameIndex    int
}
