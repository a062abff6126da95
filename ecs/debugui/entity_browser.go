package debugui

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/softbody/ecs"
)

type entityRow struct {
	id        ecs.EntityId
	archetype uint32
	types     []string
	detail    string
	// lowercased id, component names and detail for filtering
	haystack string
}

// ErrProtectedEntity is returned when asked to destroy an entity that hosts
// the debug UI itself.
var ErrProtectedEntity = errors.New("debugui: entity hosts the debug ui")

var uiTypes = []reflect.Type{
	reflect.TypeFor[EntityBrowserComponent](),
	reflect.TypeFor[PerformanceStatsComponent](),
	reflect.TypeFor[ImguiItem](),
}

// NewEntityBrowserComponent lists every entity, perPage rows at a time.
// describe may be nil.
func NewEntityBrowserComponent(perPage int, describe Describer) EntityBrowserComponent {
	return EntityBrowserComponent{perPage: perPage, describe: describe}
}

func (eb *EntityBrowserComponent) Render(storage *ecs.Storage) {
	if !imgui.BeginV("Entities", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}
	eb.refresh(storage)

	if imgui.InputTextWithHint("##filter", "Filter...", &eb.filter, imgui.InputTextFlagsNone, nil) {
		eb.page = 0
	}
	imgui.SameLine()
	if imgui.Button("Clear") {
		eb.filter = ""
		eb.page = 0
	}

	rows := eb.visible()
	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("entities", 4, tableFlags, imgui.NewVec2(0, 300), 0) {
		imgui.TableSetupColumn("Entity")
		imgui.TableSetupColumn("Archetype")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Detail")
		imgui.TableHeadersRow()

		if specs := imgui.TableGetSortSpecs(); specs.SpecsDirty() && specs.SpecsCount() > 0 {
			spec := specs.Specs()
			eb.sortBy(int(spec.ColumnIndex()), spec.SortDirection() == imgui.SortDirectionDescending)
			specs.SetSpecsDirty(false)
			rows = eb.visible()
		}

		for _, row := range eb.pageOf(rows) {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			if imgui.SelectableBoolV(row.id.String(), eb.selected == row.id, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				eb.selected = row.id
				eb.lastErr = nil
			}
			imgui.TableNextColumn()
			imgui.Text(strconv.FormatUint(uint64(row.archetype), 10))
			imgui.TableNextColumn()
			imgui.Text(strings.Join(row.types, ", "))
			imgui.TableNextColumn()
			imgui.Text(row.detail)
		}
		imgui.EndTable()
	}

	if pages := eb.pages(len(rows)); pages > 1 {
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", eb.page+1, pages, len(rows)))
		imgui.SameLine()
		if imgui.Button("Prev") && eb.page > 0 {
			eb.page--
		}
		imgui.SameLine()
		if imgui.Button("Next") && eb.page < pages-1 {
			eb.page++
		}
	} else {
		imgui.Text(fmt.Sprintf("%d entities", len(rows)))
	}

	if eb.selected != 0 && storage.Alive(eb.selected) {
		imgui.Separator()
		imgui.Text("Selected: " + eb.selected.String())
		for _, t := range storage.ComponentTypes(eb.selected) {
			imgui.BulletText(t.String())
		}
		if imgui.Button("Destroy") {
			eb.lastErr = eb.destroySelected(storage)
		}
	}
	if eb.lastErr != nil {
		imgui.TextColored(imgui.NewVec4(1, 0.4, 0.4, 1), eb.lastErr.Error())
	}

	imgui.End()
}

// destroySelected destroys the selected entity, which disposes any buffers it
// owns. Entities carrying debug UI components are refused.
func (eb *EntityBrowserComponent) destroySelected(storage *ecs.Storage) error {
	id := eb.selected
	for _, t := range storage.ComponentTypes(id) {
		if slices.Contains(uiTypes, t) {
			return fmt.Errorf("destroy %s: %w", id, ErrProtectedEntity)
		}
	}
	if err := storage.Destroy(id); err != nil {
		return fmt.Errorf("destroy %s: %w", id, err)
	}
	eb.selected = 0
	return nil
}

// refresh rebuilds the rows when the archetype or entity count changed.
func (eb *EntityBrowserComponent) refresh(storage *ecs.Storage) {
	seen := [2]int{len(storage.Archetypes()), storage.Count()}
	if eb.rows != nil && seen == eb.seen {
		return
	}
	eb.seen = seen

	eb.rows = make([]entityRow, 0, storage.Count())
	for _, archetype := range storage.Archetypes() {
		types := make([]string, len(archetype.Types()))
		for i, t := range archetype.Types() {
			types[i] = t.String()
		}
		for _, id := range archetype.Iter() {
			row := entityRow{id: id, archetype: archetype.ID(), types: types}
			if eb.describe != nil {
				row.detail = eb.describe(storage, id)
			}
			if row.detail == "" {
				row.detail = fmt.Sprintf("%d components", len(types))
			}
			row.haystack = strings.ToLower(id.String() + " " + strings.Join(types, " ") + " " + row.detail)
			eb.rows = append(eb.rows, row)
		}
	}
	eb.sortBy(eb.sortColumn, eb.descending)
}

func (eb *EntityBrowserComponent) sortBy(column int, descending bool) {
	eb.sortColumn, eb.descending = column, descending
	slices.SortStableFunc(eb.rows, func(a, b entityRow) int {
		var c int
		switch column {
		case 1:
			c = cmp.Compare(a.archetype, b.archetype)
		case 2:
			c = slices.Compare(a.types, b.types)
		case 3:
			c = strings.Compare(a.detail, b.detail)
		default:
			c = cmp.Compare(a.id.Index(), b.id.Index())
		}
		if descending {
			return -c
		}
		return c
	})
}

// visible applies the filter, matched case-insensitively against the id,
// the component names and the detail.
func (eb *EntityBrowserComponent) visible() []entityRow {
	if eb.filter == "" {
		return eb.rows
	}
	needle := strings.ToLower(eb.filter)
	var out []entityRow
	for _, row := range eb.rows {
		if strings.Contains(row.haystack, needle) {
			out = append(out, row)
		}
	}
	return out
}

func (eb *EntityBrowserComponent) pages(n int) int {
	if eb.perPage <= 0 {
		return 1
	}
	return (n + eb.perPage - 1) / eb.perPage
}

// pageOf clamps the current page and returns its rows.
func (eb *EntityBrowserComponent) pageOf(rows []entityRow) []entityRow {
	if eb.perPage <= 0 {
		return rows
	}
	eb.page = min(eb.page, max(eb.pages(len(rows))-1, 0))
	start := eb.page * eb.perPage
	return rows[start:min(start+eb.perPage, len(rows))]
}

// Selected returns the entity picked in the table, or zero.
func (eb *EntityBrowserComponent) Selected() ecs.EntityId {
	return eb.selected
}
