package section

import (
	"slices"

	"github.com/samber/lo"

	"github.com/anicoll/homedash/internal/pkg/layout"
	"github.com/anicoll/homedash/internal/pkg/model"
)

// ResolveChildren returns the widgets named by ids, in ids order.
// Ids with no matching widget are skipped.
func ResolveChildren(ids []string, widgets []model.DashboardWidget) []model.DashboardWidget {
	byID := lo.KeyBy(widgets, func(w model.DashboardWidget) string { return w.ID })
	return lo.FilterMap(ids, func(id string, _ int) (model.DashboardWidget, bool) {
		w, ok := byID[id]
		return w, ok
	})
}

// Reorder removes source, then inserts it at target's index in the
// remaining list. Unknown ids leave the list unchanged.
func Reorder(ids []string, source, target string) []string {
	from := slices.Index(ids, source)
	if from < 0 || source == target || !slices.Contains(ids, target) {
		return slices.Clone(ids)
	}
	out := slices.Delete(slices.Clone(ids), from, from+1)
	return slices.Insert(out, slices.Index(out, target), source)
}

// Remove returns ids without id.
func Remove(ids []string, id string) []string {
	return lo.Without(ids, id)
}

type Point struct {
	X float64
	Y float64
}

type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Drop describes the end of a child drag gesture.
type Drop struct {
	Source string `json:"source"`
	// Target is the sibling under the pointer, empty when none.
	Target string `json:"target,omitempty"`
	// Inside is true when the drop point is within the section's child grid.
	Inside bool `json:"inside"`
}

// DropAt builds a Drop by hit-testing the pointer against the child grid.
func DropAt(source, target string, grid Rect, p Point) Drop {
	return Drop{Source: source, Target: target, Inside: grid.Contains(p)}
}

// HandleDrop applies a drop to the ordered child ids. It returns the new
// list and the ejected id, if the drop landed outside the section.
func HandleDrop(ids []string, d Drop) ([]string, string) {
	if !slices.Contains(ids, d.Source) {
		return slices.Clone(ids), ""
	}
	if d.Inside {
		if d.Target == "" || d.Target == d.Source {
			return slices.Clone(ids), ""
		}
		return Reorder(ids, d.Source, d.Target), ""
	}
	return Remove(ids, d.Source), d.Source
}

const childColumns = 2

// Cell is the placement of a child in the read-only two column grid.
type Cell struct {
	ID      string `json:"id"`
	ColSpan int    `json:"colSpan"`
	RowSpan int    `json:"rowSpan"`
}

func Cells(children []model.DashboardWidget) []Cell {
	return lo.Map(children, func(w model.DashboardWidget, _ int) Cell {
		// unplaced children take the default widget size
		c := Cell{ID: w.ID, ColSpan: min(layout.DefaultW, childColumns), RowSpan: layout.DefaultH}
		if w.Position != nil {
			c.ColSpan = max(1, min(w.Position.W, childColumns))
			c.RowSpan = max(1, w.Position.H)
		}
		return c
	})
}
