// Package layout handles the responsive grid layouts of a dashboard.
package layout

import (
	"slices"

	"github.com/samber/lo"

	"github.com/anicoll/homedash/internal/pkg/model"
)

type Breakpoint struct {
	Name string `json:"name"`
	// MinWidth is the smallest viewport width in pixels using this breakpoint.
	MinWidth int `json:"minWidth"`
	Cols     int `json:"cols"`
}

var Breakpoints = []Breakpoint{
	{Name: "lg", MinWidth: 1200, Cols: 12},
	{Name: "md", MinWidth: 996, Cols: 10},
	{Name: "sm", MinWidth: 768, Cols: 6},
	{Name: "xs", MinWidth: 480, Cols: 4},
	{Name: "xxs", MinWidth: 0, Cols: 2},
}

const (
	DefaultW = 3
	DefaultH = 2
)

// ForWidth returns the breakpoint used at a viewport width.
func ForWidth(width int) Breakpoint {
	bp, ok := lo.Find(Breakpoints, func(b Breakpoint) bool { return width >= b.MinWidth })
	if !ok {
		return Breakpoints[len(Breakpoints)-1]
	}
	return bp
}

// Synthesize returns, for every breakpoint, one entry per root id in the
// stored order, adding an entry derived from the widget position for roots
// that have none. Entries for non-root ids are left out.
func Synthesize(stored model.Layouts, roots []model.DashboardWidget) model.Layouts {
	out := make(model.Layouts, len(Breakpoints))
	for _, bp := range Breakpoints {
		existing := lo.KeyBy(stored[bp.Name], func(it model.LayoutItem) string { return it.ID })
		items := make([]model.LayoutItem, 0, len(roots))
		bottom := lo.Reduce(stored[bp.Name], func(acc int, it model.LayoutItem, _ int) int {
			return max(acc, it.Y+it.H)
		}, 0)
		for _, w := range roots {
			if it, ok := existing[w.ID]; ok {
				items = append(items, clampItem(it, bp.Cols))
				continue
			}
			it := fromPosition(w, bottom)
			bottom = max(bottom, it.Y+it.H)
			items = append(items, clampItem(it, bp.Cols))
		}
		out[bp.Name] = items
	}
	return out
}

func fromPosition(w model.DashboardWidget, bottom int) model.LayoutItem {
	if w.Position == nil {
		return model.LayoutItem{ID: w.ID, X: 0, Y: bottom, W: DefaultW, H: DefaultH}
	}
	p := *w.Position
	return model.LayoutItem{
		ID: w.ID,
		X:  max(0, p.X),
		Y:  max(0, p.Y),
		W:  lo.Ternary(p.W > 0, p.W, DefaultW),
		H:  lo.Ternary(p.H > 0, p.H, DefaultH),
	}
}

func clampItem(it model.LayoutItem, cols int) model.LayoutItem {
	it.W = max(1, min(it.W, cols))
	it.X = max(0, min(it.X, cols-it.W))
	it.H = max(1, it.H)
	return it
}

// Center shifts every breakpoint's items right by half the unused columns.
// It is display only and returns a copy.
func Center(layouts model.Layouts) model.Layouts {
	out := layouts.Clone()
	for _, bp := range Breakpoints {
		items := out[bp.Name]
		if len(items) == 0 {
			continue
		}
		used := lo.Reduce(items, func(acc int, it model.LayoutItem, _ int) int {
			return max(acc, it.X+it.W)
		}, 0)
		shift := (bp.Cols - used) / 2
		if shift <= 0 {
			continue
		}
		for i := range items {
			items[i].X += shift
		}
	}
	return out
}

// Merge folds changed into stored breakpoint by breakpoint. An entry in
// changed replaces the stored entry with the same id; stored entries not
// mentioned are kept.
func Merge(stored, changed model.Layouts) model.Layouts {
	out := stored.Clone()
	if out == nil {
		out = model.Layouts{}
	}
	for bp, items := range changed {
		current := out[bp]
		for _, it := range items {
			idx := slices.IndexFunc(current, func(c model.LayoutItem) bool { return c.ID == it.ID })
			if idx >= 0 {
				current[idx] = it
				continue
			}
			current = append(current, it)
		}
		out[bp] = current
	}
	return out
}

// Replace returns layouts with the entry for id in breakpoint bp set to item.
func Replace(layouts model.Layouts, bp string, item model.LayoutItem) model.Layouts {
	return Merge(layouts, model.Layouts{bp: {item}})
}

// Drop removes id from every breakpoint.
func Drop(layouts model.Layouts, id string) model.Layouts {
	out := make(model.Layouts, len(layouts))
	for bp, items := range layouts {
		out[bp] = lo.Filter(items, func(it model.LayoutItem, _ int) bool { return it.ID != id })
	}
	return out
}
