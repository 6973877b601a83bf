package layout

import (
	"sync"

	"github.com/anicoll/homedash/internal/pkg/model"
)

// Tracker applies the persistence policy for grid gestures: nothing is
// persisted while a drag is running, the drag-stop position is merged into
// the drag-start snapshot once, and other changes persist immediately.
type Tracker struct {
	mu       sync.Mutex
	dragging bool
	snapshot model.Layouts
}

func (t *Tracker) DragStart(current model.Layouts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dragging = true
	t.snapshot = current.Clone()
}

func (t *Tracker) Dragging() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dragging
}

// Change returns the layouts to persist for a layout change event, or
// false while a drag is in progress.
func (t *Tracker) Change(stored, changed model.Layouts) (model.Layouts, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dragging {
		return nil, false
	}
	return Merge(stored, changed), true
}

// DragStop ends the drag and returns the single update to persist.
func (t *Tracker) DragStop(stored model.Layouts, bp string, item model.LayoutItem) model.Layouts {
	t.mu.Lock()
	defer t.mu.Unlock()
	base := t.snapshot
	if !t.dragging || base == nil {
		base = model.Layouts{}
	}
	t.dragging = false
	t.snapshot = nil
	return Merge(stored, Replace(base, bp, item))
}
