package section

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/model"
)

var (
	ErrNotSection     = errors.New("widget is not a section")
	ErrNotFound       = errors.New("widget not found")
	ErrSelfReference  = errors.New("section cannot contain itself")
	ErrAlreadyClaimed = errors.New("widget already belongs to a section")
	ErrCycle          = errors.New("section would contain one of its ancestors")
	ErrNotChild       = errors.New("widget is not a child of this section")
)

// Conflict records a widget listed by more than one section.
type Conflict struct {
	WidgetID string
	Owner    string
	Ignored  []string
}

// Tree is the ownership model over a dashboard's flat widget list. Every
// widget has at most one owning section.
type Tree struct {
	widgets   []model.DashboardWidget
	byID      map[string]model.DashboardWidget
	sections  map[string]Config
	owner     map[string]string
	conflicts []Conflict
}

// Build derives the tree. When stored data lists a widget under several
// sections, the first section in widget order owns it and the other
// claims are dropped and reported as conflicts. Sections that contain
// each other are cut loose: the first of them in widget order loses its
// owner, becomes a root, and is reported with an empty Owner.
func Build(widgets []model.DashboardWidget, isSection func(model.DashboardWidget) bool) *Tree {
	t := &Tree{
		widgets:  widgets,
		byID:     lo.KeyBy(widgets, func(w model.DashboardWidget) string { return w.ID }),
		sections: map[string]Config{},
		owner:    map[string]string{},
	}
	conflicts := map[string]*Conflict{}
	for _, w := range widgets {
		if !isSection(w) {
			continue
		}
		cfg := ParseConfig(w.Config)
		kept := make([]string, 0, len(cfg.ChildWidgetIDs))
		for _, id := range lo.Uniq(cfg.ChildWidgetIDs) {
			if id == w.ID {
				continue
			}
			if owner, claimed := t.owner[id]; claimed {
				c, ok := conflicts[id]
				if !ok {
					c = &Conflict{WidgetID: id, Owner: owner}
					conflicts[id] = c
				}
				c.Ignored = append(c.Ignored, w.ID)
				continue
			}
			t.owner[id] = w.ID
			kept = append(kept, id)
		}
		cfg.ChildWidgetIDs = kept
		t.sections[w.ID] = cfg
	}
	t.breakCycles(conflicts)
	for _, w := range widgets {
		if c, ok := conflicts[w.ID]; ok {
			t.conflicts = append(t.conflicts, *c)
			zap.L().Warn("widget claimed by several sections",
				zap.String("widget_id", c.WidgetID),
				zap.String("owner", c.Owner),
				zap.Strings("ignored", c.Ignored))
		}
	}
	return t
}

// breakCycles walks each section's owner chain and releases one claim per
// loop found, so every widget stays reachable from a root.
func (t *Tree) breakCycles(conflicts map[string]*Conflict) {
	order := make(map[string]int, len(t.widgets))
	for i, w := range t.widgets {
		if _, ok := order[w.ID]; !ok {
			order[w.ID] = i
		}
	}
	for _, w := range t.widgets {
		if _, ok := t.sections[w.ID]; !ok {
			continue
		}
		loop := t.ownerLoop(w.ID)
		if len(loop) == 0 {
			continue
		}
		first := lo.MinBy(loop, func(a, b string) bool { return order[a] < order[b] })
		owner := t.owner[first]
		delete(t.owner, first)
		cfg := t.sections[owner]
		cfg.ChildWidgetIDs = lo.Without(cfg.ChildWidgetIDs, first)
		t.sections[owner] = cfg

		c, ok := conflicts[first]
		if !ok {
			c = &Conflict{WidgetID: first}
			conflicts[first] = c
		}
		c.Owner = ""
		c.Ignored = append([]string{owner}, c.Ignored...)
		zap.L().Warn("sections contain each other",
			zap.String("widget_id", first),
			zap.String("released_from", owner),
			zap.Strings("loop", loop))
	}
}

// ownerLoop returns the sections on the loop through start, or nil when
// start's owner chain ends at a root.
func (t *Tree) ownerLoop(start string) []string {
	loop := []string{start}
	seen := map[string]bool{start: true}
	for cur, ok := t.owner[start]; ok; cur, ok = t.owner[cur] {
		if cur == start {
			return loop
		}
		if seen[cur] {
			// a loop further up that does not pass through start
			return nil
		}
		seen[cur] = true
		loop = append(loop, cur)
	}
	return nil
}

func (t *Tree) Conflicts() []Conflict {
	return t.conflicts
}

func (t *Tree) IsSection(id string) bool {
	_, ok := t.sections[id]
	return ok
}

func (t *Tree) Config(sectionID string) (Config, bool) {
	c, ok := t.sections[sectionID]
	return c, ok
}

// Owner returns the section owning id.
func (t *Tree) Owner(id string) (string, bool) {
	o, ok := t.owner[id]
	return o, ok
}

// ChildIDs returns the listed child ids, including dangling ones.
func (t *Tree) ChildIDs(sectionID string) []string {
	return slices.Clone(t.sections[sectionID].ChildWidgetIDs)
}

// Children returns the resolved child widgets of a section, in order.
func (t *Tree) Children(sectionID string) []model.DashboardWidget {
	return ResolveChildren(t.sections[sectionID].ChildWidgetIDs, t.widgets)
}

// Roots returns the widgets not owned by any section, in widget order.
func (t *Tree) Roots() []model.DashboardWidget {
	return lo.Filter(t.widgets, func(w model.DashboardWidget, _ int) bool {
		_, owned := t.owner[w.ID]
		return !owned
	})
}

// Candidates lists widgets that can be added to the section: not owned by
// any section, not the section itself, and not one of its ancestors.
func (t *Tree) Candidates(sectionID string) []model.DashboardWidget {
	return lo.Filter(t.widgets, func(w model.DashboardWidget, _ int) bool {
		return t.canAdd(sectionID, w.ID) == nil
	})
}

// Add returns the section's new child list with childID appended.
func (t *Tree) Add(sectionID, childID string) ([]string, error) {
	if err := t.canAdd(sectionID, childID); err != nil {
		return nil, err
	}
	return append(t.ChildIDs(sectionID), childID), nil
}

// Eject returns the section's new child list without childID.
func (t *Tree) Eject(sectionID, childID string) ([]string, error) {
	cfg, ok := t.sections[sectionID]
	if !ok {
		return nil, ErrNotSection
	}
	if !slices.Contains(cfg.ChildWidgetIDs, childID) {
		return nil, ErrNotChild
	}
	return Remove(cfg.ChildWidgetIDs, childID), nil
}

// Drop applies a drag gesture end. The returned ejected id is empty for
// reorders and no-ops.
func (t *Tree) Drop(sectionID string, d Drop) ([]string, string, error) {
	cfg, ok := t.sections[sectionID]
	if !ok {
		return nil, "", ErrNotSection
	}
	if !slices.Contains(cfg.ChildWidgetIDs, d.Source) {
		return nil, "", ErrNotChild
	}
	ids, ejected := HandleDrop(cfg.ChildWidgetIDs, d)
	return ids, ejected, nil
}

func (t *Tree) canAdd(sectionID, childID string) error {
	if !t.IsSection(sectionID) {
		return ErrNotSection
	}
	if _, ok := t.byID[childID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, childID)
	}
	if sectionID == childID {
		return ErrSelfReference
	}
	if owner, ok := t.owner[childID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyClaimed, owner)
	}
	seen := map[string]bool{}
	for anc, ok := t.owner[sectionID]; ok && !seen[anc]; anc, ok = t.owner[anc] {
		if anc == childID {
			return ErrCycle
		}
		seen[anc] = true
	}
	return nil
}
