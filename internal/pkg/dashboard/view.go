package dashboard

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/layout"
	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/internal/pkg/prefs"
	"github.com/anicoll/homedash/internal/pkg/section"
	"github.com/anicoll/homedash/internal/pkg/widget"
)

// View is the render model of the loaded dashboard.
type View struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	EditMode    bool                `json:"editMode"`
	Theme       string              `json:"theme"`
	Breakpoints []layout.Breakpoint `json:"breakpoints"`
	Layouts     model.Layouts       `json:"layouts"`
	Tiles       []Tile              `json:"tiles"`
	Conflicts   []section.Conflict  `json:"conflicts,omitempty"`
}

type Tile struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Component   string         `json:"component"`
	Kind        widget.Kind    `json:"kind,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	Devices     []model.Device `json:"devices"`
	State       *TileState     `json:"state,omitempty"`
	Controls    *Controls      `json:"controls,omitempty"`
	Section     *SectionView   `json:"section,omitempty"`
}

type TileState struct {
	AnyOn   bool                `json:"anyOn"`
	Loaded  bool                `json:"loaded"`
	Busy    bool                `json:"busy"`
	Warning string              `json:"warning,omitempty"`
	Devices []model.DeviceState `json:"devices,omitempty"`
}

// Controls reports which commands are enabled and the current control
// values, optimistic when a commit is pending.
type Controls struct {
	Toggle      bool `json:"toggle"`
	Switch      bool `json:"switch"`
	Dim         bool `json:"dim"`
	Color       bool `json:"color"`
	Temperature bool `json:"temperature"`
	Brightness  int  `json:"brightness"`
	Kelvin      int  `json:"kelvin"`
	Hue         int  `json:"hue"`
	Pending     bool `json:"pending"`
}

type SectionView struct {
	Title      string               `json:"title,omitempty"`
	Color      string               `json:"color,omitempty"`
	Padding    float64              `json:"padding,omitempty"`
	Foldable   bool                 `json:"foldable"`
	Collapsed  bool                 `json:"collapsed"`
	Display    section.DisplayState `json:"display"`
	Children   []Tile               `json:"children"`
	Cells      []section.Cell       `json:"cells,omitempty"`
	Candidates []string             `json:"candidates,omitempty"`
}

// View builds the render model. Outside edit mode the layouts are centred
// for display; the stored layouts are never modified.
func (s *Service) View(ctx context.Context, editMode bool) (*View, error) {
	s.mu.RLock()
	if s.dashboard == nil {
		s.mu.RUnlock()
		return nil, ErrNotLoaded
	}
	d := s.dashboard
	roots := s.tree.Roots()
	layouts := layout.Synthesize(d.Layouts, roots)
	if !editMode {
		layouts = layout.Center(layouts)
	}
	v := &View{
		ID:          d.ID,
		Name:        d.Name,
		EditMode:    editMode,
		Theme:       prefs.ThemeSystem,
		Breakpoints: layout.Breakpoints,
		Layouts:     layouts,
		Conflicts:   s.tree.Conflicts(),
	}
	v.Tiles = lo.Map(roots, func(w model.DashboardWidget, _ int) Tile {
		return s.tile(w, editMode)
	})
	s.mu.RUnlock()

	if s.prefs != nil {
		theme, err := s.prefs.Theme(ctx, d.ID)
		if err != nil {
			s.logger.Warn("failed to read theme preference", zap.Error(err))
		}
		v.Theme = theme
	}
	return v, nil
}

// tile renders one widget. Callers hold s.mu.
func (s *Service) tile(w model.DashboardWidget, editMode bool) Tile {
	t := Tile{
		ID:          w.ID,
		Name:        w.DisplayName(),
		Component:   w.Widget.Component,
		Config:      w.Config,
		Devices:     w.Devices,
		Placeholder: s.registry.Placeholder(w),
	}
	inst, ok := s.instances[w.ID]
	if !ok || !inst.known {
		return t
	}
	t.Kind = inst.spec.Kind

	if inst.spec.Polls && len(w.Devices) > 0 {
		snap := inst.poller.Snapshot()
		t.State = &TileState{
			AnyOn:   snap.AnyOn,
			Loaded:  snap.Loaded,
			Busy:    inst.busy.Load() > 0,
			Warning: snap.Err,
			Devices: snap.Devices,
		}
	}
	if len(inst.spec.Commands) > 0 && len(w.Devices) > 0 {
		t.Controls = controls(inst)
	}
	if inst.spec.Kind == widget.KindSection {
		t.Section = s.sectionView(w, editMode)
	}
	return t
}

func controls(inst *instance) *Controls {
	d := inst.dispatcher
	c := &Controls{
		Toggle:      d.Supports(model.CapabilityToggle),
		Switch:      d.Supports(model.CapabilitySwitch),
		Dim:         d.Supports(model.CapabilityDim),
		Color:       d.Supports(model.CapabilityColor),
		Temperature: d.Supports(model.CapabilityTemperature),
		Brightness:  inst.brightness.Value(),
		Kelvin:      inst.temperature.Value(),
		Hue:         inst.hue.Value(),
	}
	_, pb := inst.brightness.Pending()
	_, pt := inst.temperature.Pending()
	_, ph := inst.hue.Pending()
	c.Pending = pb || pt || ph
	return c
}

func (s *Service) sectionView(w model.DashboardWidget, editMode bool) *SectionView {
	cfg, _ := s.tree.Config(w.ID)
	if override, ok := s.collapsed[w.ID]; ok {
		cfg.Collapsed = override
	}
	sv := &SectionView{
		Title:     cfg.Title,
		Color:     cfg.SectionColor,
		Padding:   cfg.Padding,
		Foldable:  cfg.Foldable,
		Collapsed: cfg.Collapsed,
		Display:   section.Display(cfg, editMode, s.overlays[w.ID]),
		Children:  []Tile{},
	}

	children := s.tree.Children(w.ID)
	sv.Children = lo.Map(children, func(c model.DashboardWidget, _ int) Tile {
		return s.tile(c, editMode)
	})
	if editMode {
		sv.Candidates = lo.Map(s.tree.Candidates(w.ID), func(c model.DashboardWidget, _ int) string { return c.ID })
	} else {
		sv.Cells = section.Cells(children)
	}
	return sv
}
