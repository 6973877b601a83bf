package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/internal/pkg/section"
	"github.com/anicoll/homedash/internal/pkg/widget"
)

// AddWidgetRequest places a catalogue widget. NewDevices are created first
// and bound together with DeviceIDs.
type AddWidgetRequest struct {
	WidgetID   string                      `json:"widgetId"`
	Component  string                      `json:"component,omitempty"`
	DeviceIDs  []string                    `json:"deviceIds,omitempty"`
	NewDevices []model.CreateDeviceRequest `json:"newDevices,omitempty"`
	Config     map[string]any              `json:"config,omitempty"`
	Position   *model.Position             `json:"position,omitempty"`
}

func (s *Service) AddWidget(ctx context.Context, req AddWidgetRequest) (*model.DashboardWidget, error) {
	dashboardID, err := s.currentID()
	if err != nil {
		return nil, err
	}
	if req.Component != "" {
		if err := s.registry.ValidateConfig(req.Component, req.Config); err != nil && !errors.Is(err, widget.ErrUnknownWidget) {
			return nil, err
		}
	}

	deviceIDs := append([]string{}, req.DeviceIDs...)
	for _, nd := range req.NewDevices {
		dev, err := s.api.CreateDevice(ctx, nd)
		if err != nil {
			return nil, fmt.Errorf("failed to create device %s: %w", nd.Name, err)
		}
		deviceIDs = append(deviceIDs, dev.ID)
	}

	created, err := s.api.CreateWidget(ctx, dashboardID, model.CreateWidgetRequest{
		WidgetID:         req.WidgetID,
		GenericDeviceIDs: lo.Uniq(deviceIDs),
		Config:           req.Config,
		Position:         req.Position,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("widget added", zap.String("widget_id", created.ID), zap.String("component", created.Widget.Component))
	return created, s.Reload(ctx)
}

// DeleteWidget removes a widget instance. It refuses to call the API until
// the caller has confirmed the deletion.
func (s *Service) DeleteWidget(ctx context.Context, widgetID string, confirmed bool) error {
	if _, err := s.instance(widgetID); err != nil {
		return err
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := s.api.DeleteWidget(ctx, widgetID); err != nil {
		return err
	}
	s.logger.Info("widget deleted", zap.String("widget_id", widgetID))
	return s.Reload(ctx)
}

func (s *Service) RenameWidget(ctx context.Context, widgetID, name string) error {
	if _, err := s.instance(widgetID); err != nil {
		return err
	}
	if _, err := s.api.UpdateWidget(ctx, widgetID, model.UpdateWidgetRequest{Name: &name}); err != nil {
		return err
	}
	return s.Reload(ctx)
}

func (s *Service) RenameDashboard(ctx context.Context, name string) error {
	id, err := s.currentID()
	if err != nil {
		return err
	}
	if err := s.api.RenameDashboard(ctx, id, name); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// UpdateConfig replaces a widget config after validating it against the
// widget kind's schema.
func (s *Service) UpdateConfig(ctx context.Context, widgetID string, config map[string]any) error {
	inst, err := s.instance(widgetID)
	if err != nil {
		return err
	}
	s.mu.RLock()
	component := inst.widget.Widget.Component
	s.mu.RUnlock()
	if err := s.registry.ValidateConfig(component, config); err != nil {
		return err
	}
	if _, err := s.api.UpdateWidget(ctx, widgetID, model.UpdateWidgetRequest{Config: config}); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// SetCollapsed toggles a section's inline collapse state. The view shows
// the new state at once and reverts it if the update fails.
func (s *Service) SetCollapsed(ctx context.Context, sectionID string, collapsed bool) error {
	s.mu.Lock()
	if s.tree == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if !s.tree.IsSection(sectionID) {
		s.mu.Unlock()
		return section.ErrNotSection
	}
	w, _ := s.dashboard.Widget(sectionID)
	previous, hadOverride := s.collapsed[sectionID]
	s.collapsed[sectionID] = collapsed
	s.mu.Unlock()

	cfg := section.ParseConfig(w.Config)
	cfg.Collapsed = collapsed
	updated, err := s.api.UpdateWidget(ctx, sectionID, model.UpdateWidgetRequest{Config: cfg.Apply(w.Config)})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if hadOverride {
			s.collapsed[sectionID] = previous
		} else {
			delete(s.collapsed, sectionID)
		}
		s.logger.Error("failed to persist section collapse", zap.String("widget_id", sectionID), zap.Error(err))
		return err
	}
	if updated != nil && updated.Config != nil {
		s.patchConfig(sectionID, updated.Config)
	}
	return nil
}

// patchConfig replaces a widget config in the loaded aggregate without a
// reload. Callers hold s.mu.
func (s *Service) patchConfig(widgetID string, config map[string]any) {
	for i := range s.dashboard.Widgets {
		if s.dashboard.Widgets[i].ID == widgetID {
			s.dashboard.Widgets[i].Config = config
		}
	}
	if inst, ok := s.instances[widgetID]; ok {
		inst.widget.Config = config
	}
	s.tree = section.Build(s.dashboard.Widgets, s.registry.IsSection)
	delete(s.collapsed, widgetID)
}

func (s *Service) OpenSection(sectionID string) error {
	return s.setOverlay(sectionID, true)
}

func (s *Service) CloseSection(sectionID string) error {
	return s.setOverlay(sectionID, false)
}

func (s *Service) setOverlay(sectionID string, open bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return ErrNotLoaded
	}
	if !s.tree.IsSection(sectionID) {
		return section.ErrNotSection
	}
	if open {
		s.overlays[sectionID] = true
	} else {
		delete(s.overlays, sectionID)
	}
	return nil
}

// SectionCandidates lists the widgets the add-child picker offers.
func (s *Service) SectionCandidates(sectionID string) ([]model.DashboardWidget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return nil, ErrNotLoaded
	}
	if !s.tree.IsSection(sectionID) {
		return nil, section.ErrNotSection
	}
	return s.tree.Candidates(sectionID), nil
}

func (s *Service) AddChild(ctx context.Context, sectionID, childID string) error {
	return s.mutateChildren(ctx, sectionID, func(t *section.Tree) ([]string, error) {
		return t.Add(sectionID, childID)
	})
}

// EjectChild moves a child back to the top-level grid.
func (s *Service) EjectChild(ctx context.Context, sectionID, childID string) error {
	return s.mutateChildren(ctx, sectionID, func(t *section.Tree) ([]string, error) {
		return t.Eject(sectionID, childID)
	})
}

// DropChild applies the end of a child drag: a reorder when dropped inside
// the section, an eject when dropped outside.
func (s *Service) DropChild(ctx context.Context, sectionID string, drop section.Drop) error {
	return s.mutateChildren(ctx, sectionID, func(t *section.Tree) ([]string, error) {
		ids, ejected, err := t.Drop(sectionID, drop)
		if err == nil && ejected != "" {
			s.logger.Info("child ejected from section", zap.String("section_id", sectionID), zap.String("widget_id", ejected))
		}
		return ids, err
	})
}

func (s *Service) mutateChildren(ctx context.Context, sectionID string, fn func(*section.Tree) ([]string, error)) error {
	s.mu.RLock()
	if s.tree == nil {
		s.mu.RUnlock()
		return ErrNotLoaded
	}
	ids, err := fn(s.tree)
	w, _ := s.dashboard.Widget(sectionID)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	cfg := section.ParseConfig(w.Config)
	if slices.Equal(cfg.ChildWidgetIDs, ids) {
		return nil
	}
	cfg.ChildWidgetIDs = ids
	if _, err := s.api.UpdateWidget(ctx, sectionID, model.UpdateWidgetRequest{Config: cfg.Apply(w.Config)}); err != nil {
		return err
	}
	return s.Reload(ctx)
}
