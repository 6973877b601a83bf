package dashboard

import (
	"context"

	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/layout"
	"github.com/anicoll/homedash/internal/pkg/model"
)

// DragStart snapshots the stored layouts at the beginning of a drag.
func (s *Service) DragStart() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dashboard == nil {
		return ErrNotLoaded
	}
	s.tracker.DragStart(s.dashboard.Layouts)
	return nil
}

// LayoutChange persists a layout change event unless a drag is running.
func (s *Service) LayoutChange(ctx context.Context, changed model.Layouts) error {
	id, stored, err := s.storedLayouts()
	if err != nil {
		return err
	}
	merged, ok := s.tracker.Change(stored, changed)
	if !ok {
		return nil
	}
	return s.persistLayouts(ctx, id, merged)
}

// DragStop persists the dragged item's final position as one update.
func (s *Service) DragStop(ctx context.Context, breakpoint string, item model.LayoutItem) error {
	id, stored, err := s.storedLayouts()
	if err != nil {
		return err
	}
	return s.persistLayouts(ctx, id, s.tracker.DragStop(stored, breakpoint, item))
}

func (s *Service) storedLayouts() (string, model.Layouts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dashboard == nil {
		return "", nil, ErrNotLoaded
	}
	return s.dashboard.ID, s.dashboard.Layouts.Clone(), nil
}

func (s *Service) persistLayouts(ctx context.Context, id string, layouts model.Layouts) error {
	if err := s.api.UpdateLayouts(ctx, id, layouts); err != nil {
		s.logger.Error("failed to persist layouts", zap.String("dashboard_id", id), zap.Error(err))
		return err
	}
	s.mu.Lock()
	if s.dashboard != nil && s.dashboard.ID == id {
		s.dashboard.Layouts = layouts
	}
	s.mu.Unlock()
	return nil
}

// Breakpoints exposes the grid breakpoints.
func Breakpoints() []layout.Breakpoint {
	return layout.Breakpoints
}
