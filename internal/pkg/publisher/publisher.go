package publisher

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

type publisher interface {
	// Write receives the widget states that changed since the last publish.
	Write(ctx context.Context, states []model.WidgetState) error
	RegisterWidget(widget model.DashboardWidget) error
}

// Registry fans widget state changes out to every registered publisher.
type Registry struct {
	mu         sync.RWMutex
	publishers map[string]publisher
	widgets    sync.Map
	logger     *zap.Logger
}

func New() *Registry {
	return &Registry{
		publishers: make(map[string]publisher),
		logger:     zap.L(),
	}
}

func (r *Registry) RegisterPublisher(name string, p publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.publishers[name]; ok {
		return errAlreadyRegistered
	}
	r.publishers[name] = p
	return nil
}

// Publish forwards the states whose on/off value or warning changed.
// A failing publisher is logged and skipped.
func (r *Registry) Publish(ctx context.Context, states ...model.WidgetState) error {
	data := make([]model.WidgetState, 0, len(states))
	for _, s := range states {
		if r.shouldUpdate(s) {
			data = append(data, s)
		}
	}
	if len(data) == 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, p := range r.publishers {
		if err := p.Write(ctx, data); err != nil {
			r.logger.Error("failed to publish widget state", zap.Error(err), zap.String("publisher", name))
			continue
		}
		r.logger.Debug("updated widgets", zap.Int("count", len(data)), zap.String("publisher", name))
	}
	return nil
}

func (r *Registry) RegisterWidget(widget model.DashboardWidget) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, p := range r.publishers {
		if err := p.RegisterWidget(widget); err != nil {
			r.logger.Error("failed to register widget", zap.Error(err), zap.String("publisher", name))
			continue
		}
		r.logger.Debug("registered widget", zap.String("widget", widget.ID), zap.String("publisher", name))
	}
	return nil
}

// Forget drops the remembered value so the next state is always published.
func (r *Registry) Forget(widgetID string) {
	r.widgets.Delete(widgetID)
}

func (r *Registry) shouldUpdate(s model.WidgetState) bool {
	value := strconv.FormatBool(s.AnyOn) + "|" + s.Warning
	old, exists := r.widgets.Load(s.WidgetID)
	if exists && old.(string) == value {
		return false
	}
	if !exists {
		r.logger.Info("tracking widget", zap.String("widget", s.WidgetID), zap.String("name", s.Name), zap.Bool("on", s.AnyOn))
	}
	r.widgets.Store(s.WidgetID, value)
	return true
}
