package widget

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anicoll/homedash/internal/pkg/model"
)

var (
	ErrUnknownWidget = errors.New("unknown widget")
	ErrInvalidConfig = errors.New("invalid widget config")
)

const NoDevicePlaceholder = "No device connected"

// Spec is the behaviour bundle of one widget kind.
type Spec struct {
	Kind        Kind
	Component   string
	DefaultSize model.Position
	// NeedsDevices marks kinds that render a placeholder without devices.
	NeedsDevices bool
	Polls        bool
	Commands     []string
	Schema       json.RawMessage
}

// Registry is the lookup table from component identifier to Spec. It is
// built once at startup and is read-only afterwards.
type Registry struct {
	byComponent map[string]Spec
	byKind      map[Kind]Spec
	validator   *Validator
}

func NewRegistry(specs ...Spec) *Registry {
	r := &Registry{
		byComponent: make(map[string]Spec, len(specs)),
		byKind:      make(map[Kind]Spec, len(specs)),
		validator:   NewValidator(),
	}
	for _, s := range specs {
		r.byComponent[s.Component] = s
		r.byKind[s.Kind] = s
	}
	return r
}

// DefaultRegistry knows every built-in widget kind.
func DefaultRegistry() *Registry {
	return NewRegistry(builtins...)
}

func (r *Registry) Resolve(component string) (Spec, error) {
	s, ok := r.byComponent[component]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrUnknownWidget, component)
	}
	return s, nil
}

func (r *Registry) ByKind(k Kind) (Spec, bool) {
	s, ok := r.byKind[k]
	return s, ok
}

// IsSection reports whether the widget instance is a section container.
func (r *Registry) IsSection(w model.DashboardWidget) bool {
	s, err := r.Resolve(w.Widget.Component)
	return err == nil && s.Kind == KindSection
}

// ValidateConfig checks a widget config against the kind's schema.
func (r *Registry) ValidateConfig(component string, config map[string]any) error {
	s, err := r.Resolve(component)
	if err != nil {
		return err
	}
	if err := r.validator.Validate(s.Schema, config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Placeholder returns the text rendered instead of a widget, or "" when
// the widget can render normally.
func (r *Registry) Placeholder(w model.DashboardWidget) string {
	s, err := r.Resolve(w.Widget.Component)
	if err != nil {
		return "Unknown widget: " + w.Widget.Component
	}
	if s.NeedsDevices && len(w.Devices) == 0 {
		return NoDevicePlaceholder
	}
	return ""
}
