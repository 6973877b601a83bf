// Package section models container widgets that own an ordered list of
// other widget instances.
package section

import (
	"maps"

	"github.com/samber/lo"
)

const (
	keyChildren = "childWidgetIds"
	keyColor    = "sectionColor"
	keyTitle    = "title"
	keyPadding  = "padding"
	keyFoldable = "foldable"
	keyCollapse = "collapsed"
)

type Config struct {
	ChildWidgetIDs []string
	SectionColor   string
	Title          string
	Padding        float64
	Foldable       bool
	Collapsed      bool
}

// ParseConfig reads a section config from a free-form widget config.
// Unexpected value types fall back to zero values.
func ParseConfig(raw map[string]any) Config {
	cfg := Config{}
	switch ids := raw[keyChildren].(type) {
	case []string:
		cfg.ChildWidgetIDs = append([]string(nil), ids...)
	case []any:
		cfg.ChildWidgetIDs = lo.FilterMap(ids, func(v any, _ int) (string, bool) {
			s, ok := v.(string)
			return s, ok && s != ""
		})
	}
	cfg.SectionColor, _ = raw[keyColor].(string)
	cfg.Title, _ = raw[keyTitle].(string)
	switch p := raw[keyPadding].(type) {
	case float64:
		cfg.Padding = p
	case int:
		cfg.Padding = float64(p)
	}
	cfg.Foldable, _ = raw[keyFoldable].(bool)
	cfg.Collapsed, _ = raw[keyCollapse].(bool)
	return cfg
}

// Apply writes the config onto a copy of raw, keeping unrelated keys.
func (c Config) Apply(raw map[string]any) map[string]any {
	out := maps.Clone(raw)
	if out == nil {
		out = map[string]any{}
	}
	out[keyChildren] = lo.Ternary(c.ChildWidgetIDs == nil, []string{}, c.ChildWidgetIDs)
	out[keyFoldable] = c.Foldable
	out[keyCollapse] = c.Collapsed
	if c.SectionColor != "" {
		out[keyColor] = c.SectionColor
	}
	if c.Title != "" {
		out[keyTitle] = c.Title
	}
	if c.Padding != 0 {
		out[keyPadding] = c.Padding
	}
	return out
}

type DisplayState string

const (
	InlineExpanded  DisplayState = "inline-expanded"
	InlineCollapsed DisplayState = "inline-collapsed"
	FoldableClosed  DisplayState = "foldable-closed"
	FoldableOpen    DisplayState = "foldable-open"
)

// Display resolves how a section renders. Outside edit mode a foldable
// section is a compact tile (or overlay when open) and ignores collapsed.
func Display(cfg Config, editMode, overlayOpen bool) DisplayState {
	if cfg.Foldable && !editMode {
		return lo.Ternary(overlayOpen, FoldableOpen, FoldableClosed)
	}
	return lo.Ternary(cfg.Collapsed, InlineCollapsed, InlineExpanded)
}
