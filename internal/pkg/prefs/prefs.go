package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidTheme = errors.New("invalid theme")

// Store is a small string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

var themes = map[string]struct{}{
	ThemeLight:  {},
	ThemeDark:   {},
	ThemeSystem: {},
}

// Preferences holds the per-dashboard client preferences.
type Preferences struct {
	store Store
}

func New(store Store) *Preferences {
	return &Preferences{store: store}
}

func hideTitleKey(dashboardID, deviceID string) string {
	return fmt.Sprintf("dashboard:%s:device:%s:hideTitle", dashboardID, deviceID)
}

func themeKey(dashboardID string) string {
	return fmt.Sprintf("dashboard:%s:theme", dashboardID)
}

// HideTitle reports whether the device title is hidden in fullscreen.
// Unset or unreadable values read as false.
func (p *Preferences) HideTitle(ctx context.Context, dashboardID, deviceID string) (bool, error) {
	v, ok, err := p.store.Get(ctx, hideTitleKey(dashboardID, deviceID))
	if err != nil || !ok {
		return false, err
	}
	hide, err := strconv.ParseBool(v)
	if err != nil {
		return false, nil
	}
	return hide, nil
}

func (p *Preferences) SetHideTitle(ctx context.Context, dashboardID, deviceID string, hide bool) error {
	return p.store.Set(ctx, hideTitleKey(dashboardID, deviceID), strconv.FormatBool(hide))
}

// Theme returns the dashboard colour theme, ThemeSystem when unset.
func (p *Preferences) Theme(ctx context.Context, dashboardID string) (string, error) {
	v, ok, err := p.store.Get(ctx, themeKey(dashboardID))
	if err != nil {
		return ThemeSystem, err
	}
	if _, known := themes[v]; !ok || !known {
		return ThemeSystem, nil
	}
	return v, nil
}

func (p *Preferences) SetTheme(ctx context.Context, dashboardID, theme string) error {
	if _, ok := themes[theme]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	return p.store.Set(ctx, themeKey(dashboardID), theme)
}
