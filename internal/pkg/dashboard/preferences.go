package dashboard

import "context"

// HideTitle reports whether a device's title is hidden in fullscreen on
// the loaded dashboard.
func (s *Service) HideTitle(ctx context.Context, deviceID string) (bool, error) {
	id, err := s.currentID()
	if err != nil {
		return false, err
	}
	return s.prefs.HideTitle(ctx, id, deviceID)
}

func (s *Service) SetHideTitle(ctx context.Context, deviceID string, hide bool) error {
	id, err := s.currentID()
	if err != nil {
		return err
	}
	return s.prefs.SetHideTitle(ctx, id, deviceID, hide)
}

func (s *Service) SetTheme(ctx context.Context, theme string) error {
	id, err := s.currentID()
	if err != nil {
		return err
	}
	return s.prefs.SetTheme(ctx, id, theme)
}
