package service

import (
	"log/slog"

	"xof_converter/internal/domain"
)

// PreferenceService stores UI preferences in the device-local store
type PreferenceService struct {
	store  domain.LocalStore
	logger *slog.Logger
}

// NewPreferenceService creates a preference service over the local store
func NewPreferenceService(store domain.LocalStore) *PreferenceService {
	return &PreferenceService{
		store:  store,
		logger: slog.Default().With("module", "preferences"),
	}
}

// Theme returns the saved theme. Missing or unreadable values mean light.
func (s *PreferenceService) Theme() domain.Theme {
	raw, ok, err := s.store.Get(domain.ThemeKey)
	if err != nil {
		s.logger.Warn("Failed to read theme", slog.Any("error", err))
		return domain.ThemeLight
	}
	if !ok {
		return domain.ThemeLight
	}
	theme, err := domain.ParseTheme(raw)
	if err != nil {
		s.logger.Warn("Malformed theme, using light", slog.String("value", raw))
		return domain.ThemeLight
	}
	return theme
}

// SetTheme persists the theme
func (s *PreferenceService) SetTheme(raw string) (domain.Theme, error) {
	theme, err := domain.ParseTheme(raw)
	if err != nil {
		return "", err
	}
	if err := s.store.Set(domain.ThemeKey, string(theme)); err != nil {
		return "", err
	}
	return theme, nil
}
