package service

import (
	"errors"
	"testing"

	"xof_converter/internal/domain"
)

func TestPreferences_Theme(t *testing.T) {
	mem := newMemStore()
	prefs := NewPreferenceService(mem)

	if prefs.Theme() != domain.ThemeLight {
		t.Error("Default theme should be light")
	}

	if _, err := prefs.SetTheme("dark"); err != nil {
		t.Fatalf("SetTheme failed: %v", err)
	}
	if prefs.Theme() != domain.ThemeDark {
		t.Error("Expected dark after SetTheme")
	}

	if _, err := prefs.SetTheme("sepia"); !errors.Is(err, domain.ErrInvalidTheme) {
		t.Errorf("Expected ErrInvalidTheme, got %v", err)
	}
	if prefs.Theme() != domain.ThemeDark {
		t.Error("Rejected theme must not overwrite the stored one")
	}

	mem.data[domain.ThemeKey] = "purple"
	if prefs.Theme() != domain.ThemeLight {
		t.Error("Malformed stored theme should read as light")
	}
}
