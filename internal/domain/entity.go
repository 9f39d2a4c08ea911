package domain

import (
	"time"
)

// LocalRecord is one device-local key/value pair (the browser-storage analogue)
type LocalRecord struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Keys of the device-local store
const (
	FavoritesKey = "favorites"
	ThemeKey     = "theme"
)

// Theme is the UI colour preference
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts exactly "dark" or "light"
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	default:
		return "", ErrInvalidTheme
	}
}
