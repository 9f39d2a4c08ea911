package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"xof_converter/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the device-local key/value store backing favorites and preferences.
// It implements domain.LocalStore.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite file. An empty path resolves to the
// per-user config directory.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		resolved, err := getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		path = resolved
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.LocalRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "XOFConverter", "data", "local.db"), nil
}

// Close releases the underlying connection
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable
func (s *Storage) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ======================================================================================
// Key/Value Operations
// ======================================================================================

// Get returns the value stored under key
func (s *Storage) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	var rec domain.LocalRecord
	err := s.db.Where(&domain.LocalRecord{Key: key}).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil // Not found is not an error
	}
	if err != nil {
		return "", false, err
	}
	return rec.Value, true, nil
}

// Set creates or replaces the value of key
func (s *Storage) Set(key, value string) error {
	return s.db.Save(&domain.LocalRecord{Key: key, Value: value}).Error
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	return s.db.Delete(&domain.LocalRecord{Key: key}).Error
}

// All loads every record as a map
func (s *Storage) All() (map[string]string, error) {
	var records []domain.LocalRecord
	if err := s.db.Find(&records).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string, len(records))
	for _, rec := range records {
		result[rec.Key] = rec.Value
	}
	return result, nil
}
