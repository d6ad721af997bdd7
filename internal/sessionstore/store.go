package sessionstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ocgp/gameclient/internal/models"
)

// Keys the session is serialized under, matching the original storage layout.
const (
	tokenKey = "ocgpToken"
	userKey  = "ocgpUser"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("key not found")

// entry is one persisted key-value pair.
type entry struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func (entry) TableName() string { return "kv" }

// Store is the client's persistent key-value store, backed by a sqlite file.
// It holds exactly the session credential pair; everything else the client
// knows is server state and is never persisted.
type Store struct {
	db *gorm.DB
}

// Open creates or opens the store at path. ":memory:" gives an ephemeral
// store for tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session store: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, error) {
	var e entry
	if err := s.db.First(&e, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return e.Value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	e := entry{Key: key, Value: value}
	if err := s.db.Save(&e).Error; err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	if err := s.db.Delete(&entry{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// LoadSession reads the persisted session, nil when no session is stored or
// the stored value does not decode.
func (s *Store) LoadSession() (*models.Session, error) {
	token, err := s.Get(tokenKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	userJSON, err := s.Get(userKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, nil
	}
	return &models.Session{Token: token, User: user}, nil
}

// SaveSession persists the session under the two session keys.
func (s *Store) SaveSession(session *models.Session) error {
	userJSON, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("failed to encode session user: %w", err)
	}
	if err := s.Set(tokenKey, session.Token); err != nil {
		return err
	}
	return s.Set(userKey, string(userJSON))
}

// ClearSession removes both session keys.
func (s *Store) ClearSession() error {
	if err := s.Delete(tokenKey); err != nil {
		return err
	}
	return s.Delete(userKey)
}
