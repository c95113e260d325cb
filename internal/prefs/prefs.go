package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketPrefs    = []byte("prefs")
	keyDeviceToken = []byte("device_token")
	keyTheme       = []byte("theme")
	keyLayoutWidth = []byte("layout_width")
)

// Store persists small client-local preferences: the opaque device token
// attached to every gateway call, and UI knobs the core never interprets.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("prefs db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPrefs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DeviceToken returns the persisted caller-identifying token, minting and
// storing a fresh one on first use.
func (s *Store) DeviceToken() (string, error) {
	token, err := s.get(keyDeviceToken)
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}
	token = "device-" + uuid.NewString()
	if err := s.set(keyDeviceToken, token); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Store) Theme() (string, error) {
	return s.get(keyTheme)
}

func (s *Store) SetTheme(theme string) error {
	return s.set(keyTheme, strings.TrimSpace(theme))
}

func (s *Store) LayoutWidth() (int, error) {
	raw, err := s.get(keyLayoutWidth)
	if err != nil || raw == "" {
		return 0, err
	}
	width, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return width, nil
}

func (s *Store) SetLayoutWidth(width int) error {
	if width < 0 {
		return errors.New("layout width must not be negative")
	}
	return s.set(keyLayoutWidth, strconv.Itoa(width))
}

func (s *Store) get(key []byte) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs)
		if b == nil {
			return nil
		}
		if raw := b.Get(key); len(raw) > 0 {
			value = string(raw)
		}
		return nil
	})
	return value, err
}

func (s *Store) set(key []byte, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs)
		if b == nil {
			return errors.New("prefs bucket missing")
		}
		return b.Put(key, []byte(value))
	})
}
