package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/wudi/redactkit/observability"
)

// Store persists Settings.
type Store interface {
	// Load returns the stored settings. A store with nothing saved yields
	// Default() and no error. Corrupt or invalid data yields Default() and
	// a non-nil error.
	Load() (Settings, error)
	// Save persists s. Invalid settings are rejected.
	Save(s Settings) error
}

// LoadOrDefault loads from store and falls back to defaults on any failure,
// logging the reason.
func LoadOrDefault(store Store, logger observability.Logger) Settings {
	s, err := store.Load()
	if err != nil {
		observability.OrNop(logger).Warn("settings unusable, using defaults", observability.Error("error", err))
		return Default()
	}
	return s
}

// Decode overlays the JSON object in data onto the defaults and validates
// the result. Unknown keys are ignored.
func Decode(data []byte) (Settings, error) {
	s := Default()
	if err := json.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Default(), err
	}
	return s, nil
}

// DefaultPath is settings.json in the user configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "redactkit", "settings.json"), nil
}

// JSONStore keeps settings in a single JSON file.
type JSONStore struct {
	Path string
}

func NewJSONStore(path string) *JSONStore { return &JSONStore{Path: path} }

func (j *JSONStore) Load() (Settings, error) {
	data, err := os.ReadFile(j.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("read settings %s: %w", j.Path, err)
	}
	return Decode(data)
}

func (j *JSONStore) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.Path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(j.Path), ".settings-*")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.Path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// MemoryStore keeps settings in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	saved *Settings
}

func (m *MemoryStore) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return Default(), nil
	}
	return *m.saved, nil
}

func (m *MemoryStore) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = &s
	return nil
}
