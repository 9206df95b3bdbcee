package workfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/settings"
)

// Store persists work files keyed by document path.
type Store interface {
	// Save writes the document's rectangles, or deletes the work file when
	// no page has any.
	Save(doc *model.Document, s settings.Settings) error
	// Load returns the record for path. Missing and unreadable files both
	// report false.
	Load(path string) (Record, bool)
	// Delete removes the work file for path. A missing file is not an error.
	Delete(path string) error
}

// DefaultDir is $XDG_DATA_HOME/redactkit, or ~/.local/share/redactkit.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "redactkit"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "redactkit"), nil
}

// FileStore keeps one side file per document in Dir. After each write it
// deletes the oldest files beyond Settings.HistoryLength; zero or less keeps
// everything.
type FileStore struct {
	Dir    string
	Logger observability.Logger
}

func NewFileStore(dir string, logger observability.Logger) *FileStore {
	return &FileStore{Dir: dir, Logger: observability.OrNop(logger)}
}

func (f *FileStore) path(doc string) string { return filepath.Join(f.Dir, Name(doc)) }

func (f *FileStore) logger() observability.Logger { return observability.OrNop(f.Logger) }

func (f *FileStore) Save(doc *model.Document, s settings.Settings) error {
	rec, ok := Encode(doc, s)
	if !ok {
		return f.Delete(doc.FilePath)
	}
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("encode work file: %w", err)
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.Dir, ".work-*")
	if err != nil {
		return fmt.Errorf("create temp work file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write work file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync work file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close work file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(doc.FilePath)); err != nil {
		return fmt.Errorf("replace work file: %w", err)
	}
	f.prune(s.HistoryLength)
	return nil
}

func (f *FileStore) Load(path string) (Record, bool) {
	data, err := os.ReadFile(f.path(path))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false
	}
	if err != nil {
		f.logger().Warn("work file unreadable", observability.String("document", path), observability.Error("error", err))
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		f.logger().Warn("work file corrupt", observability.String("document", path), observability.Error("error", err))
		return Record{}, false
	}
	return rec, true
}

func (f *FileStore) Delete(path string) error {
	err := os.Remove(f.path(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete work file: %w", err)
	}
	return nil
}

func (f *FileStore) prune(limit int) {
	if limit <= 0 {
		return
	}
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		f.logger().Warn("work dir unreadable", observability.Error("error", err))
		return
	}
	type aged struct {
		name string
		mod  int64
	}
	var files []aged
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, aged{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	if len(files) <= limit {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod < files[j].mod })
	for _, old := range files[:len(files)-limit] {
		if err := os.Remove(filepath.Join(f.Dir, old.name)); err != nil {
			f.logger().Warn("work file retention delete failed", observability.String("file", old.name), observability.Error("error", err))
		}
	}
}

// MemoryStore keeps records in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{records: make(map[string]Record)} }

func (m *MemoryStore) Save(doc *model.Document, s settings.Settings) error {
	rec, ok := Encode(doc, s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if !ok {
		delete(m.records, Name(doc.FilePath))
		return nil
	}
	m.records[Name(doc.FilePath)] = rec
	return nil
}

func (m *MemoryStore) Load(path string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[Name(path)]
	return rec, ok
}

func (m *MemoryStore) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, Name(path))
	return nil
}

// Len reports how many work files are held.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
