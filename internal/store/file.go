package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore persists each session's items as one JSON object on disk:
// <dir>/<sessionID>.json.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(sessionID string) string {
	return filepath.Join(f.dir, sessionID+".json")
}

func (f *FileStore) GetItem(_ context.Context, sessionID, key string) (string, bool, error) {
	if err := validSessionID(sessionID); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	items, err := f.readLocked(sessionID)
	if err != nil {
		return "", false, err
	}
	if items != nil {
		// A read is session activity for Prune.
		now := time.Now()
		if err := os.Chtimes(f.path(sessionID), now, now); err != nil {
			return "", false, fmt.Errorf("touching session file: %w", err)
		}
	}
	v, ok := items[key]
	return v, ok, nil
}

func (f *FileStore) SetItem(_ context.Context, sessionID, key, value string) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	items, err := f.readLocked(sessionID)
	if err != nil {
		// An unreadable session file is replaced rather than wedging the
		// session forever.
		items = nil
	}
	if items == nil {
		items = make(map[string]string)
	}
	items[key] = value
	return f.writeLocked(sessionID, items)
}

func (f *FileStore) Clear(_ context.Context, sessionID string) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileStore) readLocked(sessionID string) (map[string]string, error) {
	b, err := os.ReadFile(f.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var items map[string]string
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decoding session file: %w", err)
	}
	return items, nil
}

func (f *FileStore) writeLocked(sessionID string, items map[string]string) error {
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	p := f.path(sessionID)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Prune deletes session files not modified within ttl.
func (f *FileStore) Prune(ttl time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(f.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
