package interestcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DateLayout is the calendar-day format of Entry.Date.
const DateLayout = "2006-01-02"

// Entry is the persisted document. Every value in Data was fetched on Date.
type Entry struct {
	Date string             `json:"date"`
	Data map[string]float64 `json:"data"`
}

// ReadEntry loads the cache file. A missing file is an empty entry, not an error.
func ReadEntry(path string) (Entry, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read interest cache: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("decode interest cache %s: %w", path, err)
	}
	return e, nil
}

// WriteEntry replaces the cache file atomically: the document is written to a
// temp file in the target directory, synced, then renamed over path. Readers
// see either the old file or the new one.
func WriteEntry(path string, e Entry) error {
	return writeEntry(path, e, os.Rename)
}

func writeEntry(path string, e Entry, rename func(oldpath, newpath string) error) (err error) {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode interest cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = rename(tmpName, path); err != nil {
		return fmt.Errorf("replace interest cache: %w", err)
	}
	return nil
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// pathLocks serializes read-modify-write cycles per cache file across every
// Cache in the process.
var pathLocks keyedMutex

func lockPath(path string) func() {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return pathLocks.lock(filepath.Clean(path))
}
