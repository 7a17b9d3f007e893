package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	stateFileName = "state.json"
	lockFileName  = ".lock"
	saveDelay     = 500 * time.Millisecond
)

// JSONStore keeps state.json in a data directory. Saves are coalesced
// and written atomically; the directory is flock'ed so two hosts never
// share it.
type JSONStore struct {
	dir  string
	path string
	lock *os.File

	mu      sync.Mutex
	latest  *Persisted
	seq     uint64 // bumped by every Save
	written uint64 // seq of the state on disk
	timer   *time.Timer

	// writeMu orders file writes so an older state never replaces a newer one.
	writeMu sync.Mutex
}

// OpenJSONStore creates the data directory if needed and locks it.
func OpenJSONStore(dataDir string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	lock, err := lockDir(filepath.Join(dataDir, lockFileName))
	if err != nil {
		return nil, fmt.Errorf("store: %s is in use: %w", dataDir, err)
	}
	return &JSONStore{
		dir:  dataDir,
		path: filepath.Join(dataDir, stateFileName),
		lock: lock,
	}, nil
}

func (s *JSONStore) Path() string { return s.path }

// Dir returns the data directory.
func (s *JSONStore) Dir() string { return s.dir }

// Load reads state.json. A missing file yields Default. An unreadable
// one is moved to state.json.corrupt and Default is returned.
func (s *JSONStore) Load() (*Persisted, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		def := Default()
		return &def, nil
	}
	if err != nil {
		return nil, err
	}

	// Start from the defaults so fields absent in older files keep them.
	st := Default()
	if err := json.Unmarshal(data, &st); err != nil {
		aside := s.path + ".corrupt"
		slog.Warn("store: unreadable state file, starting from defaults", "path", s.path, "moved_to", aside, "err", err)
		if rerr := os.Rename(s.path, aside); rerr != nil {
			slog.Warn("store: could not move unreadable state file", "err", rerr)
		}
		def := Default()
		return &def, nil
	}
	migrate(&st)
	return &st, nil
}

// Save records state and writes it after saveDelay without further saves.
func (s *JSONStore) Save(state *Persisted) error {
	cp := state.DeepCopy()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &cp
	s.seq++
	if s.timer == nil {
		s.timer = time.AfterFunc(saveDelay, s.writeLatest)
	} else {
		s.timer.Reset(saveDelay)
	}
	return nil
}

// Flush writes the latest saved state now if it is not on disk yet.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.write()
}

func (s *JSONStore) writeLatest() {
	if err := s.write(); err != nil {
		slog.Error("store: failed to write state", "path", s.path, "err", err)
	}
}

func (s *JSONStore) write() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	st, seq := s.latest, s.seq
	done := seq == s.written
	s.mu.Unlock()
	if st == nil || done {
		return nil
	}

	if err := writeFileAtomic(s.path, st); err != nil {
		return err
	}
	s.mu.Lock()
	s.written = seq
	s.mu.Unlock()
	return nil
}

// Close flushes and releases the directory lock.
func (s *JSONStore) Close() error {
	err := s.Flush()
	if s.lock != nil {
		unlockDir(s.lock)
		s.lock = nil
	}
	return err
}

// writeFileAtomic writes v as indented JSON through a synced temp file
// renamed over path.
func writeFileAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

var _ Store = (*JSONStore)(nil)
