// Package auth gates the driver host's network endpoints behind access keys
// listed in access_keys.json in the data directory. Without that file the
// host runs in open mode.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// KeysFileName is the access key file inside the data directory.
const KeysFileName = "access_keys.json"

// Client is one entry of access_keys.json, keyed by client name.
type Client struct {
	AccessKey string `json:"access_key"`
	Disabled  bool   `json:"disabled,omitempty"`
}

// Service checks access keys and reloads them when the file changes.
type Service struct {
	mu      sync.RWMutex
	dir     string
	clients map[string]Client
	watcher *fsnotify.Watcher
}

// NewService loads dir/access_keys.json and starts watching it.
func NewService(dir string) (*Service, error) {
	s := &Service{dir: dir, clients: make(map[string]Client)}
	if err := s.Reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("auth: could not create fsnotify watcher", "err", err)
		return s, nil
	}
	if err := watcher.Add(dir); err != nil {
		slog.Warn("auth: could not watch data dir", "dir", dir, "err", err)
		watcher.Close()
		return s, nil
	}
	s.watcher = watcher
	go s.watchLoop()
	return s, nil
}

func (s *Service) path() string { return filepath.Join(s.dir, KeysFileName) }

// Reload re-reads the key file. A missing file means open mode.
func (s *Service) Reload() error {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		s.set(map[string]Client{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("auth: read %s: %w", KeysFileName, err)
	}
	var clients map[string]Client
	if err := json.Unmarshal(data, &clients); err != nil {
		return fmt.Errorf("auth: parse %s: %w", KeysFileName, err)
	}
	s.set(clients)
	slog.Debug("auth: reloaded access keys", "count", len(clients))
	return nil
}

func (s *Service) set(clients map[string]Client) {
	s.mu.Lock()
	s.clients = clients
	s.mu.Unlock()
}

// IsOpenMode reports whether no enabled key is configured.
func (s *Service) IsOpenMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if !c.Disabled && c.AccessKey != "" {
			return false
		}
	}
	return true
}

// Verify returns the client name owning key. Comparison is constant-time.
func (s *Service) Verify(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, c := range s.clients {
		if c.Disabled || c.AccessKey == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(c.AccessKey)) == 1 {
			return name, true
		}
	}
	return "", false
}

// Close stops the file watcher.
func (s *Service) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Service) watchLoop() {
	path := s.path()
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := s.Reload(); err != nil {
					slog.Warn("auth: failed to reload access keys", "err", err)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("auth: watcher error", "err", err)
		}
	}
}
