// Package maintenance runs deck8d's background housekeeping: daily
// archives of the data directory and pruning of old archives.
package maintenance

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// BackupDirName is the archive directory inside the data directory.
const BackupDirName = "backups"

const (
	backupPrefix = "deck8-data-"
	backupSuffix = ".tar.gz"

	// DefaultRetention is how long archives are kept.
	DefaultRetention = 90 * 24 * time.Hour
)

// Options configures a Service.
type Options struct {
	DataDir   string
	Retention time.Duration
	// Flush, if set, runs before each archive so pending state is on disk.
	Flush func() error
}

// Service archives a data directory.
type Service struct {
	dataDir   string
	dir       string
	retention time.Duration
	flush     func() error
	now       func() time.Time

	mu sync.Mutex
}

// New creates a Service. Archives go to <DataDir>/backups.
func New(o Options) *Service {
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	return &Service{
		dataDir:   o.DataDir,
		dir:       filepath.Join(o.DataDir, BackupDirName),
		retention: o.Retention,
		flush:     o.Flush,
		now:       time.Now,
	}
}

// Dir returns the archive directory.
func (s *Service) Dir() string { return s.dir }

// Start archives the data directory daily at 2am until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	for {
		now := s.now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
			name, err := s.RunBackupNow()
			if err != nil {
				slog.Error("maintenance: backup failed", "err", err)
			} else {
				slog.Info("maintenance: backup created", "file", name)
			}
		}
	}
}

// RunBackupNow writes one archive and prunes expired ones. It returns
// the archive's file name. A second run on the same day replaces the
// first.
func (s *Service) RunBackupNow() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flush != nil {
		if err := s.flush(); err != nil {
			slog.Warn("maintenance: flush before backup failed", "err", err)
		}
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := backupPrefix + s.now().Format("2006-01-02") + backupSuffix
	tmp, err := os.CreateTemp(s.dir, ".backup-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if err := s.archive(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", err
	}

	s.prune()
	return name, nil
}

// archive writes the data directory as a gzipped tar, skipping the
// archive directory and lock files.
func (s *Service) archive(w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.dataDir, path)
		if err != nil || rel == "." {
			return err
		}
		if d.IsDir() && rel == BackupDirName {
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() && !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", s.dataDir, err)
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// ListBackups returns archive file names, oldest first.
func (s *Service) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	files := []string{}
	for _, e := range entries {
		if isBackup(e) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// prune deletes archives older than the retention period.
func (s *Service) prune() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	cutoff := s.now().Add(-s.retention)
	for _, e := range entries {
		if !isBackup(e) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("maintenance: failed to prune old backup", "file", path, "err", err)
		} else {
			slog.Info("maintenance: pruned old backup", "file", path)
		}
	}
}

func isBackup(e fs.DirEntry) bool {
	return !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), backupSuffix)
}
