package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// SoundDir holds the imported copies of library sounds.
// Files are named <id>.<ext> so entries never collide.
type SoundDir struct {
	dir string
}

// NewSoundDir creates the directory if needed.
func NewSoundDir(dir string) (*SoundDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create sounds dir: %w", err)
	}
	return &SoundDir{dir: dir}, nil
}

// Dir returns the directory path.
func (d *SoundDir) Dir() string { return d.dir }

// Path returns the absolute path of a library file name.
func (d *SoundDir) Path(filename string) string {
	return filepath.Join(d.dir, filepath.Base(filename))
}

// Import copies src into the directory and returns the new library entry.
func (d *SoundDir) Import(src, displayName string) (models.SoundEntry, error) {
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(src))
	if ext == "" {
		ext = ".wav"
	}
	entry := models.SoundEntry{ID: id, Filename: id + ext, DisplayName: displayName}
	if err := copyFile(src, d.Path(entry.Filename)); err != nil {
		return models.SoundEntry{}, err
	}
	return entry, nil
}

// ImportTrimmed imports the [startMs, endMs) range of a WAV file.
func (d *SoundDir) ImportTrimmed(src, displayName string, startMs, endMs uint64) (models.SoundEntry, error) {
	id := uuid.NewString()
	entry := models.SoundEntry{ID: id, Filename: id + ".wav", DisplayName: displayName}
	if err := TrimWAV(src, d.Path(entry.Filename), startMs, endMs); err != nil {
		return models.SoundEntry{}, err
	}
	return entry, nil
}

// Remove deletes a library file. A file that is already gone is not an error.
func (d *SoundDir) Remove(filename string) error {
	err := os.Remove(d.Path(filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether the library file is present on disk.
func (d *SoundDir) Exists(filename string) bool {
	_, err := os.Stat(d.Path(filename))
	return err == nil
}

// Watch calls onGone with the file name of every library file that is
// deleted or moved away from the directory, until ctx is cancelled.
func (d *SoundDir) Watch(ctx context.Context, onGone func(filename string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("sound watcher: %w", err)
	}
	if err := w.Add(d.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", d.dir, err)
	}
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					onGone(filepath.Base(ev.Name))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("driver: sound watcher error", "err", err)
			}
		}
	}()
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
