package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/churrosoft/deck8-hub-go/internal/keycode"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

func (h *Host) ListAudioDevices() models.AudioDeviceList { return h.audio.Devices() }

func (h *Host) SetAudioInputDevice(name *string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sound.AudioInputDevice = copyName(name)
	h.restartPipelineLocked()
	h.persistLocked()
	return nil
}

func (h *Host) SetAudioOutputDevice(name *string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sound.AudioOutputDevice = copyName(name)
	h.restartPipelineLocked()
	h.persistLocked()
	return nil
}

func copyName(name *string) *string {
	if name == nil || *name == "" {
		return nil
	}
	return models.StringPtr(*name)
}

// restartPipelineLocked (re)starts the soundboard pipeline. It only runs
// when both devices are chosen and the output is a virtual cable.
func (h *Host) restartPipelineLocked() {
	h.audio.StopPipeline()
	h.sound.SoundboardEnabled = false
	in, out := h.sound.AudioInputDevice, h.sound.AudioOutputDevice
	if in == nil || out == nil || !IsVirtualCable(*out) {
		return
	}
	err := h.audio.StartPipeline(Pipeline{
		Input:       *in,
		Output:      *out,
		MicVolume:   h.sound.MicVolume,
		SoundVolume: h.sound.SoundVolume,
	})
	if err != nil {
		slog.Warn("driver: audio pipeline failed to start", "input", *in, "output", *out, "err", err)
		return
	}
	h.sound.SoundboardEnabled = true
	slog.Info("driver: audio pipeline running", "input", *in, "output", *out)
}

func (h *Host) SetSoundVolume(v float32) error {
	if err := models.CheckVolume(v); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sound.SoundVolume = v
	h.audio.SetVolumes(h.sound.MicVolume, v)
	h.persistLocked()
	return nil
}

func (h *Host) SetMicVolume(v float32) error {
	if err := models.CheckVolume(v); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sound.MicVolume = v
	h.audio.SetVolumes(v, h.sound.SoundVolume)
	h.persistLocked()
	return nil
}

// AddToSoundLibrary imports a file into the library.
func (h *Host) AddToSoundLibrary(path, displayName string) (models.SoundEntry, error) {
	if displayName == "" {
		return models.SoundEntry{}, models.ErrBadRequest("display_name is required")
	}
	entry, err := h.sounds.Import(path, displayName)
	if err != nil {
		return models.SoundEntry{}, importError(err)
	}
	h.addEntry(entry)
	return entry, nil
}

// AddToSoundLibraryTrimmed imports the [startMs, endMs) range of a WAV file.
func (h *Host) AddToSoundLibraryTrimmed(path, displayName string, startMs, endMs uint64) (models.SoundEntry, error) {
	if displayName == "" {
		return models.SoundEntry{}, models.ErrBadRequest("display_name is required")
	}
	if endMs <= startMs {
		return models.SoundEntry{}, models.ErrBadRequest("end_ms must be after start_ms")
	}
	entry, err := h.sounds.ImportTrimmed(path, displayName, startMs, endMs)
	if err != nil {
		return models.SoundEntry{}, importError(err)
	}
	h.addEntry(entry)
	return entry, nil
}

func importError(err error) error {
	if errors.Is(err, errNotWAV) {
		return models.ErrBadRequest(err.Error())
	}
	return fmt.Errorf("import sound: %w", err)
}

func (h *Host) addEntry(e models.SoundEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sound.SoundLibrary = append(h.sound.SoundLibrary, e)
	h.persistLocked()
}

// RemoveFromSoundLibrary deletes a sound, its file and every key
// reference to it. Keys left with an internal keycode get 0 back.
func (h *Host) RemoveFromSoundLibrary(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.forgetSoundLocked(ctx, id) {
		h.persistLocked()
	}
	return nil
}

// forgetSoundLocked removes a library entry and reports whether it existed.
func (h *Host) forgetSoundLocked(ctx context.Context, id string) bool {
	var keys []int
	for led, ref := range h.sound.KeySounds {
		if ref != nil && *ref == id {
			keys = append(keys, led)
		}
	}
	removed := h.sound.RemoveSound(id)
	if removed == nil {
		return false
	}
	if err := h.sounds.Remove(removed.Filename); err != nil {
		slog.Warn("driver: failed to delete sound file", "file", removed.Filename, "err", err)
	}
	for _, led := range keys {
		h.releaseInternalLocked(ctx, led)
	}
	return true
}

func (h *Host) releaseInternalLocked(ctx context.Context, led int) {
	km := models.LEDToKeymap(led)
	if !keycode.IsInternal(h.keymaps[km]) {
		return
	}
	// Best effort: the next connect reconciles the board.
	if err := h.writeKeycodeLocked(ctx, km, 0); err != nil {
		slog.Warn("driver: failed to clear sound keycode", "key", led, "err", err)
	}
	h.refreshShortcutsLocked()
}

// RenameSound changes a library entry's display name.
func (h *Host) RenameSound(id, name string) error {
	if name == "" {
		return models.ErrBadRequest("new_name is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.sound.FindSound(id)
	if e == nil {
		return nil
	}
	e.DisplayName = name
	h.persistLocked()
	return nil
}

// SetKeySound assigns a library sound to a key (LED order), or clears it
// when id is nil. A key with a sound but no keycode gets its internal one.
func (h *Host) SetKeySound(ctx context.Context, index int, id *string) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	km := models.LEDToKeymap(index)
	if id == nil {
		h.sound.KeySounds[index] = nil
		h.persistLocked()
		h.releaseInternalLocked(ctx, index)
		return nil
	}
	if h.sound.FindSound(*id) == nil {
		return models.ErrNotFound("Sound not found in library")
	}
	h.sound.KeySounds[index] = models.StringPtr(*id)
	h.persistLocked()
	if h.keymaps[km] == 0 {
		if err := h.writeKeycodeLocked(ctx, km, keycode.Internal(index)); err != nil {
			return err
		}
		h.refreshShortcutsLocked()
	}
	return nil
}

// PreviewLibrarySound plays a library sound at the sound volume.
func (h *Host) PreviewLibrarySound(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.sound.FindSound(id)
	if e == nil {
		return models.ErrNotFound("Sound not found in library")
	}
	return h.playLocked(*e)
}

func (h *Host) playLocked(e models.SoundEntry) error {
	if !h.sounds.Exists(e.Filename) {
		return models.ErrNotFound(fmt.Sprintf("sound file %s is missing", e.Filename))
	}
	return h.audio.Play(Playback{Path: h.sounds.Path(e.Filename), Volume: h.sound.SoundVolume})
}

// GetAudioDuration returns a WAV file's length in milliseconds.
func (h *Host) GetAudioDuration(path string) (uint64, error) {
	ms, err := WAVDuration(path)
	if err != nil {
		return 0, importError(err)
	}
	return ms, nil
}

// PreviewTrim plays the [startMs, endMs) range of a file.
func (h *Host) PreviewTrim(path string, startMs, endMs uint64) error {
	if endMs <= startMs {
		return models.ErrBadRequest("end_ms must be after start_ms")
	}
	h.mu.Lock()
	vol := h.sound.SoundVolume
	h.mu.Unlock()
	return h.audio.Play(Playback{Path: path, StartMs: startMs, EndMs: endMs, Volume: vol})
}
