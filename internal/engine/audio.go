package engine

import (
	"context"

	"github.com/churrosoft/deck8-hub-go/internal/keycode"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

func (e *Engine) ListAudioDevices(ctx context.Context) (models.AudioDeviceList, error) {
	var l models.AudioDeviceList
	err := e.call(ctx, GroupPreview, "List audio devices", func(ctx context.Context) error {
		var err error
		l, err = e.b.ListAudioDevices(ctx)
		return err
	})
	return l, err
}

// SetAudioInputDevice selects the microphone. A nil name clears it.
func (e *Engine) SetAudioInputDevice(ctx context.Context, name *string) error {
	e.apply(func(s *models.StateSnapshot) { s.AudioConfig.AudioInputDevice = copyName(name) })
	err := e.call(ctx, GroupAudioDevice, "Set input device", func(ctx context.Context) error {
		return e.b.SetAudioInputDevice(ctx, name)
	})
	e.syncSoundboard(ctx)
	return err
}

// SetAudioOutputDevice selects the output. A nil name clears it.
func (e *Engine) SetAudioOutputDevice(ctx context.Context, name *string) error {
	e.apply(func(s *models.StateSnapshot) { s.AudioConfig.AudioOutputDevice = copyName(name) })
	err := e.call(ctx, GroupAudioDevice, "Set output device", func(ctx context.Context) error {
		return e.b.SetAudioOutputDevice(ctx, name)
	})
	e.syncSoundboard(ctx)
	return err
}

// syncSoundboard picks up whether the host's pipeline started.
func (e *Engine) syncSoundboard(ctx context.Context) {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()
	s, err := e.b.GetState(cctx)
	if err != nil {
		return
	}
	e.apply(func(st *models.StateSnapshot) {
		st.AudioConfig.SoundboardEnabled = s.AudioConfig.SoundboardEnabled
	})
}

func copyName(name *string) *string {
	if name == nil || *name == "" {
		return nil
	}
	return models.StringPtr(*name)
}

// SetSoundVolume is debounced like a slider.
func (e *Engine) SetSoundVolume(v float32) error {
	if err := models.CheckVolume(v); err != nil {
		return err
	}
	e.apply(func(s *models.StateSnapshot) { s.AudioConfig.SoundVolume = v })
	e.debounced("volume/sound", GroupVolume, "Set sound volume",
		func(ctx context.Context) error { return e.b.SetSoundVolume(ctx, v) })
	return nil
}

// SetMicVolume is debounced like a slider.
func (e *Engine) SetMicVolume(v float32) error {
	if err := models.CheckVolume(v); err != nil {
		return err
	}
	e.apply(func(s *models.StateSnapshot) { s.AudioConfig.MicVolume = v })
	e.debounced("volume/mic", GroupVolume, "Set mic volume",
		func(ctx context.Context) error { return e.b.SetMicVolume(ctx, v) })
	return nil
}

// AddToSoundLibrary imports a sound file on the host.
func (e *Engine) AddToSoundLibrary(ctx context.Context, path, name string) (models.SoundEntry, error) {
	if path == "" || name == "" {
		return models.SoundEntry{}, models.ErrBadRequest("file path and display name are required")
	}
	return e.addSound(ctx, func(ctx context.Context) (models.SoundEntry, error) {
		return e.b.AddToSoundLibrary(ctx, path, name)
	})
}

// AddToSoundLibraryTrimmed imports the [startMs, endMs) range of a file.
func (e *Engine) AddToSoundLibraryTrimmed(ctx context.Context, path, name string, startMs, endMs uint64) (models.SoundEntry, error) {
	if path == "" || name == "" {
		return models.SoundEntry{}, models.ErrBadRequest("file path and display name are required")
	}
	if endMs <= startMs {
		return models.SoundEntry{}, models.ErrBadRequest("trim end must be after start")
	}
	return e.addSound(ctx, func(ctx context.Context) (models.SoundEntry, error) {
		return e.b.AddToSoundLibraryTrimmed(ctx, path, name, startMs, endMs)
	})
}

func (e *Engine) addSound(ctx context.Context, fn func(ctx context.Context) (models.SoundEntry, error)) (models.SoundEntry, error) {
	var entry models.SoundEntry
	var ok bool
	err := e.call(ctx, GroupSoundLibrary, "Add sound", func(ctx context.Context) error {
		var err error
		entry, err = fn(ctx)
		ok = err == nil
		return err
	})
	if !ok {
		return entry, err
	}
	e.apply(func(s *models.StateSnapshot) {
		if s.AudioConfig.FindSound(entry.ID) == nil {
			s.AudioConfig.SoundLibrary = append(s.AudioConfig.SoundLibrary, entry)
		}
	})
	return entry, nil
}

// RemoveFromSoundLibrary deletes a sound and every key reference to it.
func (e *Engine) RemoveFromSoundLibrary(ctx context.Context, id string) error {
	e.apply(func(s *models.StateSnapshot) {
		for led, ref := range s.AudioConfig.KeySounds {
			if ref != nil && *ref == id {
				releaseInternal(s, led)
			}
		}
		s.AudioConfig.RemoveSound(id)
	})
	return e.call(ctx, GroupSoundLibrary, "Remove sound", func(ctx context.Context) error {
		return e.b.RemoveFromSoundLibrary(ctx, id)
	})
}

func (e *Engine) RenameSound(ctx context.Context, id, name string) error {
	if name == "" {
		return models.ErrBadRequest("name is required")
	}
	e.apply(func(s *models.StateSnapshot) {
		if entry := s.AudioConfig.FindSound(id); entry != nil {
			entry.DisplayName = name
		}
	})
	return e.call(ctx, GroupSoundLibrary, "Rename sound", func(ctx context.Context) error {
		return e.b.RenameSound(ctx, id, name)
	})
}

// SetKeySound assigns a library sound to a key (LED order), or clears it.
// Keycodes follow the host: a bare key gets its internal keycode and loses
// it again when the sound is cleared.
func (e *Engine) SetKeySound(ctx context.Context, index int, id *string) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if id != nil {
		st := e.State()
		if st.AudioConfig.FindSound(*id) == nil {
			return models.ErrNotFound("Sound not found in library")
		}
	}
	e.apply(func(s *models.StateSnapshot) {
		km := models.LEDToKeymap(index)
		if id == nil {
			s.AudioConfig.KeySounds[index] = nil
			releaseInternal(s, index)
			return
		}
		s.AudioConfig.KeySounds[index] = models.StringPtr(*id)
		if s.Keymaps[km] == 0 {
			s.Keymaps[km] = keycode.Internal(index)
		}
	})
	return e.call(ctx, GroupKeySound, "Assign sound", func(ctx context.Context) error {
		return e.b.SetKeySound(ctx, index, id)
	})
}

func releaseInternal(s *models.StateSnapshot, led int) {
	km := models.LEDToKeymap(led)
	if keycode.IsInternal(s.Keymaps[km]) {
		s.Keymaps[km] = 0
	}
}

func (e *Engine) PreviewLibrarySound(ctx context.Context, id string) error {
	return e.call(ctx, GroupPreview, "Preview sound", func(ctx context.Context) error {
		return e.b.PreviewLibrarySound(ctx, id)
	})
}

func (e *Engine) AudioDuration(ctx context.Context, path string) (uint64, error) {
	var ms uint64
	err := e.call(ctx, GroupPreview, "Read audio duration", func(ctx context.Context) error {
		var err error
		ms, err = e.b.GetAudioDuration(ctx, path)
		return err
	})
	return ms, err
}

func (e *Engine) PreviewTrim(ctx context.Context, path string, startMs, endMs uint64) error {
	if endMs <= startMs {
		return models.ErrBadRequest("trim end must be after start")
	}
	return e.call(ctx, GroupPreview, "Preview trim", func(ctx context.Context) error {
		return e.b.PreviewTrim(ctx, path, startMs, endMs)
	})
}
