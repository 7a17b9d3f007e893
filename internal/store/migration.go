package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// migrate fills in defaults missing from older state files and moves the
// pre-library per-key sound_files into the sound library.
func migrate(state *Persisted) {
	if !state.ActiveSlot.Valid() {
		state.ActiveSlot = models.SlotA
	}
	for i := range state.Keys {
		if !state.Keys[i].ActiveSlot.Valid() {
			state.Keys[i].ActiveSlot = models.SlotA
		}
	}

	a := &state.AudioConfig
	if a.SoundLibrary == nil {
		a.SoundLibrary = []models.SoundEntry{}
	}

	if len(a.SoundLibrary) == 0 && len(a.SoundFiles) > 0 {
		migrated := 0
		for i, f := range a.SoundFiles {
			if i >= models.NumKeys || f == nil || *f == "" {
				continue
			}
			id, name := legacySound(*f)
			if name == "" {
				name = fmt.Sprintf("Key %d sound", i+1)
			}
			a.SoundLibrary = append(a.SoundLibrary, models.SoundEntry{ID: id, Filename: *f, DisplayName: name})
			a.KeySounds[i] = models.StringPtr(id)
			migrated++
		}
		if migrated > 0 {
			slog.Info("store: migrated legacy sound_files to sound_library", "count", migrated)
		}
	}
	a.SoundFiles = nil

	for _, i := range a.DanglingKeySounds() {
		slog.Warn("store: dropping key sound with no library entry", "key", i, "sound", *a.KeySounds[i])
		a.KeySounds[i] = nil
	}
}

// legacySound derives a library id and display name from "keyN_name.ext".
func legacySound(filename string) (id, name string) {
	id, _, _ = strings.Cut(filename, ".")
	if _, rest, ok := strings.Cut(filename, "_"); ok {
		name, _, _ = strings.Cut(rest, ".")
	}
	return id, name
}
