// Package store persists the driver host's state between restarts and
// keeps the named profile files.
package store

import "github.com/churrosoft/deck8-hub-go/internal/models"

// Persisted is the part of the driver state that survives a restart.
// Keymaps live on the device and are re-read on connect.
type Persisted struct {
	Keys        [models.NumKeys]models.KeyConfig `json:"keys"`
	ActiveSlot  models.ActiveSlot                `json:"active_slot,omitempty"`
	AudioConfig models.AudioConfig               `json:"audio_config"`
}

// Default returns the state of a fresh install: factory colors, slot A
// and an empty soundboard.
func Default() Persisted {
	return Persisted{
		Keys:        models.FactoryKeys(),
		ActiveSlot:  models.SlotA,
		AudioConfig: models.DefaultAudioConfig(),
	}
}

// DeepCopy returns a copy that shares nothing with p.
func (p Persisted) DeepCopy() Persisted {
	next := p
	next.AudioConfig = p.AudioConfig.DeepCopy()
	return next
}

// Store is the interface for persisting driver state.
type Store interface {
	// Load loads the current state. Returns Default if nothing was saved.
	Load() (*Persisted, error)

	// Save persists the state. Implementations may debounce rapid saves.
	Save(state *Persisted) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending state.
	Flush() error
}
