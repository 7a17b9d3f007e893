package models

import (
	"fmt"
	"math"
)

// NeutralColor is the color the client assumes before it has talked to a device.
var NeutralColor = HsvColor{H: 0, S: 0, V: 120}

// Factory colors written by restore-defaults.
var (
	FactorySlotA = HsvColor{H: 0x55, S: 0xFF, V: 0x78} // green
	FactorySlotB = HsvColor{H: 0x00, S: 0xFF, V: 0x78} // red
)

// Sound and mic gain limits.
const (
	DefaultVolume float32 = 1.0
	MaxVolume     float32 = 2.0
)

// CheckVolume rejects a gain outside [0, MaxVolume].
func CheckVolume(v float32) error {
	if math.IsNaN(float64(v)) || v < 0 || v > MaxVolume {
		return ErrBadRequest(fmt.Sprintf("volume must be between 0 and %.1f", MaxVolume))
	}
	return nil
}

// FactoryKeyConfig is the per-key configuration after restore-defaults.
func FactoryKeyConfig() KeyConfig {
	return KeyConfig{
		SlotA:      FactorySlotA,
		SlotB:      FactorySlotB,
		ActiveSlot: SlotA,
	}
}

// NeutralKeyConfig is the per-key configuration assumed while disconnected.
func NeutralKeyConfig() KeyConfig {
	return KeyConfig{
		SlotA:      NeutralColor,
		SlotB:      NeutralColor,
		ActiveSlot: SlotA,
	}
}

// DefaultAudioConfig returns an empty soundboard configuration.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SoundLibrary: []SoundEntry{},
		SoundVolume:  DefaultVolume,
		MicVolume:    DefaultVolume,
	}
}

// DefaultState is the snapshot a client starts with: disconnected, neutral
// colors, slot A, empty keymaps and no device metadata.
func DefaultState() StateSnapshot {
	s := StateSnapshot{
		Connected:   false,
		ActiveSlot:  SlotA,
		AudioConfig: DefaultAudioConfig(),
	}
	for i := range s.Keys {
		s.Keys[i] = NeutralKeyConfig()
	}
	return s
}

// FactoryKeys returns all keys at factory configuration.
func FactoryKeys() [NumKeys]KeyConfig {
	var keys [NumKeys]KeyConfig
	for i := range keys {
		keys[i] = FactoryKeyConfig()
	}
	return keys
}
