// Package models defines the data structures shared by the Deck-8 driver,
// the command bridge and the synchronization engine.
// JSON field names match the native driver's wire format.
package models

import (
	"fmt"
	"strings"
)

// NumKeys is the number of physical keys on a Deck-8.
const NumKeys = 8

// HsvColor is a device-native color. Every channel uses the 0-255 range,
// hue included (255 is just short of a full turn).
type HsvColor struct {
	H uint8 `json:"h"`
	S uint8 `json:"s"`
	V uint8 `json:"v"`
}

// ActiveSlot selects one of the two color profiles stored on every key.
type ActiveSlot string

const (
	SlotA ActiveSlot = "A"
	SlotB ActiveSlot = "B"
)

// Other returns the opposite slot. Anything that is not B is treated as A.
func (s ActiveSlot) Other() ActiveSlot {
	if s == SlotB {
		return SlotA
	}
	return SlotB
}

// Valid reports whether s is A or B.
func (s ActiveSlot) Valid() bool { return s == SlotA || s == SlotB }

// ParseSlot parses "A"/"B" (case-insensitive).
func ParseSlot(v string) (ActiveSlot, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "A":
		return SlotA, nil
	case "B":
		return SlotB, nil
	}
	return "", fmt.Errorf("%w: slot must be A or B, got %q", ErrInvalidInput, v)
}

// KeyConfig is the per-key color configuration for both slots.
type KeyConfig struct {
	SlotA           HsvColor   `json:"slot_a"`
	SlotB           HsvColor   `json:"slot_b"`
	OverrideEnabled bool       `json:"override_enabled"`
	ActiveSlot      ActiveSlot `json:"active_slot"`
}

// Color returns the color stored in the given slot.
func (k KeyConfig) Color(slot ActiveSlot) HsvColor {
	if slot == SlotB {
		return k.SlotB
	}
	return k.SlotA
}

// SetColor stores c in the given slot.
func (k *KeyConfig) SetColor(slot ActiveSlot, c HsvColor) {
	if slot == SlotB {
		k.SlotB = c
		return
	}
	k.SlotA = c
}

// DeviceInfo is firmware/protocol metadata read from the device.
type DeviceInfo struct {
	ProtocolVersion uint16 `json:"protocol_version"`
	FirmwareVersion uint32 `json:"firmware_version"`
	Uptime          uint32 `json:"uptime"`
	LayerCount      uint8  `json:"layer_count"`
	MacroCount      uint8  `json:"macro_count"`
	MacroBufferSize uint16 `json:"macro_buffer_size"`
}

// RgbMatrixState is the global underglow configuration.
type RgbMatrixState struct {
	Brightness uint8 `json:"brightness"`
	Effect     uint8 `json:"effect"`
	Speed      uint8 `json:"speed"`
	ColorH     uint8 `json:"color_h"`
	ColorS     uint8 `json:"color_s"`
}

// SoundEntry is one sound in the library. IDs are unique.
type SoundEntry struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	DisplayName string `json:"display_name"`
}

// AudioConfig is the soundboard state.
type AudioConfig struct {
	// SoundFiles is the pre-library per-key file list. Only read during migration.
	SoundFiles        []*string        `json:"sound_files,omitempty"`
	SoundLibrary      []SoundEntry     `json:"sound_library"`
	KeySounds         [NumKeys]*string `json:"key_sounds"`
	AudioInputDevice  *string          `json:"audio_input_device"`
	AudioOutputDevice *string          `json:"audio_output_device"`
	SoundVolume       float32          `json:"sound_volume"`
	MicVolume         float32          `json:"mic_volume"`
	SoundboardEnabled bool             `json:"soundboard_enabled"`
}

// FindSound returns the library entry with the given id, or nil.
func (a *AudioConfig) FindSound(id string) *SoundEntry {
	for i := range a.SoundLibrary {
		if a.SoundLibrary[i].ID == id {
			return &a.SoundLibrary[i]
		}
	}
	return nil
}

// RemoveSound deletes a library entry and clears every key that referenced it.
// It returns the removed entry, or nil when id was not in the library.
func (a *AudioConfig) RemoveSound(id string) *SoundEntry {
	var removed *SoundEntry
	for i, e := range a.SoundLibrary {
		if e.ID == id {
			cp := e
			removed = &cp
			a.SoundLibrary = append(a.SoundLibrary[:i:i], a.SoundLibrary[i+1:]...)
			break
		}
	}
	for i, ref := range a.KeySounds {
		if ref != nil && *ref == id {
			a.KeySounds[i] = nil
		}
	}
	return removed
}

// DanglingKeySounds returns the key indices whose sound id is not in the library.
func (a *AudioConfig) DanglingKeySounds() []int {
	var out []int
	for i, ref := range a.KeySounds {
		if ref != nil && a.FindSound(*ref) == nil {
			out = append(out, i)
		}
	}
	return out
}

// DeepCopy returns a copy that shares no pointers or slices with a.
func (a AudioConfig) DeepCopy() AudioConfig {
	next := a
	if a.SoundLibrary != nil {
		next.SoundLibrary = make([]SoundEntry, len(a.SoundLibrary))
		copy(next.SoundLibrary, a.SoundLibrary)
	}
	for i := range a.KeySounds {
		next.KeySounds[i] = copyString(a.KeySounds[i])
	}
	if a.SoundFiles != nil {
		next.SoundFiles = make([]*string, len(a.SoundFiles))
		for i := range a.SoundFiles {
			next.SoundFiles[i] = copyString(a.SoundFiles[i])
		}
	}
	next.AudioInputDevice = copyString(a.AudioInputDevice)
	next.AudioOutputDevice = copyString(a.AudioOutputDevice)
	return next
}

// StateSnapshot is the complete device state as seen by the client.
type StateSnapshot struct {
	Connected   bool               `json:"connected"`
	Keys        [NumKeys]KeyConfig `json:"keys"`
	ActiveSlot  ActiveSlot         `json:"active_slot"`
	Keymaps     [NumKeys]uint16    `json:"keymaps"`
	DeviceInfo  *DeviceInfo        `json:"device_info"`
	RgbMatrix   *RgbMatrixState    `json:"rgb_matrix"`
	AudioConfig AudioConfig        `json:"audio_config"`
}

// DeepCopy returns a deep copy of the snapshot.
func (s StateSnapshot) DeepCopy() StateSnapshot {
	next := s
	if s.DeviceInfo != nil {
		info := *s.DeviceInfo
		next.DeviceInfo = &info
	}
	if s.RgbMatrix != nil {
		rgb := *s.RgbMatrix
		next.RgbMatrix = &rgb
	}
	next.AudioConfig = s.AudioConfig.DeepCopy()
	return next
}

// Profile is a named, persisted copy of the user-editable part of a snapshot.
type Profile struct {
	Name        string             `json:"name"`
	Keys        [NumKeys]KeyConfig `json:"keys"`
	ActiveSlot  ActiveSlot         `json:"active_slot,omitempty"`
	Keymaps     *[NumKeys]uint16   `json:"keymaps,omitempty"`
	AudioConfig *AudioConfig       `json:"audio_config,omitempty"`
}

// AudioDeviceInfo describes one audio endpoint.
type AudioDeviceInfo struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// AudioDeviceList is the result of audio device enumeration.
type AudioDeviceList struct {
	InputDevices  []AudioDeviceInfo `json:"input_devices"`
	OutputDevices []AudioDeviceInfo `json:"output_devices"`
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringPtr returns a pointer to a copy of v.
func StringPtr(v string) *string { return &v }
