package bridge

import "github.com/churrosoft/deck8-hub-go/internal/models"

// Command names understood by the driver host.
const (
	CmdConnect  = "connect"
	CmdGetState = "get_state"

	CmdSetKeyColor         = "set_key_color"
	CmdToggleSlot          = "toggle_slot"
	CmdToggleKeySlot       = "toggle_key_slot"
	CmdSetKeycode          = "set_keycode"
	CmdSetKeyOverride      = "set_key_override"
	CmdApplyColors         = "apply_colors"
	CmdDisableAllOverrides = "disable_all_overrides"
	CmdGetKeymap           = "get_keymap"

	CmdSaveCustom      = "save_custom"
	CmdRestoreDefaults = "restore_defaults"
	CmdListProfiles    = "list_profiles"
	CmdSaveProfile     = "save_profile"
	CmdLoadProfile     = "load_profile"
	CmdDeleteProfile   = "delete_profile"

	CmdGetDeviceInfo      = "get_device_info"
	CmdDeviceIndication   = "device_indication"
	CmdBootloaderJump     = "bootloader_jump"
	CmdEepromReset        = "eeprom_reset"
	CmdDynamicKeymapReset = "dynamic_keymap_reset"
	CmdMacroReset         = "macro_reset"

	CmdGetRgbMatrix     = "get_rgb_matrix"
	CmdSetRgbBrightness = "set_rgb_brightness"
	CmdSetRgbEffect     = "set_rgb_effect"
	CmdSetRgbSpeed      = "set_rgb_speed"
	CmdSetRgbColor      = "set_rgb_color"
	CmdSaveRgbMatrix    = "save_rgb_matrix"

	CmdListAudioDevices         = "list_audio_devices"
	CmdSetAudioInputDevice      = "set_audio_input_device"
	CmdSetAudioOutputDevice     = "set_audio_output_device"
	CmdSetSoundVolume           = "set_sound_volume"
	CmdSetMicVolume             = "set_mic_volume"
	CmdAddToSoundLibrary        = "add_to_sound_library"
	CmdAddToSoundLibraryTrimmed = "add_to_sound_library_trimmed"
	CmdRemoveFromSoundLibrary   = "remove_from_sound_library"
	CmdRenameSound              = "rename_sound"
	CmdSetKeySound              = "set_key_sound"
	CmdPreviewLibrarySound      = "preview_library_sound"
	CmdGetAudioDuration         = "get_audio_duration"
	CmdPreviewTrim              = "preview_trim"
)

// Push event names.
const (
	EventSlotToggled  = "slot-toggled"
	EventStateUpdated = "state-updated"
)

// Argument payloads. Field names match the driver's wire format.
type (
	KeyIndexArgs struct {
		KeyIndex int `json:"key_index"`
	}
	KeyColorArgs struct {
		KeyIndex int               `json:"key_index"`
		Slot     models.ActiveSlot `json:"slot"`
		H        uint8             `json:"h"`
		S        uint8             `json:"s"`
		V        uint8             `json:"v"`
	}
	KeycodeArgs struct {
		KeyIndex int    `json:"key_index"`
		Keycode  uint16 `json:"keycode"`
	}
	KeyOverrideArgs struct {
		KeyIndex int  `json:"key_index"`
		Enabled  bool `json:"enabled"`
	}
	NameArgs struct {
		Name string `json:"name"`
	}
	ValueArgs struct {
		Value uint8 `json:"value"`
	}
	RgbColorArgs struct {
		H uint8 `json:"h"`
		S uint8 `json:"s"`
	}
	DeviceNameArgs struct {
		Name *string `json:"name"`
	}
	VolumeArgs struct {
		Volume float32 `json:"volume"`
	}
	AddSoundArgs struct {
		FilePath    string `json:"file_path"`
		DisplayName string `json:"display_name"`
		StartMs     uint64 `json:"start_ms,omitempty"`
		EndMs       uint64 `json:"end_ms,omitempty"`
	}
	SoundIDArgs struct {
		SoundID string `json:"sound_id"`
	}
	RenameSoundArgs struct {
		SoundID string `json:"sound_id"`
		NewName string `json:"new_name"`
	}
	KeySoundArgs struct {
		KeyIndex int     `json:"key_index"`
		SoundID  *string `json:"sound_id"`
	}
	FilePathArgs struct {
		FilePath string `json:"file_path"`
	}
	TrimArgs struct {
		SourcePath string `json:"source_path"`
		StartMs    uint64 `json:"start_ms"`
		EndMs      uint64 `json:"end_ms"`
	}
)
