package engine

// Group is a set of fields that share one failure policy.
type Group int

const (
	GroupKeyColor Group = iota
	GroupRgb
	GroupVolume
	GroupAudioDevice
	GroupKeycode
	GroupSlot
	GroupOverride
	GroupDefaults
	GroupProfile
	GroupSoundLibrary
	GroupKeySound
	GroupPreview
	GroupSave
	GroupDevice
	GroupConnect
)

// Policy fixes how a group's writes are sent and how their failures surface.
//
// Pending debounced writes meet authoritative state in two ways. A pull
// (Refresh, including the one after a visible failure) sends them before
// reading, so the read reflects the latest intent. A push (state-updated)
// drops them, since the host changed the state on its own. Debounced
// groups never refresh on failure: Refresh flushes the debouncer and
// would wait on the failing send.
type Policy struct {
	// Debounced writes coalesce within the debounce window.
	Debounced bool
	// Visible failures are reported to the user.
	Visible bool
	// Refresh re-reads the authoritative state after a failure.
	Refresh bool
}

var policies = map[Group]Policy{
	GroupKeyColor:     {Debounced: true},
	GroupRgb:          {Debounced: true},
	GroupVolume:       {Debounced: true},
	GroupAudioDevice:  {},
	GroupKeycode:      {Visible: true, Refresh: true},
	GroupSlot:         {Visible: true, Refresh: true},
	GroupOverride:     {Visible: true, Refresh: true},
	GroupDefaults:     {Visible: true, Refresh: true},
	GroupProfile:      {Visible: true, Refresh: true},
	GroupSoundLibrary: {Visible: true, Refresh: true},
	GroupKeySound:     {Visible: true, Refresh: true},
	GroupPreview:      {Visible: true},
	GroupSave:         {Visible: true},
	GroupDevice:       {Visible: true, Refresh: true},
	GroupConnect:      {Visible: true},
}

// PolicyFor returns the fixed policy of a group.
func PolicyFor(g Group) Policy { return policies[g] }

func (g Group) String() string {
	switch g {
	case GroupKeyColor:
		return "key-color"
	case GroupRgb:
		return "rgb"
	case GroupVolume:
		return "volume"
	case GroupAudioDevice:
		return "audio-device"
	case GroupKeycode:
		return "keycode"
	case GroupSlot:
		return "slot"
	case GroupOverride:
		return "override"
	case GroupDefaults:
		return "defaults"
	case GroupProfile:
		return "profile"
	case GroupSoundLibrary:
		return "sound-library"
	case GroupKeySound:
		return "key-sound"
	case GroupPreview:
		return "preview"
	case GroupSave:
		return "save"
	case GroupDevice:
		return "device"
	case GroupConnect:
		return "connect"
	}
	return "unknown"
}
