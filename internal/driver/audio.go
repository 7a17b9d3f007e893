package driver

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// Audio is the host's audio engine: device enumeration, one-shot sound
// playback and the microphone-plus-soundboard pipeline.
type Audio interface {
	Devices() models.AudioDeviceList
	Play(p Playback) error
	StartPipeline(p Pipeline) error
	StopPipeline()
	SetVolumes(mic, sound float32)
}

// Playback is one sound played onto the output device.
// EndMs zero plays to the end of the file.
type Playback struct {
	Path    string
	StartMs uint64
	EndMs   uint64
	Volume  float32
}

// Pipeline mixes an input device with the soundboard into an output device.
type Pipeline struct {
	Input       string
	Output      string
	MicVolume   float32
	SoundVolume float32
}

// IsVirtualCable reports whether an output device name looks like a
// loopback device (VB-Cable, BlackHole and friends) that other apps can
// record from.
func IsVirtualCable(name string) bool {
	n := strings.ToLower(name)
	for _, s := range []string{"cable", "blackhole", "virtual"} {
		if strings.Contains(n, s) {
			return true
		}
	}
	return false
}

// SimAudio is an in-process Audio that records what it was asked to do.
type SimAudio struct {
	mu       sync.Mutex
	devices  models.AudioDeviceList
	plays    []Playback
	pipeline *Pipeline
}

// NewSimAudio returns a simulated engine with a default device set
// that includes one virtual cable.
func NewSimAudio() *SimAudio {
	return &SimAudio{devices: models.AudioDeviceList{
		InputDevices: []models.AudioDeviceInfo{
			{Name: "Built-in Microphone", IsDefault: true},
			{Name: "USB Headset Microphone"},
		},
		OutputDevices: []models.AudioDeviceInfo{
			{Name: "Built-in Speakers", IsDefault: true},
			{Name: "CABLE Input (VB-Audio Virtual Cable)"},
		},
	}}
}

// SetDevices replaces the advertised devices.
func (a *SimAudio) SetDevices(l models.AudioDeviceList) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.devices = l
}

func (a *SimAudio) Devices() models.AudioDeviceList {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := models.AudioDeviceList{
		InputDevices:  append([]models.AudioDeviceInfo{}, a.devices.InputDevices...),
		OutputDevices: append([]models.AudioDeviceInfo{}, a.devices.OutputDevices...),
	}
	return out
}

func (a *SimAudio) Play(p Playback) error {
	if p.EndMs != 0 && p.EndMs <= p.StartMs {
		return errors.New("audio: empty playback range")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.plays = append(a.plays, p)
	return nil
}

func (a *SimAudio) StartPipeline(p Pipeline) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !hasDevice(a.devices.InputDevices, p.Input) {
		return fmt.Errorf("audio: input device %q not found", p.Input)
	}
	if !hasDevice(a.devices.OutputDevices, p.Output) {
		return fmt.Errorf("audio: output device %q not found", p.Output)
	}
	a.pipeline = &p
	return nil
}

func (a *SimAudio) StopPipeline() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pipeline = nil
}

func (a *SimAudio) SetVolumes(mic, sound float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipeline != nil {
		a.pipeline.MicVolume, a.pipeline.SoundVolume = mic, sound
	}
}

// Plays returns every playback so far.
func (a *SimAudio) Plays() []Playback {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Playback{}, a.plays...)
}

// Running returns the active pipeline, or nil.
func (a *SimAudio) Running() *Pipeline {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipeline == nil {
		return nil
	}
	p := *a.pipeline
	return &p
}

func hasDevice(list []models.AudioDeviceInfo, name string) bool {
	for _, d := range list {
		if d.Name == name {
			return true
		}
	}
	return false
}

var _ Audio = (*SimAudio)(nil)
