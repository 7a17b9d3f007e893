package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/churrosoft/deck8-hub-go/internal/keycode"
	"github.com/churrosoft/deck8-hub-go/internal/models"
	"github.com/churrosoft/deck8-hub-go/internal/store"
)

// Options configures a Host.
type Options struct {
	Open     Opener
	Store    store.Store
	Profiles *store.ProfileStore
	Sounds   *SoundDir
	Audio    Audio
}

// Host owns the Deck-8 and the persisted driver state. Every command
// runs under one lock so device writes and state changes stay ordered.
type Host struct {
	mu       sync.Mutex
	open     Opener
	dev      Device
	store    store.Store
	profiles *store.ProfileStore
	sounds   *SoundDir
	audio    Audio

	keys      [models.NumKeys]models.KeyConfig
	slot      models.ActiveSlot
	keymaps   [models.NumKeys]uint16
	info      *models.DeviceInfo
	rgb       *models.RgbMatrixState
	sound     models.AudioConfig
	shortcuts map[string]int

	subMu  sync.Mutex
	subs   map[int]func(event string, payload any)
	nextID int
}

// NewHost loads the persisted state. It does not touch the device;
// call Connect for that.
func NewHost(o Options) (*Host, error) {
	if o.Open == nil || o.Store == nil || o.Profiles == nil || o.Sounds == nil {
		return nil, fmt.Errorf("driver: incomplete host options")
	}
	if o.Audio == nil {
		o.Audio = NewSimAudio()
	}
	st, err := o.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("load driver state: %w", err)
	}
	h := &Host{
		open:     o.Open,
		store:    o.Store,
		profiles: o.Profiles,
		sounds:   o.Sounds,
		audio:    o.Audio,
		keys:     st.Keys,
		slot:     st.ActiveSlot,
		sound:    st.AudioConfig.DeepCopy(),
		subs:     make(map[int]func(string, any)),
	}
	if !h.slot.Valid() {
		h.slot = models.SlotA
	}
	h.sound.SoundboardEnabled = false
	h.restartPipelineLocked()
	return h, nil
}

// Subscribe registers fn for host events. The returned func removes it.
func (h *Host) Subscribe(fn func(event string, payload any)) (cancel func()) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			h.subMu.Lock()
			delete(h.subs, id)
			h.subMu.Unlock()
		})
	}
}

func (h *Host) emit(event string, payload any) {
	h.subMu.Lock()
	fns := make([]func(string, any), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.subMu.Unlock()
	for _, fn := range fns {
		fn(event, payload)
	}
}

// State returns the current snapshot.
func (h *Host) State() models.StateSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Host) snapshotLocked() models.StateSnapshot {
	s := models.StateSnapshot{
		Connected:   h.dev != nil,
		Keys:        h.keys,
		ActiveSlot:  h.slot,
		Keymaps:     h.keymaps,
		DeviceInfo:  h.info,
		RgbMatrix:   h.rgb,
		AudioConfig: h.sound,
	}
	return s.DeepCopy()
}

func (h *Host) persistLocked() {
	p := store.Persisted{Keys: h.keys, ActiveSlot: h.slot, AudioConfig: h.sound}.DeepCopy()
	if err := h.store.Save(&p); err != nil {
		slog.Warn("driver: failed to save state", "err", err)
	}
}

// Flush writes any pending state to disk.
func (h *Host) Flush() error { return h.store.Flush() }

// Close stops the audio pipeline and releases the device.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.audio.StopPipeline()
	h.dropDeviceLocked()
	return h.store.Flush()
}

func (h *Host) dropDeviceLocked() {
	if h.dev != nil {
		_ = h.dev.Close()
	}
	h.dev = nil
	h.info = nil
	h.rgb = nil
}

// Connect opens the Deck-8 and pushes the stored configuration onto it.
// A missing or failing device is reported as false, not as an error.
func (h *Host) Connect(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropDeviceLocked()

	dev, err := h.open(ctx)
	if err != nil {
		slog.Info("driver: no device", "err", err)
		return false, nil
	}
	keymaps, err := dev.ReadAllKeycodes(ctx)
	if err != nil {
		slog.Warn("driver: failed to read keymap", "err", err)
		_ = dev.Close()
		return false, nil
	}
	h.dev = dev
	h.keymaps = keymaps
	if info, err := dev.DeviceInfo(ctx); err == nil {
		h.info = &info
	} else {
		slog.Warn("driver: failed to read device info", "err", err)
	}
	if rgb, err := dev.RgbState(ctx); err == nil {
		h.rgb = &rgb
	} else {
		slog.Warn("driver: failed to read rgb matrix", "err", err)
	}

	if err := h.applyAllLocked(ctx); err != nil {
		slog.Warn("driver: failed to sync keys", "err", err)
		h.dropDeviceLocked()
		return false, nil
	}
	if err := dev.CustomSave(ctx); err != nil {
		slog.Warn("driver: custom save failed", "err", err)
	}
	for led, ref := range h.sound.KeySounds {
		km := models.LEDToKeymap(led)
		if ref == nil || h.keymaps[km] != 0 {
			continue
		}
		if err := h.writeKeycodeLocked(ctx, km, keycode.Internal(led)); err != nil {
			slog.Warn("driver: failed to assign sound keycode", "key", led, "err", err)
		}
	}
	h.refreshShortcutsLocked()
	slog.Info("driver: connected", "keymaps", h.keymaps)
	return true, nil
}

// requireDevice returns the open device or the not-connected error.
func (h *Host) requireDevice() (Device, error) {
	if h.dev == nil {
		return nil, models.ErrNoDevice
	}
	return h.dev, nil
}

// applyKeyLocked pushes one key's effective color to the device.
func (h *Host) applyKeyLocked(ctx context.Context, led int) error {
	if h.dev == nil {
		return nil
	}
	k := h.keys[led]
	if k.OverrideEnabled {
		return h.dev.SetKeyColor(ctx, uint8(led), k.Color(k.ActiveSlot))
	}
	return h.dev.DisableOverride(ctx, uint8(led))
}

func (h *Host) applyAllLocked(ctx context.Context) error {
	for led := range h.keys {
		if err := h.applyKeyLocked(ctx, led); err != nil {
			return err
		}
	}
	return nil
}

// writeKeycodeLocked writes a layer-0 keycode at a keymap index and
// records it. Without a device only the local keymap changes.
func (h *Host) writeKeycodeLocked(ctx context.Context, index int, code uint16) error {
	if h.dev != nil {
		row, col := models.MatrixPosition(index)
		if err := h.dev.SetKeycode(ctx, 0, row, col, code); err != nil {
			return err
		}
	}
	h.keymaps[index] = code
	return nil
}

func checkIndex(i int) error {
	if !models.ValidKeyIndex(i) {
		return models.ErrBadRequest(fmt.Sprintf("key_index %d out of range", i))
	}
	return nil
}
