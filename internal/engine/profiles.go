package engine

import (
	"context"

	"github.com/churrosoft/deck8-hub-go/internal/models"
	"github.com/churrosoft/deck8-hub-go/internal/store"
)

func (e *Engine) ListProfiles(ctx context.Context) ([]string, error) {
	var names []string
	err := e.call(ctx, GroupProfile, "List profiles", func(ctx context.Context) error {
		var err error
		names, err = e.b.ListProfiles(ctx)
		return err
	})
	return names, err
}

func (e *Engine) SaveProfile(ctx context.Context, name string) error {
	if err := store.ValidateProfileName(name); err != nil {
		return err
	}
	e.writes.flush()
	return e.call(ctx, GroupProfile, "Save profile", func(ctx context.Context) error {
		return e.b.SaveProfile(ctx, name)
	})
}

// LoadProfile replaces keys, keymaps, slot and soundboard with a saved
// profile. Connection state and device metadata are kept.
func (e *Engine) LoadProfile(ctx context.Context, name string) error {
	if err := store.ValidateProfileName(name); err != nil {
		return err
	}
	var snap models.StateSnapshot
	var ok bool
	err := e.call(ctx, GroupProfile, "Load profile", func(ctx context.Context) error {
		var err error
		snap, err = e.b.LoadProfile(ctx, name)
		ok = err == nil
		return err
	})
	if !ok {
		return err
	}
	e.writes.cancelAll()
	e.apply(func(s *models.StateSnapshot) {
		s.Keys = snap.Keys
		s.Keymaps = snap.Keymaps
		s.AudioConfig = snap.AudioConfig.DeepCopy()
		if snap.ActiveSlot.Valid() {
			s.ActiveSlot = snap.ActiveSlot
		}
	})
	return nil
}

func (e *Engine) DeleteProfile(ctx context.Context, name string) error {
	if err := store.ValidateProfileName(name); err != nil {
		return err
	}
	return e.call(ctx, GroupProfile, "Delete profile", func(ctx context.Context) error {
		return e.b.DeleteProfile(ctx, name)
	})
}
