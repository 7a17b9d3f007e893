package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/churrosoft/deck8-hub-go/internal/models"
	"github.com/churrosoft/deck8-hub-go/internal/store"
)

func openStore(t *testing.T, dir string) *store.JSONStore {
	t.Helper()
	s, err := store.OpenJSONStore(dir)
	if err != nil {
		t.Fatalf("OpenJSONStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestJSONStore_LoadMissingFile_ReturnsDefault(t *testing.T) {
	s := openStore(t, t.TempDir())
	st, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.Keys[0] != models.FactoryKeyConfig() {
		t.Errorf("key 0 = %+v, want factory config", st.Keys[0])
	}
	if st.ActiveSlot != models.SlotA {
		t.Errorf("active slot = %q", st.ActiveSlot)
	}
	if st.AudioConfig.SoundVolume != 1.0 {
		t.Errorf("sound volume = %v", st.AudioConfig.SoundVolume)
	}
}

func TestJSONStore_SaveFlushLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)

	st := store.Default()
	st.Keys[3].OverrideEnabled = true
	st.Keys[3].SlotB = models.HsvColor{H: 100, S: 50, V: 25}
	st.ActiveSlot = models.SlotB
	st.AudioConfig.SoundLibrary = []models.SoundEntry{{ID: "s1", Filename: "s1.wav", DisplayName: "Airhorn"}}
	st.AudioConfig.KeySounds[3] = models.StringPtr("s1")
	st.AudioConfig.MicVolume = 0

	if err := s.Save(&st); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "state.json")); err != nil {
		t.Fatalf("state.json not written: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(*got, st) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, st)
	}
}

func TestJSONStore_CorruptJSON_ReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := openStore(t, dir).Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.Keys[0] != models.FactoryKeyConfig() {
		t.Error("corrupt file should load defaults")
	}
	if data, err := os.ReadFile(filepath.Join(dir, "state.json.corrupt")); err != nil || string(data) != "{not json" {
		t.Errorf("corrupt file not kept aside: %q, %v", data, err)
	}
}

func TestJSONStore_LatestSaveWins(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	for v := uint8(1); v <= 10; v++ {
		st := store.Default()
		st.Keys[0].SlotA.V = v
		if err := s.Save(&st); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	// A second flush with nothing new is a no-op.
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Keys[0].SlotA.V != 10 {
		t.Errorf("V = %d, want 10", got.Keys[0].SlotA.V)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestJSONStore_WritesAfterDelay(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	st := store.Default()
	st.ActiveSlot = models.SlotB
	if err := s.Save(&st); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := os.Stat(filepath.Join(dir, "state.json")); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("state.json not written without Flush")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestJSONStore_MigratesLegacySoundFiles(t *testing.T) {
	dir := t.TempDir()
	legacy := `{
		"audio_config": {
			"sound_files": ["key1_airhorn.wav", null, "key3_.wav"],
			"sound_library": [],
			"key_sounds": [null, null, null, null, null, null, null, null]
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := openStore(t, dir).Load()
	if err != nil {
		t.Fatal(err)
	}
	a := st.AudioConfig
	if len(a.SoundLibrary) != 2 {
		t.Fatalf("library = %+v, want 2 entries", a.SoundLibrary)
	}
	if e := a.SoundLibrary[0]; e.ID != "key1_airhorn" || e.DisplayName != "airhorn" || e.Filename != "key1_airhorn.wav" {
		t.Errorf("entry 0 = %+v", e)
	}
	if e := a.SoundLibrary[1]; e.DisplayName != "Key 3 sound" {
		t.Errorf("entry 1 display name = %q", e.DisplayName)
	}
	if a.KeySounds[0] == nil || *a.KeySounds[0] != "key1_airhorn" || a.KeySounds[1] != nil {
		t.Errorf("key_sounds = %v", a.KeySounds)
	}
	if a.SoundFiles != nil {
		t.Error("sound_files should be cleared after migration")
	}
	if a.SoundVolume != 1.0 || a.MicVolume != 1.0 {
		t.Errorf("missing volumes should default to 1.0, got %v/%v", a.SoundVolume, a.MicVolume)
	}
}

func TestJSONStore_DropsDanglingKeySounds(t *testing.T) {
	dir := t.TempDir()
	data := `{"audio_config": {"sound_library": [], "key_sounds": ["gone", null, null, null, null, null, null, null]}}`
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := openStore(t, dir).Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.AudioConfig.KeySounds[0] != nil {
		t.Error("dangling key sound survived load")
	}
}

func TestJSONStore_LockedDirRejected(t *testing.T) {
	dir := t.TempDir()
	openStore(t, dir)
	if s, err := store.OpenJSONStore(dir); err == nil {
		_ = s.Close()
		t.Skip("advisory locks not enforced on this platform")
	}
}

func TestJSONStore_SaveDebounced(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	st := store.Default()
	_ = s.Save(&st)
	_ = s.Save(&st)
	if _, err := os.Stat(filepath.Join(dir, "state.json")); !errors.Is(err, os.ErrNotExist) {
		t.Error("Save should not write synchronously")
	}
}

func TestMemStore_MutationIsolation(t *testing.T) {
	m := store.NewMemStore()
	st := store.Default()
	st.AudioConfig.SoundLibrary = []models.SoundEntry{{ID: "a"}}
	_ = m.Save(&st)
	st.AudioConfig.SoundLibrary[0].ID = "changed"

	got, _ := m.Load()
	if got.AudioConfig.SoundLibrary[0].ID != "a" {
		t.Error("MemStore shares memory with the caller")
	}
	if m.Saves() != 1 || m.Path() != ":memory:" {
		t.Errorf("Saves = %d, Path = %q", m.Saves(), m.Path())
	}
}

func TestProfileStore(t *testing.T) {
	ps := store.NewProfileStore(filepath.Join(t.TempDir(), "profiles"))

	names, err := ps.List()
	if err != nil || len(names) != 0 {
		t.Fatalf("List on missing dir = %v, %v", names, err)
	}

	keymaps := [models.NumKeys]uint16{4, 5, 6, 7, 8, 9, 10, 11}
	for _, n := range []string{"work", "gaming", "Alpha"} {
		if err := ps.Save(models.Profile{Name: n, Keys: models.FactoryKeys(), Keymaps: &keymaps}); err != nil {
			t.Fatal(err)
		}
	}
	names, _ = ps.List()
	if want := []string{"Alpha", "gaming", "work"}; !reflect.DeepEqual(names, want) {
		t.Errorf("List = %v, want %v", names, want)
	}

	prof, err := ps.Load("gaming")
	if err != nil {
		t.Fatal(err)
	}
	if prof.Keymaps == nil || prof.Keymaps[0] != 4 {
		t.Errorf("loaded keymaps = %v", prof.Keymaps)
	}

	if _, err := ps.Load("Gaming"); !errors.Is(err, models.ErrNoSuchItem) {
		t.Errorf("names are case-sensitive; Load(Gaming) err = %v", err)
	}
	if err := ps.Delete("gaming"); err != nil {
		t.Fatal(err)
	}
	if err := ps.Delete("gaming"); err != nil {
		t.Errorf("second delete err = %v", err)
	}
	names, _ = ps.List()
	if len(names) != 2 {
		t.Errorf("List after delete = %v", names)
	}
}

func TestProfileStore_RejectsBadNames(t *testing.T) {
	ps := store.NewProfileStore(t.TempDir())
	for _, n := range []string{"", "  ", "../x", `a\b`, ".."} {
		if err := ps.Save(models.Profile{Name: n}); !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("Save(%q) err = %v, want ErrInvalidInput", n, err)
		}
	}
}
