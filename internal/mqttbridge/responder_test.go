package mqttbridge_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/driver"
	"github.com/churrosoft/deck8-hub-go/internal/models"
	"github.com/churrosoft/deck8-hub-go/internal/mqttbridge"
	"github.com/churrosoft/deck8-hub-go/internal/store"
)

type rig struct {
	broker *bridge.MemBroker
	host   *driver.Host
	resp   *mqttbridge.Responder
}

func newRig(t *testing.T) *rig {
	t.Helper()
	dir := t.TempDir()
	sounds, err := driver.NewSoundDir(filepath.Join(dir, "sounds"))
	if err != nil {
		t.Fatal(err)
	}
	board := driver.NewBoard()
	host, err := driver.NewHost(driver.Options{
		Open:     board.Open,
		Store:    store.NewMemStore(),
		Profiles: store.NewProfileStore(filepath.Join(dir, "profiles")),
		Sounds:   sounds,
	})
	if err != nil {
		t.Fatal(err)
	}
	broker := bridge.NewMemBroker()
	conn := broker.Connect()
	resp := mqttbridge.New(conn, "desk", driver.NewDispatcher(host))
	conn.SetWill(resp.Topics().Status())
	if err := resp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Stop()
		_ = host.Close()
	})
	return &rig{broker: broker, host: host, resp: resp}
}

func (r *rig) client(id string) *bridge.Bridge {
	return bridge.New(bridge.NewMQTT(r.broker.Connect(), "desk", id))
}

func withTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestResponderServesBridge(t *testing.T) {
	r := newRig(t)
	b := r.client("ui-1")
	ctx := withTimeout(t)

	if !b.Available() {
		t.Fatal("host should be online")
	}
	ok, err := b.Connect(ctx)
	if err != nil || !ok {
		t.Fatalf("Connect = %v, %v", ok, err)
	}
	c := models.HsvColor{H: 40, S: 50, V: 60}
	if err := b.SetKeyColor(ctx, 6, models.SlotA, c); err != nil {
		t.Fatalf("SetKeyColor: %v", err)
	}
	s, err := b.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if !s.Connected || s.Keys[6].SlotA != c {
		t.Errorf("state: connected=%v key6=%+v", s.Connected, s.Keys[6])
	}
}

func TestResponderKeepsErrorCodes(t *testing.T) {
	r := newRig(t)
	b := r.client("ui-1")
	ctx := withTimeout(t)

	if err := b.EepromReset(ctx); !errors.Is(err, models.ErrNotConnected) {
		t.Errorf("EepromReset without device err = %v, want ErrNotConnected", err)
	}
	if err := b.SetKeycode(ctx, 8, 4); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("SetKeycode(8) err = %v, want ErrInvalidInput", err)
	}
}

func TestResponderRoutesRepliesPerClient(t *testing.T) {
	r := newRig(t)
	a, b := r.client("ui-a"), r.client("ui-b")
	ctx := withTimeout(t)

	slotA, err := a.ToggleSlot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	slotB, err := b.ToggleSlot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if slotA != models.SlotB || slotB != models.SlotA {
		t.Errorf("toggles = %q then %q, want B then A", slotA, slotB)
	}
}

func TestResponderForwardsEvents(t *testing.T) {
	r := newRig(t)
	b := r.client("ui-1")
	ctx := withTimeout(t)

	got := make(chan models.StateSnapshot, 1)
	if _, err := b.OnStateUpdated(ctx, func(s models.StateSnapshot) { got <- s }); err != nil {
		t.Fatal(err)
	}
	if err := r.host.PressKey(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	select {
	case s := <-got:
		if s.Keys[1].ActiveSlot != models.SlotB {
			t.Errorf("key 1 slot = %q", s.Keys[1].ActiveSlot)
		}
	case <-ctx.Done():
		t.Fatal("no state-updated event over mqtt")
	}
}

func TestResponderIgnoresMalformed(t *testing.T) {
	r := newRig(t)
	raw := r.broker.Connect()
	topics := r.resp.Topics()
	if err := raw.Publish(topics.Command(bridge.CmdGetState), []byte("{not json"), false); err != nil {
		t.Fatal(err)
	}
	if err := raw.Publish(topics.Command(bridge.CmdGetState), []byte(`{"type":"invoke","id":"1"}`), false); err != nil {
		t.Fatal(err)
	}

	b := r.client("ui-1")
	if _, err := b.GetState(withTimeout(t)); err != nil {
		t.Errorf("GetState after garbage: %v", err)
	}
}

func TestResponderStop(t *testing.T) {
	r := newRig(t)
	b := r.client("ui-1")
	if !b.Available() {
		t.Fatal("host should be online")
	}
	if err := r.resp.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if b.Available() {
		t.Error("stopped host should be offline")
	}
	if _, err := b.GetState(context.Background()); !errors.Is(err, bridge.ErrUnavailable) {
		t.Errorf("GetState after stop err = %v", err)
	}
	if err := r.resp.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
