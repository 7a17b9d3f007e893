package notify_test

import (
	"testing"

	"github.com/churrosoft/deck8-hub-go/internal/notify"
)

func TestMultiFansOut(t *testing.T) {
	a, b := &notify.Recorder{}, &notify.Recorder{}
	var n notify.Notifier = notify.Multi{a, b, notify.Log{}}
	n.Notify("Profile load failed", "no such profile")

	for i, r := range []*notify.Recorder{a, b} {
		msgs := r.Messages()
		if len(msgs) != 1 || msgs[0].Title != "Profile load failed" {
			t.Errorf("recorder %d = %+v", i, msgs)
		}
	}
}

func TestDBusUnavailable(t *testing.T) {
	d, err := notify.NewDBus()
	if err != nil {
		t.Skipf("no session bus: %v", err)
	}
	defer d.Close()
	// Must not panic whether or not a notification daemon is running.
	d.Notify("test", "body")
}
