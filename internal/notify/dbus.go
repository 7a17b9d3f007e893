package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod = "org.freedesktop.Notifications.Notify"
	appName      = "Deck-8"
	expireMs     = int32(5000)
)

// DBus sends desktop notifications over the session bus. Consecutive
// notifications with the same title replace each other on screen.
type DBus struct {
	conn *dbus.Conn

	mu       sync.Mutex
	replaces map[string]uint32
}

// NewDBus connects to the session bus.
func NewDBus() (*DBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &DBus{conn: conn, replaces: make(map[string]uint32)}, nil
}

func (d *DBus) Notify(title, body string) {
	d.mu.Lock()
	replaces := d.replaces[title]
	d.mu.Unlock()

	obj := d.conn.Object(notifyDest, notifyPath)
	call := obj.Call(notifyMethod, 0,
		appName, replaces, "input-keyboard", title, body,
		[]string{}, map[string]dbus.Variant{}, expireMs)
	if call.Err != nil {
		slog.Debug("notify: desktop notification failed", "err", call.Err)
		return
	}
	var id uint32
	if err := call.Store(&id); err == nil {
		d.mu.Lock()
		d.replaces[title] = id
		d.mu.Unlock()
	}
}

// Close releases the bus connection.
func (d *DBus) Close() error { return d.conn.Close() }
