package identity_test

import (
	"strings"
	"testing"

	"github.com/churrosoft/deck8-hub-go/internal/identity"
)

func TestGetVersion_Override(t *testing.T) {
	old := identity.Version
	t.Cleanup(func() { identity.Version = old })

	identity.Version = "1.2.3"
	if got := identity.GetVersion(); got != "1.2.3" {
		t.Errorf("GetVersion() = %q; want 1.2.3", got)
	}
}

func TestGetVersion_Fallback(t *testing.T) {
	old := identity.Version
	t.Cleanup(func() { identity.Version = old })

	identity.Version = ""
	if got := identity.GetVersion(); got == "" {
		t.Error("GetVersion() returned empty string")
	}
}

func TestHostname(t *testing.T) {
	h := identity.Hostname()
	if h == "" || strings.Contains(h, ".") {
		t.Errorf("Hostname() = %q; want a short non-empty name", h)
	}
}

func TestInstanceName(t *testing.T) {
	tests := []struct {
		host, device, want string
	}{
		{"desk", "deck8", "deck8-desk"},
		{"desk", "", "deck8-desk"},
		{"desk", "second", "deck8-desk-second"},
	}
	for _, tt := range tests {
		if got := identity.InstanceName(tt.host, tt.device); got != tt.want {
			t.Errorf("InstanceName(%q, %q) = %q; want %q", tt.host, tt.device, got, tt.want)
		}
	}
}

func TestTXT(t *testing.T) {
	info := identity.Info{Version: "0.9.0", Device: "deck8", Simulated: true}
	txt := strings.Join(info.TXT(), " ")
	for _, want := range []string{"version=0.9.0", "model=Deck-8", "device=deck8", "simulated=1"} {
		if !strings.Contains(txt, want) {
			t.Errorf("TXT() = %q; missing %q", txt, want)
		}
	}
}
