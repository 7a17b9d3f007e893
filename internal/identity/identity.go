// Package identity describes the running driver host to the network.
package identity

import (
	"os"
	"runtime/debug"
	"strings"
)

// Version is overridden at build time with -ldflags "-X .../identity.Version=...".
var Version = ""

// DefaultVersion is reported when neither ldflags nor build info carry one.
const DefaultVersion = "0.1.0-dev"

// Info is what the host advertises over mDNS and /api/info.
type Info struct {
	Hostname  string `json:"hostname"`
	Instance  string `json:"instance"`
	Version   string `json:"version"`
	Device    string `json:"device"`
	Simulated bool   `json:"simulated"`
}

// Hostname returns the short system hostname.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "deck8"
	}
	if i := strings.IndexByte(h, '.'); i > 0 {
		h = h[:i]
	}
	return h
}

// GetVersion resolves the host version.
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			return strings.TrimPrefix(v, "v")
		}
	}
	return DefaultVersion
}

// InstanceName is the mDNS instance name for a device id on this host.
func InstanceName(host, device string) string {
	if device == "" || device == "deck8" {
		return "deck8-" + host
	}
	return "deck8-" + host + "-" + device
}

// New collects identity for the given MQTT device id.
func New(device string, simulated bool) Info {
	host := Hostname()
	return Info{
		Hostname:  host,
		Instance:  InstanceName(host, device),
		Version:   GetVersion(),
		Device:    device,
		Simulated: simulated,
	}
}

// TXT renders the info as DNS-SD TXT records.
func (i Info) TXT() []string {
	sim := "0"
	if i.Simulated {
		sim = "1"
	}
	return []string{"version=" + i.Version, "model=Deck-8", "device=" + i.Device, "simulated=" + sim}
}
