// Package zeroconf advertises the Deck-8 driver host over mDNS/DNS-SD and
// lets clients find it.
package zeroconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service type of the driver host.
const ServiceType = "_deck8._tcp"

const domain = "local."

// ErrNotFound is returned by Discover when no host answered.
var ErrNotFound = errors.New("zeroconf: no deck8 host found")

// Service manages mDNS service registration.
type Service struct {
	name string
	port int
	txt  []string
}

// New creates a Service that will advertise instance name on port.
func New(name string, port int, txt []string) *Service {
	return &Service{name: name, port: port, txt: txt}
}

// Start registers the service and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	server, err := zeroconf.Register(s.name, ServiceType, domain, s.port, s.txt, nil)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service", "name", s.name, "port", s.port, "txt", s.txt)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}

// Endpoint is one discovered driver host.
type Endpoint struct {
	Instance string
	Host     string
	Port     int
	TXT      map[string]string
}

// URL returns the host's WebSocket bridge URL.
func (e Endpoint) URL() string {
	return "ws://" + net.JoinHostPort(e.Host, strconv.Itoa(e.Port)) + "/ws"
}

// Browse collects the hosts that answer within timeout.
func Browse(ctx context.Context, timeout time.Duration) ([]Endpoint, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("zeroconf resolver: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu  sync.Mutex
		out []Endpoint
	)
	go func() {
		for e := range entries {
			if ep, ok := endpoint(e); ok {
				mu.Lock()
				out = append(out, ep)
				mu.Unlock()
			}
		}
	}()
	if err := resolver.Browse(ctx, ServiceType, domain, entries); err != nil {
		return nil, fmt.Errorf("zeroconf browse: %w", err)
	}
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]Endpoint(nil), out...), nil
}

// Discover returns the URL of the first host found, preferring the given
// device id when one is advertised.
func Discover(ctx context.Context, device string, timeout time.Duration) (string, error) {
	eps, err := Browse(ctx, timeout)
	if err != nil {
		return "", err
	}
	return pick(eps, device)
}

func pick(eps []Endpoint, device string) (string, error) {
	if len(eps) == 0 {
		return "", ErrNotFound
	}
	for _, ep := range eps {
		if ep.TXT["device"] == device {
			return ep.URL(), nil
		}
	}
	return eps[0].URL(), nil
}

func endpoint(e *zeroconf.ServiceEntry) (Endpoint, bool) {
	var host string
	switch {
	case len(e.AddrIPv4) > 0:
		host = e.AddrIPv4[0].String()
	case len(e.AddrIPv6) > 0:
		host = e.AddrIPv6[0].String()
	case e.HostName != "":
		host = strings.TrimSuffix(e.HostName, ".")
	default:
		return Endpoint{}, false
	}
	return Endpoint{Instance: e.Instance, Host: host, Port: e.Port, TXT: parseTXT(e.Text)}, true
}

func parseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		out[k] = v
	}
	return out
}
