package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/config"
	"github.com/churrosoft/deck8-hub-go/internal/driver"
	"github.com/churrosoft/deck8-hub-go/internal/store"
	"github.com/churrosoft/deck8-hub-go/internal/zeroconf"
)

const discoverTimeout = 2 * time.Second

// openTransport builds the transport named by the config. The returned
// func releases it.
func openTransport(ctx context.Context, cfg *config.Config) (bridge.Transport, func(), error) {
	switch cfg.Transport.Kind {
	case config.TransportNone:
		return bridge.Null{}, func() {}, nil

	case config.TransportLocal:
		return openLocal(cfg)

	case config.TransportWS:
		url := cfg.Transport.Addr
		if cfg.Transport.Discover {
			found, err := zeroconf.Discover(ctx, cfg.MQTT.Device, discoverTimeout)
			switch {
			case err == nil:
				url = found
				slog.Debug("discovered driver host", "url", url)
			case url == "":
				return nil, nil, err
			default:
				slog.Debug("discovery failed, using configured address", "err", err)
			}
		}
		ws := bridge.NewWS(url)
		ws.SetAPIKey(cfg.Transport.APIKey)
		return ws, func() { ws.Close() }, nil

	case config.TransportMQTT:
		conn, err := bridge.DialMQTT(bridge.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      byte(cfg.MQTT.QoS),
		})
		if err != nil {
			return nil, nil, err
		}
		tr := bridge.NewMQTT(conn, cfg.MQTT.Device, cfg.MQTT.ClientID)
		return tr, func() { tr.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
}

// openLocal runs a driver host in this process over the data directory.
// The directory lock keeps it from racing a running deck8d.
func openLocal(cfg *config.Config) (bridge.Transport, func(), error) {
	dir, err := cfg.DataDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}
	st, err := store.OpenJSONStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open local driver: %w", err)
	}
	sounds, err := driver.NewSoundDir(filepath.Join(dir, "sounds"))
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	board := driver.NewBoard()
	host, err := driver.NewHost(driver.Options{
		Open:     board.Open,
		Store:    st,
		Profiles: store.NewProfileStore(filepath.Join(dir, "profiles")),
		Sounds:   sounds,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	local := bridge.NewLocal(driver.NewDispatcher(host))
	return local, func() {
		local.Close()
		if err := host.Close(); err != nil {
			slog.Warn("local driver flush failed", "err", err)
		}
		st.Close()
	}, nil
}
