// Command deck8d is the Deck-8 driver host. It owns the (simulated) board,
// persists its configuration and serves the command bridge over WebSocket,
// REST/SSE and optionally MQTT.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/churrosoft/deck8-hub-go/internal/api"
	"github.com/churrosoft/deck8-hub-go/internal/auth"
	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/config"
	"github.com/churrosoft/deck8-hub-go/internal/driver"
	"github.com/churrosoft/deck8-hub-go/internal/identity"
	"github.com/churrosoft/deck8-hub-go/internal/maintenance"
	"github.com/churrosoft/deck8-hub-go/internal/mqttbridge"
	"github.com/churrosoft/deck8-hub-go/internal/store"
	"github.com/churrosoft/deck8-hub-go/internal/zeroconf"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "path to deck8.yaml")
		addr      = flag.String("addr", "", "HTTP listen address (default :8765)")
		dataDir   = flag.String("data-dir", "", "data directory (default: ~/.config/deck8)")
		debug     = flag.Bool("debug", false, "enable debug logging")
		withMQTT  = flag.Bool("mqtt", false, "serve the bridge over MQTT as well")
		broker    = flag.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
		unplugged = flag.Bool("unplugged", false, "start with the simulated board unplugged")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Daemon.Addr = *addr
		case "data-dir":
			cfg.Daemon.DataDir = *dataDir
		case "debug":
			if *debug {
				cfg.Log.Level = "debug"
			}
		case "mqtt":
			cfg.Daemon.MQTT = *withMQTT
		case "mqtt-broker":
			cfg.MQTT.Broker = *broker
		case "unplugged":
			cfg.Daemon.Unplugged = *unplugged
		}
	})

	// Configure logging
	slog.SetDefault(cfg.Log.Logger(os.Stderr))

	dir, err := cfg.DataDir()
	if err != nil {
		slog.Error("cannot resolve data directory", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("cannot create data directory", "path", dir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Persisted state
	st, err := store.OpenJSONStore(dir)
	if err != nil {
		slog.Error("cannot open state store", "path", dir, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	sounds, err := driver.NewSoundDir(filepath.Join(dir, "sounds"))
	if err != nil {
		slog.Error("cannot create sounds directory", "err", err)
		os.Exit(1)
	}

	// Simulated board and driver host
	board := driver.NewBoard()
	board.SetPlugged(!cfg.Daemon.Unplugged)
	host, err := driver.NewHost(driver.Options{
		Open:     board.Open,
		Store:    st,
		Profiles: store.NewProfileStore(filepath.Join(dir, "profiles")),
		Sounds:   sounds,
	})
	if err != nil {
		slog.Error("driver host initialization failed", "err", err)
		os.Exit(1)
	}
	if ok, err := host.Connect(ctx); err != nil || !ok {
		slog.Warn("deck-8 not connected at startup", "err", err)
	}
	go func() {
		if err := host.WatchSounds(ctx); err != nil {
			slog.Warn("sound directory watch failed", "err", err)
		}
	}()

	// Auth service
	authSvc, err := auth.NewService(dir)
	if err != nil {
		slog.Error("auth service initialization failed", "err", err)
		os.Exit(1)
	}
	defer authSvc.Close()
	if authSvc.IsOpenMode() {
		slog.Info("no access keys configured, host is open", "file", filepath.Join(dir, auth.KeysFileName))
	}

	var metrics *api.Metrics
	if cfg.Daemon.Metrics {
		metrics = api.NewMetrics()
	}
	info := identity.New(cfg.MQTT.Device, true)
	dispatcher := bridge.Dispatcher(driver.NewDispatcher(host))

	// Daily data directory archives
	var backups api.Backups
	if cfg.Daemon.Backups {
		svc := maintenance.New(maintenance.Options{DataDir: dir, Flush: host.Flush})
		backups = svc
		go svc.Start(ctx)
	}

	// HTTP server
	router := api.NewRouter(dispatcher, api.Options{
		Commands:  driver.Commands(),
		Info:      info,
		Auth:      authSvc,
		Metrics:   metrics,
		Simulator: driver.NewSimulator(host, board),
		Backups:   backups,
	})
	if metrics != nil {
		dispatcher = metrics.Instrument(dispatcher)
	}

	// MQTT responder
	if cfg.Daemon.MQTT {
		stop := startMQTT(ctx, cfg, dispatcher)
		defer stop()
	}

	// Zeroconf mDNS registration
	if cfg.Daemon.Zeroconf {
		zc := zeroconf.New(info.Instance, listenPort(cfg.Daemon.Addr), info.TXT())
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Daemon.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE and WebSocket)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("deck8d listening", "addr", cfg.Daemon.Addr, "data", dir, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()

	// Graceful HTTP shutdown
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	// Flush pending state writes
	if err := host.Close(); err != nil {
		slog.Warn("failed to flush state", "err", err)
	}

	slog.Info("shutdown complete")
}

// startMQTT connects to the broker and serves the bridge there. Failure is
// logged and the daemon keeps running without MQTT.
func startMQTT(ctx context.Context, cfg *config.Config, d bridge.Dispatcher) (stop func()) {
	topics := bridge.Topics{Device: cfg.MQTT.Device}
	clientID := cfg.MQTT.ClientID
	if clientID == "" {
		clientID = "deck8d-" + cfg.MQTT.Device
	}
	conn, err := bridge.DialMQTT(bridge.MQTTOptions{
		Broker:    cfg.MQTT.Broker,
		ClientID:  clientID,
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
		QoS:       byte(cfg.MQTT.QoS),
		WillTopic: topics.Status(),
	})
	if err != nil {
		slog.Warn("mqtt disabled", "broker", cfg.MQTT.Broker, "err", err)
		return func() {}
	}
	resp := mqttbridge.New(conn, cfg.MQTT.Device, d)
	if err := resp.Start(ctx); err != nil {
		slog.Warn("mqtt responder failed", "err", err)
		conn.Close()
		return func() {}
	}
	return func() {
		if err := resp.Stop(); err != nil {
			slog.Warn("mqtt responder stop", "err", err)
		}
		conn.Close()
	}
}

// listenPort extracts the port from a listen address like ":8765".
func listenPort(addr string) int {
	port := 8765
	if i := strings.LastIndex(addr, ":"); i >= 0 && i+1 < len(addr) {
		if p, err := strconv.Atoi(addr[i+1:]); err == nil {
			port = p
		}
	}
	return port
}
