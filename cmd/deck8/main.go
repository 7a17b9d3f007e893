// Command deck8 configures a Deck-8 through a driver host. Each invocation
// runs one command against a synchronization engine and flushes pending
// writes before exiting.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/config"
	"github.com/churrosoft/deck8-hub-go/internal/engine"
	"github.com/churrosoft/deck8-hub-go/internal/notify"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "path to deck8.yaml")
		transport = flag.String("transport", "", "none, local, ws or mqtt")
		addr      = flag.String("addr", "", "driver host WebSocket URL")
		discover  = flag.Bool("discover", false, "find the driver host over mDNS")
		dataDir   = flag.String("data-dir", "", "data directory for the local transport")
		debug     = flag.Bool("debug", false, "enable debug logging")
		asJSON    = flag.Bool("json", false, "print results as JSON")
	)
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "deck8:", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "transport":
			cfg.Transport.Kind = *transport
		case "addr":
			cfg.Transport.Addr = *addr
		case "discover":
			cfg.Transport.Discover = *discover
		case "data-dir":
			cfg.Daemon.DataDir = *dataDir
		case "debug":
			if *debug {
				cfg.Log.Level = "debug"
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "deck8:", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Log.Logger(os.Stderr))

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	out := newPrinter(os.Stdout, *asJSON)
	if args[0] == "keycodes" {
		if err := listKeycodes(out, args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, "deck8:", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tr, closeTr, err := openTransport(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "deck8:", err)
		os.Exit(1)
	}

	e := engine.New(engine.Options{
		Bridge:      bridge.New(tr),
		Notifier:    notifier(),
		Debounce:    cfg.Debounce(),
		CallTimeout: cfg.CallTimeout(),
	})
	e.Init(ctx)

	err = run(ctx, e, args, out)
	e.Close()
	closeTr()
	if err != nil {
		fmt.Fprintln(os.Stderr, "deck8:", err)
		os.Exit(1)
	}
}

// notifier reports visible failures to the log and, when a session bus is
// reachable, as desktop notifications.
func notifier() notify.Notifier {
	n := notify.Multi{notify.Log{}}
	if d, err := notify.NewDBus(); err == nil {
		n = append(n, d)
	} else {
		slog.Debug("desktop notifications unavailable", "err", err)
	}
	return n
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: deck8 [flags] <command> [args]\n\ncommands:\n")
	for _, c := range commandList() {
		fmt.Fprintf(os.Stderr, "  %-40s %s\n", c.usage, c.help)
	}
	fmt.Fprintf(os.Stderr, "  %-40s %s\n\nflags:\n", "keycodes [category]", "list the keycode catalog")
	flag.PrintDefaults()
}
