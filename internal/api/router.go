package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/churrosoft/deck8-hub-go/internal/auth"
	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/identity"
)

// Options configures NewRouter. Nil Auth leaves the host open; nil
// Metrics disables /metrics and instrumentation.
type Options struct {
	Commands []string
	Info     identity.Info
	Auth     *auth.Service
	Metrics  *Metrics

	// Simulator, if set, mounts /api/sim for driving a simulated board.
	Simulator Simulator
	// Backups, if set, mounts /api/backups.
	Backups Backups
}

// NewRouter creates and returns the main HTTP router.
func NewRouter(d bridge.Dispatcher, o Options) http.Handler {
	if o.Metrics != nil {
		if len(o.Commands) > 0 {
			o.Metrics.SetCommands(o.Commands)
		}
		d = o.Metrics.Instrument(d)
	}
	cmds := append([]string(nil), o.Commands...)
	sort.Strings(cmds)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)
	if o.Metrics != nil {
		r.Use(o.Metrics.countRequests)
	}

	h := &Handlers{d: d, commands: cmds, info: o.Info, metrics: o.Metrics}

	// Unauthenticated
	r.Get("/api/info", h.getInfo)
	if o.Metrics != nil {
		r.Handle("/metrics", o.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if o.Auth != nil {
			r.Use(o.Auth.Middleware)
		}

		r.Get("/api/state", h.getState)
		r.Get("/api/commands", h.getCommands)
		r.Post("/api/invoke/{cmd}", h.invoke)

		// Push events
		r.Get("/api/subscribe", h.sseEvents)
		r.Get("/ws", h.serveWS)

		if o.Backups != nil {
			bh := backupHandlers{b: o.Backups}
			r.Get("/api/backups", bh.list)
			r.Post("/api/backups", bh.create)
		}
		if o.Simulator != nil {
			r.Route("/api/sim", simHandlers{sim: o.Simulator}.routes)
		}
	})

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Api-Key, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
