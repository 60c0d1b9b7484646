// Package server exposes the board over HTTP: a server-rendered dashboard, a
// plain-text view, and the JSON API for signals, refreshes, users, and
// subscriptions. Handlers read cached state and ask the engine for work; they
// never execute signals themselves.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/signalboard/internal/cache"
	"github.com/alexisbeaulieu97/signalboard/internal/engine"
	"github.com/alexisbeaulieu97/signalboard/internal/logger"
	"github.com/alexisbeaulieu97/signalboard/internal/registry"
	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	"github.com/alexisbeaulieu97/signalboard/internal/subscriptions"
	"github.com/alexisbeaulieu97/signalboard/internal/view"
)

// Deps wires the server to the rest of the application.
type Deps struct {
	Engine   *engine.Engine
	Registry *registry.Registry
	Cache    *cache.Store
	Subs     *subscriptions.Store
	// Builders is the compiled-in signal table used by POST /api/reload.
	Builders []signal.Builder
	Logger   *logger.Logger
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	engine   *engine.Engine
	registry *registry.Registry
	cache    *cache.Store
	subs     *subscriptions.Store
	builders []signal.Builder
	logger   *logger.Logger
	now      func() time.Time
}

// New creates a server. Call Handler to obtain the routed http.Handler.
func New(deps Deps) *Server {
	return &Server{
		engine:   deps.Engine,
		registry: deps.Registry,
		cache:    deps.Cache,
		subs:     deps.Subs,
		builders: deps.Builders,
		logger:   deps.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /txt", s.handleTxt)

	mux.HandleFunc("GET /api/signals", s.handleSignals)
	mux.HandleFunc("GET /api/registry", s.handleRegistry)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/reload", s.handleReload)
	mux.HandleFunc("GET /api/engine", s.handleEngineStatus)

	mux.HandleFunc("GET /api/users", s.handleListUsers)
	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/users/{username}/subscriptions", s.handleListSubscriptions)
	mux.HandleFunc("POST /api/users/{username}/subscriptions", s.handleSubscribe)
	mux.HandleFunc("DELETE /api/users/{username}/subscriptions/{signal_id}", s.handleUnsubscribe)
	mux.HandleFunc("GET /api/users/{username}/dashboard", s.handleUserDashboard)

	return s.withRequestLog(mux)
}

// views projects the full registry joined with the cache.
func (s *Server) views() []view.Signal {
	return view.Build(s.registry.List(), s.cache.GetAll(), s.now())
}

// viewsFor projects only the metas whose id is in keep.
func (s *Server) viewsFor(keep map[string]struct{}) []view.Signal {
	metas := make([]signal.Meta, 0, len(keep))
	for _, meta := range s.registry.List() {
		if _, ok := keep[meta.ID]; ok {
			metas = append(metas, meta)
		}
	}
	return view.Build(metas, s.cache.GetAll(), s.now())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags each request with an id and logs method, path, status,
// and duration at debug level.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		if s.logger != nil {
			s.logger.WithFields(map[string]any{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start).String(),
			}).Debug("http request")
		}
	})
}
