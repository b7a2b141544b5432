package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct{ mux *chi.Mux }

func New() *Server {
	m := chi.NewRouter()

	// All middlewares go here (before any routes are added). The request
	// timeout is applied per-route in MountHandlers because
	// http.TimeoutHandler's writer cannot flush, which breaks the event
	// stream endpoint.
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(15 * time.Second))
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(200)
			_, _ = w.Write([]byte("ok"))
		})
		r.Get("/v1/regions/suggest", h.suggestRegions)
	})

	// A search run streams for minutes; no timeout handler here. The
	// upstream clients carry their own per-call timeouts.
	s.mux.Post("/v1/search/stream", h.searchStream)
}
