package proxy

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/zhengjr9/gradio-agent/internal/adapter"
	"github.com/zhengjr9/gradio-agent/internal/adapter/openai"
	"github.com/zhengjr9/gradio-agent/internal/adapter/query"
	"github.com/zhengjr9/gradio-agent/internal/config"
)

// Paths served by both the structured and the query path.
var routes = []string{"/", "/api/conversation"}

// Server is the adapter HTTP server.
type Server struct {
	httpServer *http.Server
}

// New constructs a Server from the given config. Each request opens its own
// backend session through sessions.
func New(cfg *config.Config, sessions adapter.SessionFactory) *Server {
	structured := openai.NewHandler(sessions, cfg.DefaultModel, cfg.HistorySize, cfg.CumulativeDelta)
	simple := query.NewHandler(sessions, cfg.DefaultModel, cfg.HistorySize)

	r := mux.NewRouter()
	for _, path := range routes {
		r.Handle(path, structured).Methods(http.MethodPost)
		r.Handle(path, simple).Methods(http.MethodGet)
	}

	var handler http.Handler = r
	handler = LoggingMiddleware(handler)
	handler = recoveryMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:        cfg.ListenAddr(),
			Handler:     handler,
			ReadTimeout: 30 * time.Second,
			// No WriteTimeout: a reply streams for as long as the backend generates.
			IdleTimeout: 60 * time.Second,
		},
	}
}

// Start begins listening and blocks until the server is stopped.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the underlying http.Handler (for use in tests with httptest.NewServer).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
