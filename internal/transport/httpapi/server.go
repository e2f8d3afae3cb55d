package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alerttrack/internal/bootstrap/config"
	"alerttrack/internal/bootstrap/logging"
	"alerttrack/internal/errs"
	"alerttrack/internal/infrastructure/ws"
	"alerttrack/internal/usecase/query"
)

// Server serves the read-side query API, the prometheus endpoint and the
// live-update websocket.
type Server struct {
	httpServer *http.Server
}

func NewServer(cfg config.HTTPConfig, queries *query.Service, hub *ws.Hub) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	h := &handlers{queries: queries}

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())
	if hub != nil {
		r.Get("/ws", hub.HandleWS)
	}

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.listEvents)
		r.Get("/{eventID}", h.getEvent)
		r.Get("/{eventID}/messages", h.listEventMessages)
	})
	r.Route("/messages", func(r chi.Router) {
		r.Get("/", h.listMessages)
		r.Get("/stats/interval", h.statsByInterval)
		r.Get("/stats/minute", h.statsByMinute)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "httpapi"))

	serveErr := make(chan error, 1)
	go func() {
		logging.Info(logCtx, "http server listening", slog.String("addr", s.httpServer.Addr))
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errs.Wrap(err, "serve http")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(err, "shutdown http server")
	}

	logging.Info(logCtx, "http server stopped")
	return nil
}
