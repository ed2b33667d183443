// Package server is the HTTP upload shell around the converter.
//
// Routes:
//
//	GET  /healthz        liveness probe
//	GET  /metrics        Prometheus exposition
//	POST /api/preview    parse an export, answer with records and diagnostics
//	POST /api/convert    parse an export, answer with the workbook (or CSV)
//
// Uploads are either multipart/form-data with a "file" field or the raw
// export as the request body.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/config"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/converter"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/logging"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Server serves conversions over HTTP.
type Server struct {
	conv     *converter.Converter
	settings config.ServerSettings
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Server. m may be nil.
func New(conv *converter.Converter, settings config.ServerSettings, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		conv:     conv,
		settings: settings,
		metrics:  m,
		logger:   logger.With(slog.String("component", "server")),
	}
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Post("/preview", s.preview)
		r.Post("/convert", s.convert)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.settings.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", s.settings.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
