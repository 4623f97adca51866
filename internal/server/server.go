package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"demusic/internal/config"
	"demusic/internal/jobs"
	"demusic/internal/logging"
	"demusic/internal/outputs"
	"demusic/internal/pipeline"
)

// StatusProvider reports daemon-level health for the status endpoint.
type StatusProvider interface {
	Status(ctx context.Context) Status
}

// Status is the daemon health payload served by /api/status.
type Status struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StoreBackend string             `json:"store_backend"`
	UptimeSecs   int64              `json:"uptime_seconds"`
	Jobs         jobs.HealthSummary `json:"jobs"`
}

// Server exposes upload intake, job status polling, and artifact access over
// HTTP.
type Server struct {
	bind       string
	logger     *slog.Logger
	dispatcher *pipeline.Dispatcher
	store      jobs.Store
	outStore   *outputs.Store
	status     StatusProvider

	listener net.Listener
	server   *http.Server
}

// New constructs the HTTP server and its routes.
func New(cfg *config.Config, dispatcher *pipeline.Dispatcher, store jobs.Store, status StatusProvider, logger *slog.Logger) *Server {
	s := &Server{
		bind:       cfg.Paths.APIBind,
		logger:     logging.NewComponentLogger(logger, "http"),
		dispatcher: dispatcher,
		store:      store,
		outStore:   outputs.NewStore(cfg.Paths.OutputDir),
		status:     status,
	}

	s.server = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Post("/videos", s.handleUpload)
		r.Get("/videos", s.handleListVideos)
		r.Route("/videos/{filename}", func(r chi.Router) {
			r.Get("/", s.handleVideoDetail)
			r.Get("/stream", s.handleStream)
			r.Get("/download", s.handleDownload)
			r.Delete("/", s.handleDeleteVideo)
		})

		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleJobStatus)
	})
	return r
}

// Start begins serving on the configured bind address.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, draining in-flight requests briefly.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request handled",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.String(logging.FieldRequestID, middleware.GetReqID(r.Context())),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}
