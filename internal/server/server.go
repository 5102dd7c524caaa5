// Package server provides the HTTP server for hand segmentation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Furulango/handseg/internal/app"
	"github.com/Furulango/handseg/internal/server/api"
	"github.com/Furulango/handseg/internal/store"
)

// Name is reported by /api/info.
const Name = "handseg"

// Config holds the server configuration.
type Config struct {
	// App runs segmentation. Without it only health and info are served.
	App *app.App

	// Store exposes the run history when set.
	Store *store.Store

	// StaticDir is served at / when set.
	StaticDir string

	// MaxUploadBytes bounds segmentation uploads.
	MaxUploadBytes int64

	// Version is reported by /api/info.
	Version string

	Logger *logrus.Logger
}

// Server represents the HTTP server.
type Server struct {
	config    Config
	log       *logrus.Logger
	mux       *http.ServeMux
	start     time.Time
	endpoints []string
	srv       *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Version == "" {
		config.Version = "dev"
	}
	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		config: config,
		log:    log,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
	s.endpoints = append(s.endpoints, pattern)
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.handle("/api/health", http.HandlerFunc(s.handleHealth))
	s.handle("/api/info", http.HandlerFunc(s.handleInfo))

	if s.config.App != nil {
		s.handle("/api/segment/hands", api.NewSegmentHandler(s.config.App, s.config.MaxUploadBytes))
	}

	if s.config.Store != nil {
		runs := api.NewRunsHandler(s.config.Store)
		s.handle("/api/runs", runs)
		s.handle("/api/runs/", runs)
	}

	// Live endpoints only make sense while frames are being produced.
	if s.config.App != nil && s.config.App.Previewing() {
		s.handle("/api/stream", NewStreamHandler(s.config.App))
		if s.config.App.Detector() != nil {
			s.handle("/api/landmarks", NewLandmarksHandler(s.config.App, s.log))
		}
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleInfo handles GET requests to /api/info.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]any{
		"name":      Name,
		"version":   s.config.Version,
		"endpoints": s.endpoints,
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
