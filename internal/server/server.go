// Package server exposes the scan pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"vintner/internal/logging"
	"vintner/internal/scan"
	"vintner/internal/services"
)

// maxImageBytes bounds uploaded shelf photos.
const maxImageBytes = 20 << 20

// HealthChecker reports whether a dependency is usable.
type HealthChecker func(ctx context.Context) error

// Server serves the scan API.
type Server struct {
	bind    string
	scanner *scan.Scanner
	health  map[string]HealthChecker
	logger  *slog.Logger

	listener net.Listener
	server   *http.Server
}

// New builds the API server. health maps dependency names to their checks;
// nil entries are skipped.
func New(bind string, scanner *scan.Scanner, health map[string]HealthChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &Server{
		bind:    strings.TrimSpace(bind),
		scanner: scanner,
		health:  health,
		logger:  logging.NewComponentLogger(logger, "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/scan", srv.handleScan)
	mux.HandleFunc("/api/scan/stream", srv.handleScanStream)
	mux.HandleFunc("/api/health", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving. The server shuts down when ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address required")
	}
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

// Stop shuts the server down.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	image, ok := s.readImage(w, r)
	if !ok {
		return
	}

	requestID := uuid.NewString()
	ctx := services.WithRequestID(r.Context(), requestID)
	response, err := s.scanner.Scan(ctx, image)
	if err != nil {
		s.logger.Error("scan failed",
			logging.String("request_id", requestID),
			logging.Error(err))
		s.writeError(w, http.StatusBadGateway, "scan failed: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleScanStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	image, ok := s.readImage(w, r)
	if !ok {
		return
	}

	requestID := uuid.NewString()
	ctx := services.WithRequestID(r.Context(), requestID)
	snapshots, err := s.scanner.ScanStream(ctx, image)
	if err != nil {
		s.logger.Error("scan stream failed",
			logging.String("request_id", requestID),
			logging.Error(err))
		s.writeError(w, http.StatusBadGateway, "scan failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snapshot := range snapshots {
		event := "phase1"
		if snapshot.Phase == 2 {
			event = "phase2"
		}
		if err := writeSSEEvent(w, event, snapshot.Response); err != nil {
			// Client went away; keep draining so the pipeline finishes its
			// cache writes.
			for range snapshots {
			}
			return
		}
		flusher.Flush()
	}

	_ = writeSSEEvent(w, "done", struct{}{})
	flusher.Flush()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	type dependency struct {
		Name      string `json:"name"`
		Available bool   `json:"available"`
		Error     string `json:"error,omitempty"`
	}
	payload := struct {
		Status       string       `json:"status"`
		Dependencies []dependency `json:"dependencies"`
	}{Status: "ok"}

	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		check := s.health[name]
		if check == nil {
			continue
		}
		dep := dependency{Name: name, Available: true}
		if err := check(ctx); err != nil {
			dep.Available = false
			dep.Error = err.Error()
			payload.Status = "degraded"
		}
		payload.Dependencies = append(payload.Dependencies, dep)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// readImage reads the uploaded shelf photo from the request body.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return nil, false
	}
	if len(image) == 0 {
		s.writeError(w, http.StatusBadRequest, "image required")
		return nil, false
	}
	return image, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := writeJSONBody(w, payload); err != nil {
		s.logger.Error("write response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
