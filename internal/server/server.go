package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/whookdev/echoprobe/internal/config"
	"github.com/whookdev/echoprobe/internal/models"
)

const (
	EchoPath      = "/echo_input_data"
	recentDefault = 50
)

type Recorder interface {
	Record(ctx context.Context, ex *models.Exchange) error
	Recent(ctx context.Context, n int) ([]models.Exchange, error)
}

type Publisher interface {
	Publish(ex *models.Exchange)
}

// WatchHandler is a Publisher that also serves subscriber connections.
type WatchHandler interface {
	Publisher
	http.Handler
}

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	wsServer   *http.Server
	recorder   Recorder
	feed       WatchHandler
	logger     *slog.Logger
}

func New(cfg *config.Config, recorder Recorder, feed WatchHandler, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if recorder == nil {
		return nil, fmt.Errorf("recorder cannot be nil")
	}
	if feed == nil {
		return nil, fmt.Errorf("feed cannot be nil")
	}
	logger = logger.With("component", "server", "server_id", cfg.ServerID)

	s := &Server{
		cfg:      cfg,
		recorder: recorder,
		feed:     feed,
		logger:   logger,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.wsServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.WSPort),
		Handler:      s.wsRoutes(),
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(EchoPath, s.handleEcho)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/exchanges", s.handleExchanges)

	return mux
}

func (s *Server) wsRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/watch", s.feed)

	return mux
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.New().String()
	w.Header().Set("X-Request-Id", requestID)

	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.logger.Error("failed to read request body", "error", err, "request_id", requestID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var (
		payload     []byte
		contentType string
	)
	switch s.cfg.EchoFormat {
	case config.FormatJSON:
		payload, err = json.Marshal(map[string]string{"echo": string(body)})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		contentType = "application/json"
	default:
		payload = body
		contentType = "text/plain"
	}

	ex := &models.Exchange{
		RequestID:  requestID,
		Method:     r.Method,
		Path:       r.URL.Path,
		Headers:    r.Header.Clone(),
		Body:       string(body),
		StatusCode: http.StatusOK,
		ReceivedAt: time.Now().UTC(),
	}

	s.logger.Info("received request",
		"request_id", requestID,
		"headers", r.Header,
		"body", string(body),
	)

	if err := s.recorder.Record(r.Context(), ex); err != nil {
		s.logger.Error("failed to record exchange", "error", err, "request_id", requestID)
	}
	s.feed.Publish(ex)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		s.logger.Error("failed to write response", "error", err, "request_id", requestID)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleExchanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n := recentDefault
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = v
	}

	exchanges, err := s.recorder.Recent(r.Context(), n)
	if err != nil {
		s.logger.Error("failed to list exchanges", "error", err)
		http.Error(w, "failed to list exchanges", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(exchanges); err != nil {
		s.logger.Error("failed to encode exchanges", "error", err)
	}
}

// Start serves until ctx is cancelled or either listener fails. A listener
// failure, such as a port already in use, shuts the other one down and is
// returned.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
			errCh <- fmt.Errorf("HTTP server on %s: %w", s.httpServer.Addr, err)
		}
	}()

	go func() {
		s.logger.Info("starting WebSocket server", "address", s.wsServer.Addr)
		if err := s.wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("WebSocket server error", "error", err)
			errCh <- fmt.Errorf("WebSocket server on %s: %w", s.wsServer.Addr, err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		if shutdownErr := s.Shutdown(); shutdownErr != nil {
			s.logger.Error("error shutting down after listener failure", "error", shutdownErr)
		}
		return err
	}
}

func (s *Server) Shutdown() error {
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}

	if err := s.wsServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down WebSocket server: %w", err)
	}

	return nil
}
