// Package server exposes the indexer over a small JSON API with
// WebSocket refresh notifications for connected viewers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/chattree-go/internal/service"
)

// maxImportBody caps import payload size (conversation exports run to a
// few megabytes at most).
const maxImportBody = 16 << 20

// Server wraps the indexer with HTTP handlers and a WebSocket hub.
type Server struct {
	indexer  *service.Indexer
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

// New creates a server around an indexer.
func New(indexer *service.Indexer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		indexer: indexer,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The extension/viewer runs on chat product origins, so
			// cross-origin upgrades are expected.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*websocket.Conn),
	}
}

// Routes returns the HTTP handler for all endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tree", s.handleTree)
	mux.HandleFunc("GET /api/validate", s.handleValidate)
	mux.HandleFunc("GET /api/branches", s.handleBranches)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/resolve", s.handleResolve)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /ws", s.handleWS)
	return s.logRequests(mux)
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation")
	if conversationID == "" {
		s.writeError(w, http.StatusBadRequest, "conversation query parameter required")
		return
	}

	if err := s.indexer.Rebuild(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("rebuild: %v", err))
		return
	}

	nodes, err := s.indexer.BuildTree(conversationID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("build tree: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"nodes":           nodes,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	errs := s.indexer.Validate()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"errors": errs,
		"count":  len(errs),
	})
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	data, err := s.indexer.BranchData()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("load branches: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.indexer.GraphStats()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"metrics":       s.indexer.Metrics().Snapshot(),
		"nodes":         stats.Nodes,
		"shared_nodes":  stats.SharedNodes,
		"conversations": stats.Conversations,
		"edit_groups":   stats.EditGroups,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}
	resolved, err := s.indexer.ResolveURL(url)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resolved)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	if platform == "" {
		s.writeError(w, http.StatusBadRequest, "platform query parameter required")
		return
	}
	conversationID := r.URL.Query().Get("conversation")

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}

	result, err := s.indexer.ImportPayload(r.Context(), platform, conversationID, raw)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.notify(refreshEvent{
		Event:          "refresh",
		ConversationID: result.ConversationID,
		Platform:       result.Platform,
	})
	s.writeJSON(w, http.StatusOK, result)
}

// refreshEvent is pushed to WebSocket clients after an import so open
// viewers re-request their trees.
type refreshEvent struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversation_id"`
	Platform       string `json:"platform"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.clients[id] = conn
	s.mu.Unlock()
	s.logger.Debug("websocket client connected", "client", id)

	// Reader loop only drains control frames; the connection is
	// server-push.
	go func() {
		defer s.dropClient(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) notify(event refreshEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conn := range s.clients {
		if err := conn.WriteJSON(event); err != nil {
			s.logger.Debug("dropping websocket client", "client", id, "error", err)
			conn.Close()
			delete(s.clients, id)
		}
	}
}

func (s *Server) dropClient(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn, ok := s.clients[id]; ok {
		conn.Close()
		delete(s.clients, id)
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conn := range s.clients {
		conn.Close()
		delete(s.clients, id)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// logRequests logs every request with timing; slow requests log at WARN.
func (s *Server) logRequests(next http.Handler) http.Handler {
	const slowThreshold = 250 * time.Millisecond
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", duration.Milliseconds(),
		}
		if duration > slowThreshold {
			s.logger.Warn("slow request", attrs...)
		} else {
			s.logger.Debug("request completed", attrs...)
		}
	})
}
