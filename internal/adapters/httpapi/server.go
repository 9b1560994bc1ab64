// Package httpapi exposes the ingestion pipeline over a small HTTP surface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/core"
)

const defaultReviewQueueLimit = 50

// Server wires the ingestion service and the placement store into HTTP
// handlers. Routing stays on net/http; the surface is four endpoints.
type Server struct {
	ingestion *core.IngestionService
	store     core.PlacementStore
	logger    *zap.Logger
	srv       *http.Server
}

// NewServer creates a new HTTP server
func NewServer(addr string, ingestion *core.IngestionService, store core.PlacementStore, logger *zap.Logger) *Server {
	s := &Server{
		ingestion: ingestion,
		store:     store,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sync", s.handleSync)
	mux.HandleFunc("GET /review-queue", s.handleReviewQueue)
	mux.HandleFunc("POST /reviewed", s.handleReviewed)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type syncRequest struct {
	UserID      string `json:"userId"`
	AccessToken string `json:"accessToken"`
	Query       string `json:"query,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "userId and accessToken are required")
		return
	}

	stats, err := s.ingestion.Sync(r.Context(), req.UserID, req.AccessToken, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrSyncInProgress):
			writeError(w, http.StatusConflict, "sync already in progress")
		case errors.Is(err, core.ErrReauthRequired):
			writeError(w, http.StatusUnauthorized, "reauthorization required")
		default:
			s.logger.Error("Sync failed", zap.String("user_id", req.UserID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	limit := defaultReviewQueueLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.store.ReviewQueue(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("Review queue query failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load review queue")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

type reviewedRequest struct {
	UserID    string `json:"userId"`
	MessageID string `json:"messageId"`
	Reviewer  string `json:"reviewer"`
}

func (s *Server) handleReviewed(w http.ResponseWriter, r *http.Request) {
	var req reviewedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.MessageID == "" || req.Reviewer == "" {
		writeError(w, http.StatusBadRequest, "userId, messageId and reviewer are required")
		return
	}

	if err := s.store.MarkReviewed(r.Context(), req.UserID, req.MessageID, req.Reviewer); err != nil {
		s.logger.Error("Mark reviewed failed",
			zap.String("user_id", req.UserID),
			zap.String("message_id", req.MessageID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to mark reviewed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
