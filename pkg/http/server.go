// Package http exposes session synchronization over an HTTP API backed by
// Temporal workflows.
package http

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

	"go.temporal.io/sdk/client"

	"github.com/leowmjw/go-walk-sync/pkg/hcl"
	"github.com/leowmjw/go-walk-sync/pkg/temporal"
)

// Server represents the HTTP server for the sync service
type Server struct {
	logger         *slog.Logger
	temporalClient client.Client
	addr           string
	taskQueue      string
}

// NewServer creates a new HTTP server
func NewServer(logger *slog.Logger, temporalClient client.Client, addr, taskQueue string) *Server {
	if taskQueue == "" {
		taskQueue = temporal.DefaultTaskQueue
	}
	return &Server{
		logger:         logger,
		temporalClient: temporalClient,
		addr:           addr,
		taskQueue:      taskQueue,
	}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/{subject}/{walk}/sync", s.handleSyncSession)
	mux.HandleFunc("POST /batches", s.handleBatch)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.loggingMiddleware(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// syncOptions is the optional JSON body of a session sync request.
type syncOptions struct {
	DryRun bool `json:"dry_run"`
}

// handleSyncSession starts SyncSessionWorkflow for one session. With
// ?wait=true the response carries the workflow result.
func (s *Server) handleSyncSession(w http.ResponseWriter, r *http.Request) {
	req := temporal.SyncRequest{Subject: r.PathValue("subject"), Walk: r.PathValue("walk")}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts syncOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.DryRun = opts.DryRun

	wait := false
	if v := r.URL.Query().Get("wait"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid wait parameter")
			return
		}
		wait = b
	}

	workflowID := temporal.GenerateSyncWorkflowID("", req)
	s.logger.Info("Starting session sync", "workflowID", workflowID, "dryRun", req.DryRun)

	run, err := s.temporalClient.ExecuteWorkflow(
		r.Context(),
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: s.taskQueue,
		},
		temporal.SyncSessionWorkflow,
		req,
	)
	if err != nil {
		s.logger.Error("Failed to start sync workflow", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to start session sync")
		return
	}

	if !wait {
		s.respondJSON(w, http.StatusAccepted, map[string]string{
			"workflow_id": run.GetID(),
			"run_id":      run.GetRunID(),
		})
		return
	}

	var result *temporal.SyncResult
	if err := run.Get(r.Context(), &result); err != nil {
		s.logger.Error("Sync workflow failed", "workflowID", workflowID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "session sync failed")
		return
	}
	s.logger.Info("Session sync completed", "workflowID", workflowID, "intervals", result.Intervals)
	s.respondJSON(w, http.StatusOK, result)
}

// handleBatch starts SyncBatchWorkflow from a JSON or HCL body.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	contentType, err := hcl.DetectContentType(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req *temporal.BatchRequest
	switch contentType {
	case hcl.ContentTypeHCL:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		req, err = hcl.ParseBatchRequest(string(body))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid HCL body: %v", err))
			return
		}
	default:
		req = &temporal.BatchRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := req.Validate(); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	workflowID, batchID := temporal.GenerateBatchWorkflowID()
	req.BatchID = batchID
	s.logger.Info("Starting batch sync", "workflowID", workflowID, "sessions", len(req.Sessions))

	run, err := s.temporalClient.ExecuteWorkflow(
		r.Context(),
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: s.taskQueue,
		},
		temporal.SyncBatchWorkflow,
		*req,
	)
	if err != nil {
		s.logger.Error("Failed to start batch workflow", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to start batch")
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
		"batch_id":    batchID,
		"sessions":    len(req.Sessions),
	})
}

// Health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Middleware for request logging
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start),
			"userAgent", r.UserAgent(),
		)
	})
}

// Response helpers
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Warn("HTTP error response", "status", status, "message", message)
	s.respondJSON(w, status, map[string]string{"error": message})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
