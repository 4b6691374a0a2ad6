// Package api provides the JSON HTTP surface over the orchestrator.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sentinai/pkg/config"
	"sentinai/pkg/logx"
	"sentinai/pkg/memory"
	"sentinai/pkg/orchestrator"
	"sentinai/pkg/tools"
	"sentinai/pkg/utils"
	"sentinai/pkg/version"
)

// Orchestrator is the slice of *orchestrator.Orchestrator the server uses.
type Orchestrator interface {
	Initialize(ctx context.Context) orchestrator.InitResult
	Execute(ctx context.Context, req orchestrator.Request) orchestrator.Response
	Status(ctx context.Context) orchestrator.Status
	ClearSession(id string) bool
	Search(ctx context.Context, query string, k int) ([]memory.Record, error)
	ClearMemory(ctx context.Context) (int, error)
}

// Server serves the orchestrator over HTTP.
type Server struct {
	orch     Orchestrator
	cfg      config.ServerConfig
	gatherer prometheus.Gatherer
	logger   *logx.Logger
}

// NewServer creates a server. A nil gatherer uses the default registry.
func NewServer(orch Orchestrator, cfg config.ServerConfig, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		orch:     orch,
		cfg:      cfg,
		gatherer: gatherer,
		logger:   logx.NewLogger("api"),
	}
}

// ChatRequest is the body of POST /api/agents/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	Context   string `json:"context,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the reply of POST /api/agents/chat.
type ChatResponse struct {
	Response  string                 `json:"response"`
	AgentID   string                 `json:"agent_id"`
	Status    string                 `json:"status"`
	Mode      orchestrator.Mode      `json:"mode"`
	ErrorKind orchestrator.ErrorKind `json:"error_kind,omitempty"`
	RequestID string                 `json:"request_id"`
	Trace     []orchestrator.Step    `json:"trace"`
}

// ProcessResponse is the reply of POST /api/agents/process.
type ProcessResponse struct {
	Status        string                 `json:"status"`
	Response      string                 `json:"response"`
	FileProcessed string                 `json:"file_processed,omitempty"`
	Mode          orchestrator.Mode      `json:"mode"`
	ErrorKind     orchestrator.ErrorKind `json:"error_kind,omitempty"`
	RequestID     string                 `json:"request_id"`
	Trace         []orchestrator.Step    `json:"trace"`
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.cors(mux)
}

// RegisterRoutes registers all API routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/agents/chat", s.handleChat)
	mux.HandleFunc("/api/agents/status", s.handleStatus)
	mux.HandleFunc("/api/agents/process", s.handleProcess)
	mux.HandleFunc("/api/agents/initialize", s.handleInitialize)
	mux.HandleFunc("/api/agents/sessions/", s.handleSession)
	mux.HandleFunc("/api/memory", s.handleClearMemory)
	mux.HandleFunc("/api/memory/search", s.handleSearch)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// Run serves on the configured address until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🌐 Starting API server on %s", s.cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	//nolint:contextcheck // Parent context is cancelled; we need a fresh context for shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.AllowedOrigins))
	for _, o := range s.cfg.AllowedOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			h := w.Header()
			if allowed[origin] {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			} else {
				// Wildcard origins never get credentials.
				h.Set("Access-Control-Allow-Origin", "*")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"status": orchestrator.StatusError, "message": msg})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// handleRoot implements GET /.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"name":    "SentinAI API",
		"version": version.Version,
		"status":  "running",
	})
}

// handleHealth implements GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "SentinAI API is running",
		"version": version.Version,
	})
}

// handleChat implements POST /api/agents/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	input := req.Message
	if c := strings.TrimSpace(req.Context); c != "" && strings.TrimSpace(input) != "" {
		input = fmt.Sprintf("%s\n\nContext: %s", input, c)
	}
	resp := s.orch.Execute(r.Context(), orchestrator.Request{Input: input, SessionID: req.SessionID})
	s.writeJSON(w, http.StatusOK, ChatResponse{
		Response:  resp.Text(),
		AgentID:   orchestrator.AgentID,
		Status:    resp.Status,
		Mode:      resp.Mode,
		ErrorKind: resp.ErrorKind,
		RequestID: resp.RequestID,
		Trace:     resp.Trace,
	})
}

// handleStatus implements GET /api/agents/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.orch.Status(r.Context()))
}

// handleInitialize implements POST /api/agents/initialize.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.orch.Initialize(r.Context()))
}

// handleSession implements DELETE /api/agents/sessions/{id}.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/agents/sessions/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	if !s.orch.ClearSession(id) {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": orchestrator.StatusSuccess, "session_id": id})
}

// handleSearch implements GET /api/memory/search?q=...&k=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	k := memory.DefaultK
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = n
	}

	records, err := s.orch.Search(r.Context(), query, k)
	switch {
	case errors.Is(err, orchestrator.ErrMemoryDisabled):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.logger.Error("memory search failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": orchestrator.StatusSuccess, "results": records})
}

// handleClearMemory implements DELETE /api/memory.
func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	n, err := s.orch.ClearMemory(r.Context())
	switch {
	case errors.Is(err, orchestrator.ErrMemoryDisabled):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.logger.Error("memory clear failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": orchestrator.StatusSuccess, "deleted": n})
}

// handleProcess implements POST /api/agents/process: a multipart form with a
// required "query" field and an optional "file". Audio and document uploads
// are saved under the data directory and referenced by path in the input.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		s.logger.Warn("Failed to parse multipart form: %v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	query := r.FormValue("query")
	if strings.TrimSpace(query) == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	input := query
	var fileName string
	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		s.writeError(w, http.StatusBadRequest, "Invalid file upload")
		return
	default:
		defer func() {
			if cerr := file.Close(); cerr != nil {
				s.logger.Warn("Failed to close uploaded file: %v", cerr)
			}
		}()
		fileName = header.Filename
		path, saveErr := s.saveUpload(file, header.Filename)
		if saveErr != nil {
			s.logger.Error("Failed to save upload: %v", saveErr)
			s.writeError(w, http.StatusInternalServerError, "Failed to save file")
			return
		}
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				s.logger.Warn("Failed to remove upload %s: %v", path, rmErr)
			}
		}()
		input = UploadInput(path, query)
	}

	resp := s.orch.Execute(r.Context(), orchestrator.Request{Input: input, SessionID: r.FormValue("session_id")})
	s.writeJSON(w, http.StatusOK, ProcessResponse{
		Status:        resp.Status,
		Response:      resp.Text(),
		FileProcessed: fileName,
		Mode:          resp.Mode,
		ErrorKind:     resp.ErrorKind,
		RequestID:     resp.RequestID,
		Trace:         resp.Trace,
	})
}

// UploadInput rewrites a request around an uploaded file by its extension.
func UploadInput(path, query string) string {
	switch {
	case tools.IsAudioPath(path):
		return "Transcribe the audio file at: " + path
	case tools.IsDocumentPath(path):
		return fmt.Sprintf("Extract information from the document at %s. Question: %s", path, query)
	default:
		return query
	}
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	dir, err := filepath.Abs(s.cfg.DataDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	dst, err := os.CreateTemp(dir, "upload-*"+utils.SafeExtension(name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("failed to close upload: %w", err)
	}
	return dst.Name(), nil
}
