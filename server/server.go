// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/poiesic/widensync/core"
	"github.com/poiesic/widensync/pipeline"
	"github.com/poiesic/widensync/storage"
)

// SyncRunner triggers one batch synchronization run.
type SyncRunner interface {
	Run(ctx context.Context, limit, offset int, skipIngest bool) (*core.SyncResult, error)
}

// ContentPuller delivers assets one at a time for crawler-style consumers.
type ContentPuller interface {
	Pull(ctx context.Context) (*pipeline.PullResponse, error)
}

// Querier runs a search against the indexing backend.
type Querier interface {
	Query(ctx context.Context, query string) (json.RawMessage, error)
}

// TokenValidator checks incoming auth tokens. When nil, the API is open.
type TokenValidator interface {
	Valid(raw string) bool
}

// Config holds the HTTP listener settings.
type Config struct {
	Port         int
	DefaultLimit int
}

// Server is the connector's HTTP surface: batch sync trigger, pull-mode
// content feed, sync status, and a search passthrough.
type Server struct {
	config Config
	runner SyncRunner
	puller ContentPuller
	search Querier
	tokens TokenValidator
	audit  storage.AuditSink
	logger *slog.Logger
	server *http.Server
}

// NewServer wires the HTTP surface. The search querier, token validator
// and audit sink may each be nil; the matching feature is then disabled
// or left open.
func NewServer(config Config, runner SyncRunner, puller ContentPuller, search Querier, tokens TokenValidator, audit storage.AuditSink) *Server {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 15
	}

	return &Server{
		config: config,
		runner: runner,
		puller: puller,
		search: search,
		tokens: tokens,
		audit:  audit,
		logger: slog.Default().With("component", "server"),
	}
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/syncWiden", s.requireAuth(s.syncHandler))
	mux.HandleFunc("/syncWiden/status", s.requireAuth(s.statusHandler))
	mux.HandleFunc("/getWidenContent", s.requireAuth(s.pullHandler))
	mux.HandleFunc("/search", s.requireAuth(s.searchHandler))
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.Handler(),
	}

	s.logger.Info("starting server", "port", s.config.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop shuts the listener down, letting in-flight requests finish.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("stopping server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// requireAuth rejects requests whose auth header does not carry a token
// signed with our credentials. Open when no validator is configured.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.tokens != nil && !s.tokens.Valid(r.Header.Get("auth")) {
			s.writeError(w, http.StatusUnauthorized, "invalid or missing auth token")
			return
		}
		next(w, r)
	}
}

func (s *Server) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"healthy": true})
}

// syncHandler triggers a full batch run. Accepts limit, offset and
// skipIngest query parameters.
func (s *Server) syncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := s.config.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	skipIngest := r.URL.Query().Get("skipIngest") == "true"

	result, err := s.runner.Run(r.Context(), limit, offset, skipIngest)
	if err != nil {
		s.logger.Error("sync run failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// statusResponse reports recent pipeline activity.
type statusResponse struct {
	Status         string              `json:"status"`
	RecentActivity []*core.AuditRecord `json:"recentActivity"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := statusResponse{Status: "ok", RecentActivity: []*core.AuditRecord{}}
	if s.audit != nil {
		rows, err := s.audit.Recent(r.Context(), 50)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.RecentActivity = rows
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// pullHandler delivers the next asset and advances the cursor.
func (s *Server) pullHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp, err := s.puller.Pull(r.Context())
	if err != nil {
		s.logger.Error("pull failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.search == nil {
		s.writeError(w, http.StatusNotImplemented, "search is not configured")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "body must be {\"query\": \"...\"}")
		return
	}

	resp, err := s.search.Query(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("search failed", "err", err)
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
