// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the pipeline over HTTP. The generate endpoint
// validates up front, then streams progress as server-sent events; run
// outcomes are recorded in the history store after the stream ends.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/content-pipeline/internal/extract"
	"github.com/pdiddy/content-pipeline/internal/generate"
	"github.com/pdiddy/content-pipeline/internal/history"
	"github.com/pdiddy/content-pipeline/internal/modelconfig"
	"github.com/pdiddy/content-pipeline/internal/pipeline"
	"github.com/pdiddy/content-pipeline/internal/progress"
	"github.com/pdiddy/content-pipeline/internal/search"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

const historyWriteTimeout = 5 * time.Second

// Server holds the long-lived pipeline collaborators. A generation engine is
// built per request, since the request selects the model profile.
type Server struct {
	searcher     *search.Client
	extractor    *extract.Extractor
	registry     *modelconfig.Registry
	defaultModel string
	store        *history.Store
	heartbeat    time.Duration
	log          zerolog.Logger
}

// New wires a Server. store may be nil to disable run recording.
func New(searcher *search.Client, extractor *extract.Extractor, registry *modelconfig.Registry, cfg types.PipelineConfig, store *history.Store, log zerolog.Logger) *Server {
	return &Server{
		searcher:     searcher,
		extractor:    extractor,
		registry:     registry,
		defaultModel: cfg.Generation.DefaultModel,
		store:        store,
		heartbeat:    cfg.Server.HeartbeatInterval,
		log:          log,
	}
}

// Handler returns the routed HTTP handler with request logging attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/history", s.handleHistoryList)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryGet)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s.logRequests(mux)
}

// handleGenerate runs one pipeline execution, streaming events to the caller.
// Request problems are rejected with a JSON error before any stream bytes are
// written; after the stream opens, failures travel as error events.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decoding request: %v", err))
		return
	}
	if err := pipeline.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	model := req.Model
	if model == "" {
		model = s.defaultModel
	}
	profile, err := s.registry.Resolve(model)
	if err != nil {
		if errors.Is(err, modelconfig.ErrNoProfile) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	engine := generate.NewEngine(&generate.OpenAIBackend{Profile: profile})
	orch := pipeline.New(s.searcher, s.extractor, engine, s.log)

	stream := progress.NewStream(r.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, runErr := orch.Run(r.Context(), req, stream)
		s.record(req, result, runErr, r.Context().Err() != nil)
	}()

	if err := progress.WriteSSE(w, r, stream.Events(), s.heartbeat); err != nil {
		s.log.Debug().Err(err).Msg("event stream ended early")
	}
	<-done
}

// record persists the run outcome. Disconnected runs are not recorded; they
// have no terminal event.
func (s *Server) record(req types.GenerationRequest, result *types.GenerationResult, runErr error, disconnected bool) {
	if s.store == nil || disconnected {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	var id string
	var err error
	if runErr != nil {
		id, err = s.store.RecordError(ctx, req, runErr)
	} else {
		id, err = s.store.RecordComplete(ctx, req, result)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("recording run history")
		return
	}
	s.log.Info().Str("run_id", id).Str("game_title", req.GameTitle).Msg("run recorded")
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	run, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "no such run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// logRequests logs method, path, status and duration for every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// statusRecorder captures the response status for logging. Flush is
// forwarded so SSE streaming keeps working through the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
