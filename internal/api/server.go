// Package api exposes the confirmation and status surface over HTTP.
//
// This is the boundary an external caller (e.g. a button on a delivered
// notification) uses to confirm an item's completion state. It also
// serves preferences updates and an operational status snapshot.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"nudged/internal/deadline"
	"nudged/internal/notify"
	"nudged/internal/orchestrator"
	"nudged/internal/push"
	"nudged/internal/resilience"
	"nudged/internal/storage"
	"nudged/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string
}

type Server struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	tracker  *deadline.Tracker
	orch     *orchestrator.Orchestrator
	store    storage.Store
	metrics  *push.Metrics
	policies *resilience.Registry

	ln  net.Listener
	srv *http.Server
}

func New(cfg Config, tracker *deadline.Tracker, orch *orchestrator.Orchestrator,
	store storage.Store, metrics *push.Metrics, policies *resilience.Registry, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8375"
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		tracker:  tracker,
		orch:     orch,
		store:    store,
		metrics:  metrics,
		policies: policies,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.srv != nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /confirm", s.handleConfirm)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /preferences", s.handlePutPreferences)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("api server exited", logx.Err(err))
		}
	}()
	s.log.Info("api listening", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	shCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
}

// Addr returns the bound address (useful when Addr was ":0").
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

type confirmRequest struct {
	ItemID    string `json:"itemId"`
	Completed bool   `json:"completed"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "itemId is required"})
		return
	}
	ok, err := s.tracker.ConfirmStatus(r.Context(), req.ItemID, req.Completed, time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !ok {
		// Unknown item means "already gone", not a server fault.
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown item"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"itemId": req.ItemID, "completed": req.Completed})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"producers": s.orch.Health(),
		"delivery":  s.metrics.Snapshot(),
		"circuits":  s.policies.Snapshots(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := s.store.RecentHistory(r.Context(), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Preferences(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if p == nil {
		def := notify.DefaultPreferences()
		p = &def
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var p notify.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid preferences body"})
		return
	}
	p.MinimumPriority = notify.ParsePriority(string(p.MinimumPriority))
	if err := s.store.PutPreferences(r.Context(), p); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
