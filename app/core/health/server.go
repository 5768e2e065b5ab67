// Package health exposes the operational HTTP surface: a liveness
// probe plus JSON status and audit endpoints.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/pretty"

	"taskpilot/app/core/audit"
	"taskpilot/app/core/interaction/gateway"
	"taskpilot/app/core/scheduler"
)

type StatusSource interface {
	HealthStatus() gateway.HealthStatus
}

type SessionCounter interface {
	Len() int
}

type AuditSource interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

type ScheduleSource interface {
	Snapshot() []scheduler.JobStatus
}

type Server struct {
	port      int
	gateway   StatusSource
	sessions  SessionCounter
	auditor   AuditSource
	scheduler ScheduleSource
	srv       *http.Server
}

func NewServer(port int, gw StatusSource, sessions SessionCounter, auditor AuditSource, sched ScheduleSource) *Server {
	if port <= 0 {
		port = 5001
	}
	return &Server{port: port, gateway: gw, sessions: sessions, auditor: auditor, scheduler: sched}
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/audit", s.handleAudit)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Health] Shutdown error: %v", err)
		}
	}()

	log.Printf("[Health] Listening on :%d", s.port)
	err := s.srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]interface{}{
		"time": time.Now().UTC().Format(time.RFC3339),
	}
	if s.gateway != nil {
		payload["gateway"] = s.gateway.HealthStatus()
	}
	if s.sessions != nil {
		payload["active_sessions"] = s.sessions.Len()
	}
	if s.scheduler != nil {
		payload["jobs"] = s.scheduler.Snapshot()
	}
	writeJSON(w, payload)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditor == nil {
		http.Error(w, "audit disabled", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.auditor.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"entries": entries})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(pretty.Pretty(raw))
}
