package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"taskpilot/app/core/audit"
	"taskpilot/app/core/interaction/gateway"
	"taskpilot/app/core/scheduler"
)

type fakeGateway struct{}

func (fakeGateway) HealthStatus() gateway.HealthStatus {
	return gateway.HealthStatus{Started: true, BotName: "taskpilot", ProcessedMessages: 7}
}

type fakeSessions struct{ n int }

func (f fakeSessions) Len() int { return f.n }

type fakeAudit struct{ entries []audit.Entry }

func (f fakeAudit) Recent(_ context.Context, limit int) ([]audit.Entry, error) {
	if limit > 0 && limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

type fakeSched struct{}

func (fakeSched) Snapshot() []scheduler.JobStatus {
	return []scheduler.JobStatus{{Name: "daily-report", Runs: 3}}
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(0, fakeGateway{}, fakeSessions{}, nil, nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 200 || rec.Body.String() != "OK" {
		t.Fatalf("health: %d %q", rec.Code, rec.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := NewServer(0, fakeGateway{}, fakeSessions{n: 2}, nil, fakeSched{})
	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest("GET", "/api/status", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: %q", ct)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["active_sessions"] != float64(2) {
		t.Fatalf("sessions: %v", payload["active_sessions"])
	}
	gw, _ := payload["gateway"].(map[string]interface{})
	if gw["bot_name"] != "taskpilot" {
		t.Fatalf("gateway: %v", gw)
	}
	// The response is pretty-printed, not a single line.
	if !strings.Contains(rec.Body.String(), "\n") {
		t.Fatal("status output should be indented")
	}
}

func TestAuditEndpoint(t *testing.T) {
	auditor := fakeAudit{entries: []audit.Entry{
		{UserID: "u1", Flow: "create", Outcome: "completed"},
		{UserID: "u2", Flow: "delete", Outcome: "cancelled"},
	}}
	s := NewServer(0, fakeGateway{}, fakeSessions{}, auditor, nil)

	rec := httptest.NewRecorder()
	s.handleAudit(rec, httptest.NewRequest("GET", "/api/audit?limit=1", nil))
	var payload struct {
		Entries []audit.Entry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Entries) != 1 || payload.Entries[0].Flow != "create" {
		t.Fatalf("entries: %+v", payload.Entries)
	}
}

func TestAuditEndpointDisabled(t *testing.T) {
	s := NewServer(0, fakeGateway{}, fakeSessions{}, nil, nil)
	rec := httptest.NewRecorder()
	s.handleAudit(rec, httptest.NewRequest("GET", "/api/audit", nil))
	if rec.Code != 404 {
		t.Fatalf("status: %d", rec.Code)
	}
}
