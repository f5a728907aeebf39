package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledgerbot/pkg/ingestion"
	"ledgerbot/pkg/journal"
	"ledgerbot/pkg/masterdata"

	"github.com/gin-gonic/gin"
)

type stubRefresher struct {
	snap  *masterdata.Snapshot
	err   error
	calls int
}

func (s *stubRefresher) Refresh(ctx context.Context) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.snap = &masterdata.Snapshot{
		Branches:   []ingestion.Branch{{Name: "Antapani"}, {Name: "Dago"}},
		Categories: []ingestion.Category{{Name: "Listrik"}},
	}
	return nil
}

func (s *stubRefresher) Get() (*masterdata.Snapshot, bool) {
	return s.snap, s.snap != nil
}

type stubSessions int

func (s stubSessions) Len() int { return int(s) }

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	r := NewRouter(&stubRefresher{}, stubSessions(0), nil)

	rec := serve(t, r, http.MethodGet, "/healthz")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["master_data_loaded"] != false {
		t.Fatalf("expected master_data_loaded=false, got %v", body)
	}
}

func TestRefreshReturnsCounts(t *testing.T) {
	refresher := &stubRefresher{}
	r := NewRouter(refresher, stubSessions(0), nil)

	rec := serve(t, r, http.MethodPost, "/refresh")

	if rec.Code != http.StatusOK || refresher.calls != 1 {
		t.Fatalf("expected 200 after one refresh, got %d (%d calls)", rec.Code, refresher.calls)
	}
	var body struct {
		Branches   int `json:"branches"`
		Categories int `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Branches != 2 || body.Categories != 1 {
		t.Fatalf("unexpected counts %+v", body)
	}
}

func TestRefreshFailure(t *testing.T) {
	r := NewRouter(&stubRefresher{err: errors.New("backend down")}, stubSessions(0), nil)

	rec := serve(t, r, http.MethodPost, "/refresh")

	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), "backend down") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestRefreshRequiresPost(t *testing.T) {
	r := NewRouter(&stubRefresher{}, stubSessions(0), nil)

	rec := serve(t, r, http.MethodGet, "/refresh")

	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected GET /refresh to be rejected, got %d", rec.Code)
	}
}

func TestSessions(t *testing.T) {
	r := NewRouter(&stubRefresher{}, stubSessions(3), nil)

	rec := serve(t, r, http.MethodGet, "/sessions")

	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"active":3}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewRouter(&stubRefresher{}, stubSessions(0), nil)

	rec := serve(t, r, http.MethodGet, "/metrics")

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("unexpected metrics response %d", rec.Code)
	}
}

type stubOutcomes struct {
	sender string
	limit  int
	err    error
}

func (s *stubOutcomes) Recent(ctx context.Context, senderID string, limit int) ([]journal.Entry, error) {
	s.sender, s.limit = senderID, limit
	if s.err != nil {
		return nil, s.err
	}
	return []journal.Entry{{SenderID: senderID, Outcome: "completed", RecordID: "99"}}, nil
}

func TestOutcomes(t *testing.T) {
	outcomes := &stubOutcomes{}
	r := NewRouter(&stubRefresher{}, stubSessions(0), outcomes)

	rec := serve(t, r, http.MethodGet, "/outcomes/628111?limit=5")

	if rec.Code != http.StatusOK || outcomes.sender != "628111" || outcomes.limit != 5 {
		t.Fatalf("unexpected response %d (sender %q limit %d)", rec.Code, outcomes.sender, outcomes.limit)
	}
	if !strings.Contains(rec.Body.String(), `"RecordID":"99"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = serve(t, r, http.MethodGet, "/outcomes/628111?limit=0")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}

	outcomes.err = errors.New("db down")
	rec = serve(t, r, http.MethodGet, "/outcomes/628111")
	if rec.Code != http.StatusInternalServerError || outcomes.limit != defaultOutcomeLimit {
		t.Fatalf("expected 500 with default limit, got %d limit %d", rec.Code, outcomes.limit)
	}
}

func TestOutcomesDisabledWithoutJournal(t *testing.T) {
	r := NewRouter(&stubRefresher{}, stubSessions(0), nil)

	rec := serve(t, r, http.MethodGet, "/outcomes/628111")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without journal, got %d", rec.Code)
	}
}
