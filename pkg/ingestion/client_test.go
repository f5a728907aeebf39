package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ledgerbot/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.BackendConfig{
		BaseURL:        srv.URL + "/api/",
		MasterDataPath: "/ingestion/master-data",
		SubmitPath:     "/ingestion/transactions",
		Timeout:        time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

func TestFetchMasterData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/ingestion/master-data" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"branches":[{"id":1,"name":"Antapani","branchType":"LAUNDRY"},{"id":"b-2","name":"Dago","branchType":"CARWASH"}],
			"categories":[{"id":10,"name":"Cuci","transactionType":"INCOME"}]}`)
	})

	data, err := client.FetchMasterData(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data.Branches) != 2 || len(data.Categories) != 1 {
		t.Fatalf("unexpected master data: %+v", data)
	}
	if data.Branches[0].ID.String() != "1" || data.Branches[1].ID.String() != "b-2" {
		t.Fatalf("unexpected branch ids %s, %s", data.Branches[0].ID, data.Branches[1].ID)
	}
	if data.Categories[0].TransactionType != "INCOME" {
		t.Fatalf("unexpected category %+v", data.Categories[0])
	}
}

func TestFetchMasterDataNon2xx(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	})

	_, err := client.FetchMasterData(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%v)", StatusCode(err), err)
	}
	var se *SubmissionError
	if !errors.As(err, &se) || !strings.Contains(se.Body, "maintenance") {
		t.Fatalf("expected body in error, got %v", err)
	}
}

func TestSubmitSendsPayloadAndReturnsID(t *testing.T) {
	var got map[string]any
	var requestID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/ingestion/transactions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		requestID = r.Header.Get("X-Request-ID")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":99}`)
	})

	id, err := client.Submit(context.Background(), Payload{
		PhoneNumber: "628111",
		BranchID:    NumericID(1),
		CategoryID:  StringID("cat-10"),
		Type:        "INCOME",
		Amount:      50000,
		Notes:       "-",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "99" {
		t.Fatalf("expected id 99, got %s", id)
	}
	if requestID == "" {
		t.Fatalf("expected X-Request-ID header")
	}
	if got["phoneNumber"] != "628111" || got["branchId"] != float64(1) || got["categoryId"] != "cat-10" {
		t.Fatalf("unexpected body %v", got)
	}
	if got["type"] != "INCOME" || got["amount"] != float64(50000) || got["notes"] != "-" {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestSubmitAcceptsWrappedID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"id":"tx-7"}}`)
	})

	id, err := client.Submit(context.Background(), Payload{PhoneNumber: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "tx-7" {
		t.Fatalf("expected tx-7, got %s", id)
	}
}

func TestSubmitFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"missing id": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"ok":true}`)
		},
		"garbage body": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `<html>`)
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, handler)
			_, err := client.Submit(context.Background(), Payload{PhoneNumber: "1"})
			var se *SubmissionError
			if !errors.As(err, &se) {
				t.Fatalf("expected SubmissionError, got %v", err)
			}
		})
	}
}

func TestSubmitMissingIDIsSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})
	_, err := client.Submit(context.Background(), Payload{})
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestSubmitNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client, err := NewClient(config.BackendConfig{BaseURL: srv.URL, SubmitPath: "/tx", Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Submit(context.Background(), Payload{})
	var se *SubmissionError
	if !errors.As(err, &se) || se.Wrapped == nil {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient(config.BackendConfig{BaseURL: "not a url"}, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestIDRoundTripPreservesKind(t *testing.T) {
	var ids []ID
	if err := json.Unmarshal([]byte(`[7,"x-1",null]`), &ids); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := json.Marshal(ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `[7,"x-1",null]` {
		t.Fatalf("unexpected round trip %s", out)
	}
	if !ids[2].IsZero() {
		t.Fatalf("expected null id to be zero")
	}
	if err := json.Unmarshal([]byte(`{"a":1}`), &ID{}); err == nil {
		t.Fatalf("expected object id to be rejected")
	}
}
