package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"ledgerbot/pkg/config"

	"github.com/google/uuid"
)

const maxErrorBody = 512

// Client talks to the backend ingestion resources. Every call is attempted exactly once.
type Client struct {
	masterDataURL string
	submitURL     string
	httpClient    *http.Client
	newRequestID  func() string
}

func NewClient(cfg config.BackendConfig, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ingestion: invalid base url %q", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		masterDataURL: base.JoinPath(cfg.MasterDataPath).String(),
		submitURL:     base.JoinPath(cfg.SubmitPath).String(),
		httpClient:    httpClient,
		newRequestID:  uuid.NewString,
	}, nil
}

// FetchMasterData returns the current branches and categories.
func (c *Client) FetchMasterData(ctx context.Context) (MasterData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.masterDataURL, nil)
	if err != nil {
		return MasterData{}, &SubmissionError{Op: "fetch_master_data", Wrapped: err}
	}
	req.Header.Set("Accept", "application/json")

	var data MasterData
	if err := c.do(req, "fetch_master_data", &data); err != nil {
		return MasterData{}, err
	}
	return data, nil
}

// Submit posts a completed transaction and returns the backend-assigned id.
func (c *Client) Submit(ctx context.Context, payload Payload) (ID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return ID{}, &SubmissionError{Op: "submit", Wrapped: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.submitURL, bytes.NewReader(body))
	if err != nil {
		return ID{}, &SubmissionError{Op: "submit", Wrapped: err}
	}
	requestID := c.newRequestID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	var resp submitResponse
	if err := c.do(req, "submit", &resp); err != nil {
		log.Printf("[ingestion.Submit] request %s for %s failed: %v", requestID, payload.PhoneNumber, err)
		return ID{}, err
	}
	id := resp.assignedID()
	if id.IsZero() {
		return ID{}, &SubmissionError{Op: "submit", StatusCode: http.StatusOK, Wrapped: ErrMissingID}
	}
	log.Printf("[ingestion.Submit] request %s for %s stored as %s", requestID, payload.PhoneNumber, id)
	return id, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SubmissionError{Op: op, Wrapped: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &SubmissionError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &SubmissionError{Op: op, StatusCode: resp.StatusCode, Wrapped: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
