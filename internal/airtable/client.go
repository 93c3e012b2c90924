package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tutormatch/match-pipeline/internal/mapping"
)

// DefaultBaseURL is the Airtable REST endpoint.
const DefaultBaseURL = "https://api.airtable.com/v0"

// APIError is a non-2xx response from the record API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("record API error: status %d: %s", e.StatusCode, e.Body)
}

// Client calls the Airtable record-creation API.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	BaseID     string
}

// NewClient returns a Client bound to a base. Credentials come from the
// secrets provider at process start.
func NewClient(token, baseID string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    DefaultBaseURL,
		Token:      token,
		BaseID:     baseID,
	}
}

// CreateRecord posts the record body to /{baseID}/{tableName} and returns the
// raw response body on success (any 2xx status).
//
// The API has no idempotency-token support, so a work item redelivered after a
// crash inside this call can create the record twice. Callers bound that
// window by checking the status table before calling.
func (c *Client) CreateRecord(ctx context.Context, tableName string, body *mapping.RecordBody) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal record body: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", c.BaseURL, c.BaseID, tableName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post record: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
