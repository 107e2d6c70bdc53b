package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// cardioPayload mirrors the server's cardio ingest request without importing
// the server package (which would pull in pgx and other server-side
// dependencies).
type cardioPayload struct {
	ID             *uuid.UUID `json:"id,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        time.Time  `json:"end_time"`
	AvgHeartRate   *float64   `json:"avg_heart_rate,omitempty"`
	MaxHeartRate   *float64   `json:"max_heart_rate,omitempty"`
	ActiveCalories *float64   `json:"active_calories,omitempty"`
	Source         string     `json:"source,omitempty"`
}

// ingestResult is the server's response to a cardio ingest.
type ingestResult struct {
	ID         uuid.UUID `json:"id"`
	Inserted   bool      `json:"inserted"`
	Suppressed bool      `json:"suppressed"`
}

// Client sends cardio sessions to the IronLog server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new HTTP client for the IronLog server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SendCardio POSTs one cardio session to the server's ingest endpoint.
// Retries up to 3 times with exponential backoff on failure.
func (c *Client) SendCardio(payload cardioPayload) (*ingestResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}

		req, err := http.NewRequest(http.MethodPost, c.serverURL+"/api/v1/ingest/cardio", bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			var result ingestResult
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("decoding ingest response: %w", err)
			}
			return &result, nil
		}
		lastErr = fmt.Errorf("ingest failed (status %d): %s", resp.StatusCode, body)
	}

	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}
