// Package analysis talks to the external AI message-analysis service.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is the analysis service's verdict on one message. The service is a
// black box: fields arrive as-is and missing ones stay empty.
type Result struct {
	Language            string   `json:"language"`
	Keywords            []string `json:"keywords"`
	Analysis            string   `json:"analysis"`
	Reply               string   `json:"reply"`
	SalesRecommendation string   `json:"sales_recommendation"`
}

type analyzeRequest struct {
	Message string `json:"message"`
}

// Client calls the analysis endpoint.
type Client struct {
	URL string

	httpClient *http.Client
}

// NewClient builds a Client with a bounded request timeout.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		URL: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze sends message text to the service and returns the parsed result.
func (c *Client) Analyze(ctx context.Context, message string) (*Result, error) {
	body, err := json.Marshal(analyzeRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("POST %s returned status %d: %s", c.URL, resp.StatusCode, string(data))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}
	return &result, nil
}
