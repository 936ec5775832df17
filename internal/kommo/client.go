// Package kommo is a minimal client for the Kommo CRM v4 API, covering the
// two calls the relay needs: creating a note on a record and fetching recent
// chat messages for a lead.
package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to one Kommo account.
type Client struct {
	Token string

	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Client for the given account domain and API token.
func NewClient(domain, token string, timeout time.Duration) *Client {
	return &Client{
		Token:   token,
		baseURL: "https://" + domain,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) makeURL(endpoint string) string {
	return fmt.Sprintf("%s/api/v4/%s", c.baseURL, endpoint)
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", c.Token)
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

// CreateNote posts a common note with the given text onto a record.
// entityType is the singular record kind ("lead", "contact").
func (c *Client) CreateNote(ctx context.Context, entityType, entityID, text string) error {
	payload := []NoteRequest{
		{
			NoteType: "common",
			Params:   NoteParams{Text: text},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode note payload: %w", err)
	}

	endpoint := fmt.Sprintf("%ss/%s/notes", entityType, url.PathEscape(entityID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.makeURL(endpoint), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create note request: %w", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return fmt.Errorf("note request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("POST %s returned status %d: %s", endpoint, resp.StatusCode, string(data))
	}
	return nil
}

// ChatMessages returns up to limit chat messages for a lead, oldest first.
func (c *Client) ChatMessages(ctx context.Context, leadID string, limit int) ([]ChatMessage, error) {
	endpoint := fmt.Sprintf("leads/%s/chats/messages", url.PathEscape(leadID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.makeURL(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("create chat history request: %w", err)
	}

	q := req.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort", "created_at")
	req.URL.RawQuery = q.Encode()

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("chat history request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s returned status %d", endpoint, resp.StatusCode)
	}

	var payload ChatMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode chat history: %w", err)
	}
	return payload.Embedded.Messages, nil
}
