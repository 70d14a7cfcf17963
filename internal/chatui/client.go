package chatui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed response is shown to the user
const maxErrorBody = 4 << 10

// ResponseError is returned when the API answers with a non-200 status
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return "Bot failed to respond: " + e.Body
}

// Client posts conversation history to the travel agent API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type queryRequest struct {
	Messages []string `json:"messages"`
}

type queryResponse struct {
	Answer *string `json:"answer"`
}

// NewClient creates a client for the API at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ask sends the full history to POST /query and returns the answer
func (c *Client) Ask(ctx context.Context, history []string) (string, error) {
	body, err := json.Marshal(queryRequest{Messages: history})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("the response failed due to %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &ResponseError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Answer == nil {
		return "No answer returned.", nil
	}
	return *out.Answer, nil
}
