package placesearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	tavilyName           = "tavily"
	defaultTavilyBaseURL = "https://api.tavily.com"
	defaultTavilyTimeout = 20 * time.Second
)

// ErrMissingAPIKey is returned by Tavily calls made without a key.
var ErrMissingAPIKey = errors.New("tavily API key is not configured")

// TavilyConfig configures the Tavily answer-search backend.
type TavilyConfig struct {
	BaseURL       string
	APIKey        string
	Topic         string
	IncludeAnswer string
	MaxResults    int
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Tavily is the secondary backend.
type Tavily struct {
	baseURL       string
	apiKey        string
	topic         string
	includeAnswer string
	maxResults    int
	client        *http.Client
}

type tavilyRequest struct {
	Query         string `json:"query"`
	Topic         string `json:"topic,omitempty"`
	IncludeAnswer string `json:"include_answer,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

// NewTavily creates the secondary backend. A missing key is not an error here;
// calls fail instead, so the service can still start and serve primary results.
func NewTavily(cfg TavilyConfig) *Tavily {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTavilyBaseURL
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "general"
	}
	includeAnswer := cfg.IncludeAnswer
	if includeAnswer == "" {
		includeAnswer = "advanced"
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTavilyTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Tavily{
		baseURL:       baseURL,
		apiKey:        cfg.APIKey,
		topic:         topic,
		includeAnswer: includeAnswer,
		maxResults:    cfg.MaxResults,
		client:        client,
	}
}

// Name returns the backend identifier
func (t *Tavily) Name() string {
	return tavilyName
}

// Configured reports whether an API key is set.
func (t *Tavily) Configured() bool {
	return t.apiKey != ""
}

// Answer asks Tavily for a direct answer to query.
func (t *Tavily) Answer(ctx context.Context, query string) (*Answer, error) {
	if t.apiKey == "" {
		return nil, &BackendError{Backend: tavilyName, Err: ErrMissingAPIKey}
	}

	body, err := json.Marshal(tavilyRequest{
		Query:         query,
		Topic:         t.topic,
		IncludeAnswer: t.includeAnswer,
		MaxResults:    t.maxResults,
	})
	if err != nil {
		return nil, &BackendError{Backend: tavilyName, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, &BackendError{Backend: tavilyName, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &BackendError{Backend: tavilyName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &BackendError{
			Backend:    tavilyName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(msg))),
		}
	}

	var answer Answer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, &BackendError{Backend: tavilyName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return &answer, nil
}
