package placesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	nominatimName           = "nominatim"
	defaultNominatimBaseURL = "https://nominatim.openstreetmap.org"
	defaultNominatimLimit   = 5
	defaultNominatimTimeout = 10 * time.Second
)

// NominatimConfig configures the OpenStreetMap Nominatim backend.
type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Limit     int
	Timeout   time.Duration
	// RequestsPerSecond paces outgoing calls; zero or less disables pacing.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Nominatim is the primary backend, querying the OpenStreetMap search API.
type Nominatim struct {
	baseURL   string
	userAgent string
	limit     int
	client    *http.Client
	limiter   *rate.Limiter
}

// nominatimPlace is the wire format; coordinates arrive as strings.
type nominatimPlace struct {
	PlaceID     int64   `json:"place_id"`
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Importance  float64 `json:"importance"`
}

// NewNominatim creates the primary backend. A User-Agent is mandatory under the OSM usage policy.
func NewNominatim(cfg NominatimConfig) (*Nominatim, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, errors.New("nominatim: user agent is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultNominatimBaseURL
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultNominatimLimit
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultNominatimTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	pace := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		pace = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Nominatim{
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		limit:     limit,
		client:    client,
		limiter:   rate.NewLimiter(pace, 1),
	}, nil
}

// Name returns the backend identifier
func (n *Nominatim) Name() string {
	return nominatimName
}

// SearchPlaces runs a free-form Nominatim search.
func (n *Nominatim) SearchPlaces(ctx context.Context, query string) ([]Place, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, &BackendError{Backend: nominatimName, Err: err}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(n.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, &BackendError{Backend: nominatimName, Err: err}
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, &BackendError{Backend: nominatimName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &BackendError{
			Backend:    nominatimName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var raw []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &BackendError{Backend: nominatimName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		lat, _ := strconv.ParseFloat(r.Lat, 64)
		lon, _ := strconv.ParseFloat(r.Lon, 64)
		places = append(places, Place{
			PlaceID:     r.PlaceID,
			DisplayName: r.DisplayName,
			Name:        r.Name,
			Class:       r.Class,
			Type:        r.Type,
			Lat:         lat,
			Lon:         lon,
			Importance:  r.Importance,
		})
	}
	return places, nil
}

// Ping checks that the search endpoint answers.
func (n *Nominatim) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/status?format=json", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", n.userAgent)
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim status %d", resp.StatusCode)
	}
	return nil
}
