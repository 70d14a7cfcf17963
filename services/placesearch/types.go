package placesearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Place is a single match returned by the primary (OpenStreetMap) backend.
type Place struct {
	PlaceID     int64   `json:"place_id"`
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Importance  float64 `json:"importance"`
}

// AnswerResult is one raw web result returned by the secondary backend.
type AnswerResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Answer is the secondary backend response: a direct answer plus the raw results it was built from.
type Answer struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer"`
	Results []AnswerResult `json:"results"`
}

// Result is the outcome of one capability call.
type Result struct {
	Category Category
	Place    string
	// Source is the name of the backend that produced Text.
	Source   string
	Fallback bool
	// PrimaryError is the primary failure that triggered the fallback, if any.
	PrimaryError string
	Text         string
}

// PrimaryBackend performs structured place lookups.
type PrimaryBackend interface {
	Name() string
	SearchPlaces(ctx context.Context, query string) ([]Place, error)
}

// SecondaryBackend answers free-text questions.
type SecondaryBackend interface {
	Name() string
	Answer(ctx context.Context, query string) (*Answer, error)
}

// MetricsRecorder receives search outcomes and backend timings.
type MetricsRecorder interface {
	RecordSearch(category, outcome string)
	RecordBackendCall(backend string, duration time.Duration, err error)
}

// Config holds everything the Searcher needs. Nothing is read from the environment.
type Config struct {
	Primary   PrimaryBackend
	Secondary SecondaryBackend
	// FallbackOnEmpty makes an empty primary result trigger the secondary backend.
	FallbackOnEmpty bool
	Logger          *zap.Logger
	Metrics         MetricsRecorder
}

// ErrNoPlaces is the primary error reported when the primary backend returns nothing
// and FallbackOnEmpty is set.
var ErrNoPlaces = errors.New("no places found")

// BackendError describes a failed call to one search backend.
type BackendError struct {
	Backend    string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d: %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// SearchError is returned when both backends fail for one call.
type SearchError struct {
	Category     Category
	Place        string
	PrimaryErr   error
	SecondaryErr error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s search for %q failed: primary: %v; secondary: %v",
		e.Category, e.Place, e.PrimaryErr, e.SecondaryErr)
}

// Unwrap exposes both causes to errors.Is and errors.As.
func (e *SearchError) Unwrap() []error {
	return []error{e.PrimaryErr, e.SecondaryErr}
}

type noopMetrics struct{}

func (noopMetrics) RecordSearch(string, string)                    {}
func (noopMetrics) RecordBackendCall(string, time.Duration, error) {}
