package placesearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	primarySource  = "OpenStreetMap"
	fallbackSource = "Tavily"
	noResults      = "no results"
)

// ErrUnknownCategory is returned for a category outside the fixed table.
var ErrUnknownCategory = errors.New("unknown category")

// Searcher runs the primary-then-secondary lookup for every category.
// It is safe for concurrent use; the only shared state is the injected backends.
type Searcher struct {
	primary         PrimaryBackend
	secondary       SecondaryBackend
	fallbackOnEmpty bool
	logger          *zap.Logger
	metrics         MetricsRecorder
}

// New creates a Searcher. Both backends are required.
func New(cfg Config) (*Searcher, error) {
	if cfg.Primary == nil {
		return nil, errors.New("placesearch: primary backend is required")
	}
	if cfg.Secondary == nil {
		return nil, errors.New("placesearch: secondary backend is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var metrics MetricsRecorder = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}
	return &Searcher{
		primary:         cfg.Primary,
		secondary:       cfg.Secondary,
		fallbackOnEmpty: cfg.FallbackOnEmpty,
		logger:          logger.With(zap.String("component", "placesearch")),
		metrics:         metrics,
	}, nil
}

// Search looks up places of the given category. The primary backend is tried first;
// the secondary backend is called at most once, and only when the primary fails
// (or returns nothing while FallbackOnEmpty is set). No retries are made.
func (s *Searcher) Search(ctx context.Context, category Category, place string) (*Result, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	places, primaryErr := s.searchPrimary(ctx, PrimaryQuery(category, place))
	if primaryErr == nil && (len(places) > 0 || !s.fallbackOnEmpty) {
		s.metrics.RecordSearch(string(category), "primary")
		return &Result{
			Category: category,
			Place:    place,
			Source:   s.primary.Name(),
			Text:     fmt.Sprintf("%s in %s from %s: %s", category.Label(), place, primarySource, formatPlaces(places)),
		}, nil
	}
	if primaryErr == nil {
		primaryErr = ErrNoPlaces
	}

	s.logger.Warn("primary search failed, falling back",
		zap.String("category", string(category)),
		zap.String("place", place),
		zap.String("backend", s.primary.Name()),
		zap.Error(primaryErr))

	answer, secondaryErr := s.askSecondary(ctx, SecondaryQuery(category, place))
	if secondaryErr != nil {
		s.metrics.RecordSearch(string(category), "failed")
		s.logger.Error("secondary search failed",
			zap.String("category", string(category)),
			zap.String("place", place),
			zap.String("backend", s.secondary.Name()),
			zap.Error(secondaryErr))
		return nil, &SearchError{
			Category:     category,
			Place:        place,
			PrimaryErr:   primaryErr,
			SecondaryErr: secondaryErr,
		}
	}

	s.metrics.RecordSearch(string(category), "fallback")
	return &Result{
		Category:     category,
		Place:        place,
		Source:       s.secondary.Name(),
		Fallback:     true,
		PrimaryError: primaryErr.Error(),
		Text: fmt.Sprintf("%s search failed due to %v.\nFallback %s results: %s",
			primarySource, primaryErr, fallbackSource, formatAnswer(answer)),
	}, nil
}

// SearchAttractions returns top tourist attractions for place.
func (s *Searcher) SearchAttractions(ctx context.Context, place string) (string, error) {
	return s.searchText(ctx, Attractions, place)
}

// SearchRestaurants returns restaurants and eateries for place.
func (s *Searcher) SearchRestaurants(ctx context.Context, place string) (string, error) {
	return s.searchText(ctx, Restaurants, place)
}

// SearchActivities returns popular activities for place.
func (s *Searcher) SearchActivities(ctx context.Context, place string) (string, error) {
	return s.searchText(ctx, Activities, place)
}

// SearchTransportation returns transportation options for place.
func (s *Searcher) SearchTransportation(ctx context.Context, place string) (string, error) {
	return s.searchText(ctx, Transportation, place)
}

// Backends returns the primary and secondary backend names.
func (s *Searcher) Backends() (primary, secondary string) {
	return s.primary.Name(), s.secondary.Name()
}

func (s *Searcher) searchText(ctx context.Context, category Category, place string) (string, error) {
	res, err := s.Search(ctx, category, place)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (s *Searcher) searchPrimary(ctx context.Context, query string) ([]Place, error) {
	start := time.Now()
	places, err := s.primary.SearchPlaces(ctx, query)
	s.metrics.RecordBackendCall(s.primary.Name(), time.Since(start), err)
	return places, err
}

func (s *Searcher) askSecondary(ctx context.Context, query string) (*Answer, error) {
	start := time.Now()
	answer, err := s.secondary.Answer(ctx, query)
	s.metrics.RecordBackendCall(s.secondary.Name(), time.Since(start), err)
	if err == nil && answer == nil {
		err = fmt.Errorf("%s returned an empty response", s.secondary.Name())
	}
	return answer, err
}

func formatPlaces(places []Place) string {
	if len(places) == 0 {
		return noResults
	}
	var b strings.Builder
	for i, p := range places {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, p.DisplayName)
		if p.Class != "" || p.Type != "" {
			fmt.Fprintf(&b, " (%s/%s)", p.Class, p.Type)
		}
		fmt.Fprintf(&b, " [%.5f, %.5f]", p.Lat, p.Lon)
	}
	return b.String()
}

// formatAnswer prefers the direct answer, then the raw results.
func formatAnswer(a *Answer) string {
	if a == nil {
		return noResults
	}
	if answer := strings.TrimSpace(a.Answer); answer != "" {
		return answer
	}
	if len(a.Results) == 0 {
		return noResults
	}
	var b strings.Builder
	for i, r := range a.Results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s (%s): %s", i+1, r.Title, r.URL, strings.TrimSpace(r.Content))
	}
	return b.String()
}
