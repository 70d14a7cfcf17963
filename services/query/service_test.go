package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/travel-agent/services"
	"github.com/upb/travel-agent/services/agent"
	"github.com/upb/travel-agent/services/placesearch"
	"github.com/upb/travel-agent/services/providers"
	"go.uber.org/zap"
)

// MockRunner is a mock implementation of Runner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, history []string) (*agent.RunResult, error) {
	args := m.Called(ctx, history)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.RunResult), args.Error(1)
}

// MockSearcher is a mock implementation of Searcher
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, category placesearch.Category, place string) (*placesearch.Result, error) {
	args := m.Called(ctx, category, place)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*placesearch.Result), args.Error(1)
}

func TestService_Answer(t *testing.T) {
	logger := zap.NewNop()
	history := []string{"User: 3 days in Goa"}

	t.Run("success", func(t *testing.T) {
		runner := new(MockRunner)
		runID := uuid.New()
		runner.On("Run", mock.Anything, history).Return(&agent.RunResult{
			RunID:      runID,
			Answer:     "Day 1: Calangute",
			Iterations: 2,
			ToolCalls:  []agent.ToolCallRecord{{Name: "search_attractions"}},
			Usage:      providers.Usage{TotalTokens: 42},
		}, nil)

		svc := NewService(runner, nil, time.Minute, logger)
		resp, err := svc.Answer(context.Background(), Request{Messages: history})

		require.NoError(t, err)
		assert.Equal(t, "Day 1: Calangute", resp.Answer)
		assert.Equal(t, runID.String(), resp.RunID)
		assert.Equal(t, 1, resp.ToolCalls)
		assert.Equal(t, 42, resp.Tokens)
		runner.AssertExpectations(t)
	})

	t.Run("empty history", func(t *testing.T) {
		runner := new(MockRunner)
		svc := NewService(runner, nil, 0, logger)

		_, err := svc.Answer(context.Background(), Request{})
		assert.True(t, services.IsValidationError(err))
		runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("blank entries reach the agent unchanged", func(t *testing.T) {
		runner := new(MockRunner)
		raw := []string{"User: hi", "  "}
		runner.On("Run", mock.Anything, raw).Return(&agent.RunResult{RunID: uuid.New(), Answer: "Hello"}, nil)

		svc := NewService(runner, nil, 0, logger)
		resp, err := svc.Answer(context.Background(), Request{Messages: raw})

		require.NoError(t, err)
		assert.Equal(t, "Hello", resp.Answer)
		runner.AssertExpectations(t)
	})

	t.Run("applies timeout", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Run", mock.Anything, history).Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).Return(nil, context.DeadlineExceeded)

		svc := NewService(runner, nil, 10*time.Millisecond, logger)
		_, err := svc.Answer(context.Background(), Request{Messages: history})

		assert.True(t, services.IsTimeoutError(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestMapError(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		err      error
		wantType services.ErrorType
	}{
		{"max iterations", fmt.Errorf("%w (10)", agent.ErrMaxIterations), services.ErrorTypeInternal},
		{"no choices", agent.ErrNoChoices, services.ErrorTypeInternal},
		{"empty history", agent.ErrEmptyHistory, services.ErrorTypeValidation},
		{"provider error", fmt.Errorf("chat completion: %w", providers.NewProviderError("groq", "server_error", "boom", 500, true, nil)), services.ErrorTypeExternal},
		{"provider rate limit", providers.NewProviderError("groq", "rate_limit", "slow down", 429, true, nil), services.ErrorTypeExternal},
		{"deadline", fmt.Errorf("chat completion: %w", context.DeadlineExceeded), services.ErrorTypeTimeout},
		{"cancelled", context.Canceled, services.ErrorTypeInternal},
		{"domain passthrough", services.ErrRateLimitExceeded, services.ErrorTypeRateLimit},
		{"unknown", errors.New("boom"), services.ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(ctx, tt.err)
			assert.Equal(t, tt.wantType, services.GetErrorType(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	rateLimited := mapError(ctx, providers.NewProviderError("groq", "rate_limit", "slow down", 429, true, nil))
	var domainErr *services.DomainError
	require.True(t, errors.As(rateLimited, &domainErr))
	assert.Equal(t, services.ErrProviderRateLimit.Message, domainErr.Message)
	assert.Equal(t, "groq", domainErr.Details["provider"])
}

func TestService_Search(t *testing.T) {
	logger := zap.NewNop()

	t.Run("success", func(t *testing.T) {
		searcher := new(MockSearcher)
		want := &placesearch.Result{Category: placesearch.Restaurants, Place: "Goa", Text: "Restaurants in Goa"}
		searcher.On("Search", mock.Anything, placesearch.Restaurants, "  Goa ").Return(want, nil)

		svc := NewService(nil, searcher, time.Second, logger)
		got, err := svc.Search(context.Background(), "restaurants", "  Goa ")

		require.NoError(t, err)
		assert.Equal(t, want, got)
		searcher.AssertExpectations(t)
	})

	t.Run("unknown category", func(t *testing.T) {
		searcher := new(MockSearcher)
		svc := NewService(nil, searcher, 0, logger)

		_, err := svc.Search(context.Background(), "hotels", "Goa")
		assert.True(t, services.IsValidationError(err))
		searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing place", func(t *testing.T) {
		svc := NewService(nil, new(MockSearcher), 0, logger)

		_, err := svc.Search(context.Background(), "attractions", " ")
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("both backends failed", func(t *testing.T) {
		searcher := new(MockSearcher)
		searchErr := &placesearch.SearchError{
			Category:     placesearch.Activities,
			Place:        "Goa",
			PrimaryErr:   errors.New("nominatim down"),
			SecondaryErr: errors.New("tavily down"),
		}
		searcher.On("Search", mock.Anything, placesearch.Activities, "Goa").Return(nil, searchErr)

		svc := NewService(nil, searcher, 0, logger)
		_, err := svc.Search(context.Background(), "activities", "Goa")

		require.True(t, services.IsExternalError(err))
		details := services.GetErrorDetails(err)
		assert.Equal(t, "nominatim down", details["primary_error"])
		assert.Equal(t, "tavily down", details["secondary_error"])
	})
}
