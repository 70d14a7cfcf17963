package query

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/upb/travel-agent/internal/observability"
	"github.com/upb/travel-agent/services"
	"github.com/upb/travel-agent/services/agent"
	"github.com/upb/travel-agent/services/placesearch"
	"github.com/upb/travel-agent/services/providers"
	"github.com/upb/travel-agent/utils"
	"go.uber.org/zap"
)

// Service answers travel queries through the agent and exposes direct searches
type Service struct {
	runner   Runner
	searcher Searcher
	timeout  time.Duration
	logger   *zap.Logger
}

// NewService creates a new query service. A zero timeout leaves the caller's deadline alone.
func NewService(runner Runner, searcher Searcher, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runner:   runner,
		searcher: searcher,
		timeout:  timeout,
		logger:   logger,
	}
}

// Answer runs the agent over the conversation and returns its final message
func (s *Service) Answer(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, services.ErrEmptyHistory
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := observability.FromContext(ctx, s.logger)
	logger.Debug("answering query", zap.Int("messages", len(req.Messages)))

	result, err := s.runner.Run(ctx, req.Messages)
	if err != nil {
		mapped := mapError(ctx, err)
		logger.Warn("query failed",
			zap.String("error_type", string(services.GetErrorType(mapped))),
			zap.Error(err))
		return nil, mapped
	}

	return &Response{
		Answer:     result.Answer,
		RunID:      result.RunID.String(),
		Iterations: result.Iterations,
		ToolCalls:  len(result.ToolCalls),
		Tokens:     result.Usage.TotalTokens,
		Duration:   result.Duration,
	}, nil
}

// Search runs one category search without the agent
func (s *Service) Search(ctx context.Context, category, place string) (*placesearch.Result, error) {
	c, err := placesearch.ParseCategory(category)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrUnknownCategory.Message, err).
			WithDetail("category", category).
			WithDetail("allowed", placesearch.Categories())
	}
	if err := utils.ValidateRequired(place, "place"); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, err.Error(), nil)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.searcher.Search(ctx, c, place)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return res, nil
}

// mapError translates agent, provider and search failures into domain errors
func mapError(ctx context.Context, err error) error {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	var searchErr *placesearch.SearchError
	var provErr *providers.ProviderError

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return services.NewDomainError(services.ErrorTypeTimeout, services.ErrAgentTimeout.Message, err)

	case errors.Is(err, context.Canceled):
		return services.WrapInternal("request cancelled", err)

	case errors.Is(err, agent.ErrEmptyHistory):
		return services.NewDomainError(services.ErrorTypeValidation, services.ErrEmptyHistory.Message, err)

	case errors.Is(err, agent.ErrMaxIterations):
		return services.NewDomainError(services.ErrorTypeInternal, services.ErrMaxIterations.Message, err)

	case errors.Is(err, agent.ErrNoChoices):
		return services.NewDomainError(services.ErrorTypeInternal, services.ErrNoFinalAnswer.Message, err)

	case errors.As(err, &searchErr):
		return services.NewDomainError(services.ErrorTypeExternal, services.ErrSearchFailed.Message, err).
			WithDetail("category", string(searchErr.Category)).
			WithDetail("primary_error", searchErr.PrimaryErr.Error()).
			WithDetail("secondary_error", searchErr.SecondaryErr.Error())

	case errors.As(err, &provErr):
		message := services.ErrProviderError.Message
		if provErr.StatusCode == http.StatusTooManyRequests {
			message = services.ErrProviderRateLimit.Message
		}
		return services.NewDomainError(services.ErrorTypeExternal, message, err).
			WithDetail("provider", provErr.Provider).
			WithDetail("status", provErr.StatusCode)

	default:
		return services.WrapInternal("query failed", err)
	}
}
