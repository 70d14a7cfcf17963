package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/travel-agent/middleware"
	"github.com/upb/travel-agent/services/placesearch"
	"github.com/upb/travel-agent/services/query"
	"github.com/upb/travel-agent/utils"
	"go.uber.org/zap"
)

// maxQueryBodyBytes bounds the chat history a client may post
const maxQueryBodyBytes = 1 << 20

// RunIDHeader carries the agent run id of a /query response
const RunIDHeader = "X-Run-ID"

// QueryRequest is the body of POST /query
type QueryRequest struct {
	Messages []string `json:"messages" validate:"required,min=1"`
}

// QueryResponse is the body of a successful POST /query
type QueryResponse struct {
	Answer string `json:"answer"`
}

// SearchResponse is the data of a successful category search
type SearchResponse struct {
	Category     string `json:"category"`
	Place        string `json:"place"`
	Source       string `json:"source"`
	Fallback     bool   `json:"fallback"`
	PrimaryError string `json:"primary_error,omitempty"`
	Text         string `json:"text"`
}

// QueryService defines the operations behind the query endpoints
type QueryService interface {
	// Answer runs the travel agent over the conversation history
	Answer(ctx context.Context, req query.Request) (*query.Response, error)

	// Search runs one category search through the fallback chain
	Search(ctx context.Context, category, place string) (*placesearch.Result, error)
}

// QueryHandler handles the travel agent HTTP requests
type QueryHandler struct {
	service QueryService
	logger  *zap.Logger
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(service QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		service: service,
		logger:  logger,
	}
}

// HandleQuery handles POST /query
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.service.Answer(ctx, query.Request{
		Messages:  req.Messages,
		RequestID: requestID,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("query answered",
		zap.String("request_id", requestID),
		zap.String("run_id", result.RunID),
		zap.Int("messages", len(req.Messages)),
		zap.Int("iterations", result.Iterations),
		zap.Int("tool_calls", result.ToolCalls),
		zap.Int("tokens", result.Tokens),
		zap.Duration("duration", result.Duration))

	if result.RunID != "" {
		w.Header().Set(RunIDHeader, result.RunID)
	}
	if err := utils.WriteJSON(w, http.StatusOK, QueryResponse{Answer: result.Answer}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleSearch handles GET /api/v1/search/{category}?place=...
func (h *QueryHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	place := r.URL.Query().Get("place")

	result, err := h.service.Search(r.Context(), category, place)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("search completed",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("category", string(result.Category)),
		zap.String("source", result.Source),
		zap.Bool("fallback", result.Fallback))

	if err := utils.WriteOK(w, SearchResponse{
		Category:     string(result.Category),
		Place:        result.Place,
		Source:       result.Source,
		Fallback:     result.Fallback,
		PrimaryError: result.PrimaryError,
		Text:         result.Text,
	}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
