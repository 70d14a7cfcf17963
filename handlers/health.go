package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/upb/travel-agent/app"
	"github.com/upb/travel-agent/utils"
)

var (
	errProviderUnavailable = errors.New("provider unavailable")
	errTavilyNotConfigured = errors.New("api key not configured")
)

// NewDependencyHealthHandler builds a HealthHandler whose readiness probe
// covers the LLM provider, both search backends and the database when present
func NewDependencyHealthHandler(deps *app.Dependencies) *HealthHandler {
	h := NewHealthHandler(deps.Logger)

	if deps.Provider != nil {
		provider := deps.Provider
		h.WithCheck("provider", func(ctx context.Context) error {
			if !provider.IsAvailable(ctx) {
				return errProviderUnavailable
			}
			return nil
		})
	}
	if deps.Nominatim != nil {
		h.WithCheck("nominatim", deps.Nominatim.Ping)
	}
	if deps.Tavily != nil {
		tavily := deps.Tavily
		h.WithCheck("tavily", func(context.Context) error {
			if !tavily.Configured() {
				return errTavilyNotConfigured
			}
			return nil
		})
	}
	if deps.DB != nil {
		h.WithCheck("database", deps.DB.HealthCheck)
	}

	return h
}

// StatusResponse describes the running service
type StatusResponse struct {
	Version      string   `json:"version"`
	Environment  string   `json:"environment"`
	Providers    []string `json:"providers"`
	Model        string   `json:"model"`
	Tools        []string `json:"tools"`
	Primary      string   `json:"primary_backend"`
	Secondary    string   `json:"secondary_backend"`
	BreakerState string   `json:"breaker_state,omitempty"`
	RateLimit    int      `json:"rate_limit_per_minute,omitempty"`
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := StatusResponse{
			Version:     app.Version,
			Environment: deps.Config.Environment,
			Model:       deps.Config.Agent.Model,
			Providers:   []string{},
			Tools:       []string{},
		}

		if deps.ProviderRegistry != nil {
			response.Providers = deps.ProviderRegistry.ListProviders()
		}
		if deps.Tools != nil {
			response.Tools = deps.Tools.Names()
		}
		if deps.Searcher != nil {
			response.Primary, response.Secondary = deps.Searcher.Backends()
		}
		if deps.Breaker != nil {
			response.BreakerState = deps.Breaker.State().String()
		}
		if deps.RateLimiter != nil {
			response.RateLimit = deps.RateLimiter.Limit()
		}

		_ = utils.WriteJSON(w, http.StatusOK, response)
	}
}
