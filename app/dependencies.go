package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/travel-agent/config"
	"github.com/upb/travel-agent/internal/observability"
	"github.com/upb/travel-agent/middleware"
	"github.com/upb/travel-agent/repositories/postgres"
	"github.com/upb/travel-agent/services/agent"
	"github.com/upb/travel-agent/services/placesearch"
	"github.com/upb/travel-agent/services/providers"
	"github.com/upb/travel-agent/services/providers/openai"
	"github.com/upb/travel-agent/services/query"
	"github.com/upb/travel-agent/services/ratelimit"
	"go.uber.org/zap"
)

// Version is reported by the status endpoint
const Version = "0.1.0"

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB // nil unless DATABASE_URL is set
	Logger  *zap.Logger
	Metrics *observability.Metrics // nil when metrics are disabled

	// LLM
	ProviderRegistry *providers.Registry
	Provider         providers.Provider

	// Place search
	Nominatim *placesearch.Nominatim
	Tavily    *placesearch.Tavily
	Breaker   *placesearch.BreakerBackend // nil unless the breaker is enabled
	Searcher  *placesearch.Searcher

	// Agent
	Tools        *agent.ToolRegistry
	Agent        *agent.Agent
	QueryService *query.Service

	// Rate limiting
	RateLimiter         *ratelimit.RateLimitService
	RateLimitMiddleware *middleware.RateLimitMiddleware

	stopWorkers context.CancelFunc
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewMetrics()
	}

	// Optional PostgreSQL for the shared rate limit store
	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initProviders(cfg); err != nil {
		deps.closeDB()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initSearch(cfg); err != nil {
		deps.closeDB()
		return nil, fmt.Errorf("failed to initialize place search: %w", err)
	}

	if err := deps.initAgent(cfg); err != nil {
		deps.closeDB()
		return nil, fmt.Errorf("failed to initialize agent: %w", err)
	}

	if err := deps.initRateLimit(cfg); err != nil {
		deps.closeDB()
		return nil, fmt.Errorf("failed to initialize rate limiting: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase connects to PostgreSQL when configured and prepares the schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		d.Logger.Info("no database configured, rate limits kept in memory")
		return nil
	}

	db, err := postgres.NewDB(*cfg.Database, d.Logger)
	if err != nil {
		return err
	}

	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return err
	}

	d.DB = db
	return nil
}

// initProviders registers the configured OpenAI-compatible provider
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry, err := NewProviderRegistry(cfg.Agent, d.Logger)
	if err != nil {
		return err
	}

	provider, err := registry.GetProviderForModel(cfg.Agent.Model)
	if err != nil {
		return fmt.Errorf("no provider for model %s: %w", cfg.Agent.Model, err)
	}

	d.ProviderRegistry = registry
	d.Provider = provider
	return nil
}

// NewProviderRegistry builds a registry holding the provider described by cfg
func NewProviderRegistry(cfg config.AgentConfig, logger *zap.Logger) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	pcfg := providers.DefaultProviderConfig()
	pcfg.Name = cfg.Provider
	pcfg.APIKey = cfg.APIKey
	pcfg.BaseURL = cfg.BaseURL
	pcfg.Models = []string{cfg.Model}
	pcfg.Timeout = cfg.Timeout
	pcfg.MaxRetries = cfg.MaxRetries

	if err := registry.RegisterProvider(openai.NewOpenAIAdapter(pcfg)); err != nil {
		return nil, err
	}

	if cfg.APIKey == "" {
		logger.Warn("no API key configured for LLM provider", zap.String("provider", cfg.Provider))
	}
	logger.Info("registered LLM provider",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.String("base_url", cfg.BaseURL))

	return registry, nil
}

// initSearch builds the Nominatim and Tavily backends and the fallback searcher
func (d *Dependencies) initSearch(cfg *config.Config) error {
	nominatim, err := placesearch.NewNominatim(placesearch.NominatimConfig{
		BaseURL:           cfg.Search.Nominatim.BaseURL,
		UserAgent:         cfg.Search.Nominatim.UserAgent,
		Limit:             cfg.Search.Nominatim.Limit,
		Timeout:           cfg.Search.Nominatim.Timeout,
		RequestsPerSecond: cfg.Search.Nominatim.RequestsPerSecond,
	})
	if err != nil {
		return err
	}

	tavily := placesearch.NewTavily(placesearch.TavilyConfig{
		BaseURL:       cfg.Search.Tavily.BaseURL,
		APIKey:        cfg.Search.Tavily.APIKey,
		Topic:         cfg.Search.Tavily.Topic,
		IncludeAnswer: cfg.Search.Tavily.IncludeAnswer,
		MaxResults:    cfg.Search.Tavily.MaxResults,
		Timeout:       cfg.Search.Tavily.Timeout,
	})
	if !tavily.Configured() {
		d.Logger.Warn("TAVILY_API_KEY not set, fallback searches will fail")
	}

	var primary placesearch.PrimaryBackend = nominatim
	if cfg.Search.Breaker.Enabled {
		d.Breaker = placesearch.NewBreakerBackend(nominatim, placesearch.BreakerConfig{
			MaxFailures: uint32(cfg.Search.Breaker.MaxFailures),
			Timeout:     cfg.Search.Breaker.Timeout,
			Interval:    cfg.Search.Breaker.Interval,
		}, d.Logger)
		primary = d.Breaker
	}

	var metrics placesearch.MetricsRecorder
	if d.Metrics != nil {
		metrics = d.Metrics
	}

	searcher, err := placesearch.New(placesearch.Config{
		Primary:         primary,
		Secondary:       tavily,
		FallbackOnEmpty: cfg.Search.FallbackOnEmpty,
		Logger:          d.Logger,
		Metrics:         metrics,
	})
	if err != nil {
		return err
	}

	d.Nominatim = nominatim
	d.Tavily = tavily
	d.Searcher = searcher
	return nil
}

// initAgent registers the search tools and builds the agent and query service
func (d *Dependencies) initAgent(cfg *config.Config) error {
	tools, err := agent.NewToolRegistry()
	if err != nil {
		return err
	}
	for _, t := range d.Searcher.Tools() {
		if err := tools.Register(t); err != nil {
			return err
		}
	}

	var metrics agent.Metrics
	if d.Metrics != nil {
		metrics = d.Metrics
	}

	a, err := agent.New(agent.Config{
		Provider:      d.Provider,
		Tools:         tools,
		Model:         cfg.Agent.Model,
		SystemPrompt:  cfg.Agent.SystemPrompt,
		Temperature:   cfg.Agent.Temperature,
		MaxIterations: cfg.Agent.MaxIterations,
		Logger:        d.Logger,
		Metrics:       metrics,
	})
	if err != nil {
		return err
	}

	d.Tools = tools
	d.Agent = a
	d.QueryService = query.NewService(a, d.Searcher, cfg.Server.RequestTimeout, d.Logger)

	d.Logger.Info("agent initialized",
		zap.Strings("tools", tools.Names()),
		zap.Int("max_iterations", cfg.Agent.MaxIterations))
	return nil
}

// initRateLimit picks the Postgres or in-memory store and starts its cleanup worker
func (d *Dependencies) initRateLimit(cfg *config.Config) error {
	if !cfg.RateLimit.Enabled {
		d.Logger.Info("rate limiting disabled")
		return nil
	}

	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if d.DB != nil {
		store = ratelimit.NewPostgresStore(d.DB.DB)
	}

	limiter, err := ratelimit.NewRateLimitService(store, cfg.RateLimit.RequestsPerMinute, time.Minute, d.Logger)
	if err != nil {
		return err
	}

	var recorder middleware.RejectionRecorder
	if d.Metrics != nil {
		recorder = d.Metrics
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	d.stopWorkers = cancel
	go limiter.StartCleanupWorker(workerCtx, cfg.RateLimit.CleanupInterval)

	d.RateLimiter = limiter
	d.RateLimitMiddleware = middleware.NewRateLimitMiddleware(limiter, recorder, d.Logger)
	return nil
}

func (d *Dependencies) closeDB() {
	if d.DB != nil {
		_ = d.DB.Close()
		d.DB = nil
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	if d.stopWorkers != nil {
		d.stopWorkers()
	}

	var errs []error
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
