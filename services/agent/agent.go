package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/travel-agent/internal/observability"
	"github.com/upb/travel-agent/services/providers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxIterations = 10
	defaultToolParallel  = 4

	statusSuccess       = "success"
	statusError         = "error"
	statusMaxIterations = "max_iterations"
)

var (
	// ErrEmptyHistory is returned when Run is called without messages
	ErrEmptyHistory = errors.New("conversation history is empty")

	// ErrMaxIterations is returned when the model keeps calling tools past the limit
	ErrMaxIterations = errors.New("maximum agent iterations reached")

	// ErrNoChoices is returned when the provider answers without a choice
	ErrNoChoices = errors.New("provider returned no choices")
)

// Metrics receives agent measurements. *observability.Metrics implements it.
type Metrics interface {
	RecordAgentRun(status string, duration time.Duration)
	RecordToolCall(tool string, err error)
	RecordLLMRequest(provider, model, status string, promptTokens, completionTokens int)
}

// Config holds agent dependencies and settings
type Config struct {
	Provider      providers.Provider
	Tools         *ToolRegistry
	Model         string
	SystemPrompt  string
	Temperature   float64
	MaxTokens     int
	MaxIterations int
	// ToolParallelism bounds concurrent tool executions within one turn
	ToolParallelism int
	Logger          *zap.Logger
	Metrics         Metrics
}

// Agent drives a tool-calling conversation with one provider.
type Agent struct {
	provider        providers.Provider
	tools           *ToolRegistry
	model           string
	systemPrompt    string
	temperature     float64
	maxTokens       int
	maxIterations   int
	toolParallelism int
	logger          *zap.Logger
	metrics         Metrics
}

// ToolCallRecord describes one executed tool call
type ToolCallRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Output    string          `json:"output"`
	Error     string          `json:"error,omitempty"`
}

// RunResult is the outcome of a successful run
type RunResult struct {
	RunID      uuid.UUID        `json:"run_id"`
	Answer     string           `json:"answer"`
	Iterations int              `json:"iterations"`
	ToolCalls  []ToolCallRecord `json:"tool_calls"`
	Usage      providers.Usage  `json:"usage"`
	Duration   time.Duration    `json:"duration"`
}

// New creates an agent. A provider, tool registry and model are required.
func New(cfg Config) (*Agent, error) {
	if cfg.Provider == nil {
		return nil, errors.New("agent: provider is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("agent: model is required")
	}
	tools := cfg.Tools
	if tools == nil {
		tools, _ = NewToolRegistry()
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	parallel := cfg.ToolParallelism
	if parallel <= 0 {
		parallel = defaultToolParallel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var metrics Metrics = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &Agent{
		provider:        cfg.Provider,
		tools:           tools,
		model:           cfg.Model,
		systemPrompt:    cfg.SystemPrompt,
		temperature:     cfg.Temperature,
		maxTokens:       cfg.MaxTokens,
		maxIterations:   maxIterations,
		toolParallelism: parallel,
		logger:          logger,
		metrics:         metrics,
	}, nil
}

// Tools returns the registry the agent advertises to the model
func (a *Agent) Tools() *ToolRegistry {
	return a.tools
}

// Provider returns the underlying provider
func (a *Agent) Provider() providers.Provider {
	return a.provider
}

// Model returns the configured model name
func (a *Agent) Model() string {
	return a.model
}

// Run answers the conversation. Each history entry is sent verbatim as a user
// message. The loop ends when the model replies without tool calls.
func (a *Agent) Run(ctx context.Context, history []string) (*RunResult, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	result := &RunResult{RunID: uuid.New()}
	start := time.Now()
	logger := observability.FromContext(ctx, a.logger).With(zap.String("run_id", result.RunID.String()))

	logger.Info("starting agent run",
		zap.Int("history", len(history)),
		zap.String("provider", a.provider.Name()),
		zap.String("model", a.model))

	messages := a.buildConversation(history)
	defs := a.tools.Definitions()

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		result.Iterations = iteration

		logger.Debug("requesting completion", zap.Int("iteration", iteration), zap.Int("messages", len(messages)))
		resp, err := a.complete(ctx, messages, defs)
		if err != nil {
			a.metrics.RecordAgentRun(statusError, time.Since(start))
			logger.Error("chat completion failed", zap.Int("iteration", iteration), zap.Error(err))
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		result.Usage.PromptTokens += resp.Usage.PromptTokens
		result.Usage.CompletionTokens += resp.Usage.CompletionTokens
		result.Usage.TotalTokens += resp.Usage.TotalTokens

		if len(resp.Choices) == 0 {
			a.metrics.RecordAgentRun(statusError, time.Since(start))
			return nil, ErrNoChoices
		}
		reply := resp.Choices[0].Message

		if len(reply.ToolCalls) == 0 {
			result.Answer = reply.Content
			result.Duration = time.Since(start)
			a.metrics.RecordAgentRun(statusSuccess, result.Duration)
			logger.Info("agent run completed",
				zap.Int("iterations", iteration),
				zap.Int("tool_calls", len(result.ToolCalls)),
				zap.Int("tokens", result.Usage.TotalTokens),
				zap.Duration("duration", result.Duration))
			return result, nil
		}

		messages = append(messages, providers.Message{
			Role:      providers.RoleAssistant,
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		})

		records, err := a.executeToolCalls(ctx, logger, reply.ToolCalls)
		if err != nil {
			a.metrics.RecordAgentRun(statusError, time.Since(start))
			return nil, err
		}
		for _, rec := range records {
			messages = append(messages, providers.Message{
				Role:       providers.RoleTool,
				Content:    rec.Output,
				ToolCallID: rec.ID,
			})
		}
		result.ToolCalls = append(result.ToolCalls, records...)
	}

	a.metrics.RecordAgentRun(statusMaxIterations, time.Since(start))
	logger.Warn("agent run hit iteration limit", zap.Int("max_iterations", a.maxIterations))
	return nil, fmt.Errorf("%w (%d)", ErrMaxIterations, a.maxIterations)
}

func (a *Agent) buildConversation(history []string) []providers.Message {
	messages := make([]providers.Message, 0, len(history)+1)
	if a.systemPrompt != "" {
		messages = append(messages, providers.Message{Role: providers.RoleSystem, Content: a.systemPrompt})
	}
	for _, h := range history {
		messages = append(messages, providers.Message{Role: providers.RoleUser, Content: h})
	}
	return messages
}

func (a *Agent) complete(ctx context.Context, messages []providers.Message, defs []providers.ToolDefinition) (*providers.ChatResponse, error) {
	resp, err := a.provider.ChatCompletion(ctx, &providers.ChatRequest{
		Model:       a.model,
		Messages:    messages,
		Tools:       defs,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		a.metrics.RecordLLMRequest(a.provider.Name(), a.model, statusError, 0, 0)
		return nil, err
	}
	a.metrics.RecordLLMRequest(a.provider.Name(), a.model, statusSuccess, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

// executeToolCalls runs one turn's calls concurrently. Records keep call order.
func (a *Agent) executeToolCalls(ctx context.Context, logger *zap.Logger, calls []providers.ToolCall) ([]ToolCallRecord, error) {
	records := make([]ToolCallRecord, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.toolParallelism)
	for i, call := range calls {
		g.Go(func() error {
			records[i] = a.executeToolCall(gctx, logger, call)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *Agent) executeToolCall(ctx context.Context, logger *zap.Logger, call providers.ToolCall) ToolCallRecord {
	rec := ToolCallRecord{ID: call.ID, Name: call.Name, Arguments: call.Arguments}

	tool, err := a.tools.Get(call.Name)
	if err == nil {
		start := time.Now()
		rec.Output, err = tool.Execute(ctx, call.Arguments)
		logger.Debug("tool executed",
			zap.String("tool", call.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}
	a.metrics.RecordToolCall(call.Name, err)

	if err != nil {
		logger.Warn("tool call failed", zap.String("tool", call.Name), zap.Error(err))
		rec.Error = err.Error()
		rec.Output = "Error: " + err.Error()
	}
	return rec
}

type noopMetrics struct{}

func (noopMetrics) RecordAgentRun(string, time.Duration) {}

func (noopMetrics) RecordToolCall(string, error) {}

func (noopMetrics) RecordLLMRequest(string, string, string, int, int) {}
