package query

import (
	"context"
	"time"

	"github.com/upb/travel-agent/services/agent"
	"github.com/upb/travel-agent/services/placesearch"
)

// Runner runs the agent over a conversation
type Runner interface {
	Run(ctx context.Context, history []string) (*agent.RunResult, error)
}

// Searcher runs a single category search
type Searcher interface {
	Search(ctx context.Context, category placesearch.Category, place string) (*placesearch.Result, error)
}

// Request is a query from the chat client. Messages are the conversation
// history, oldest first, each formatted by the client (e.g. "User: ...").
type Request struct {
	Messages  []string
	RequestID string
}

// Response is the agent answer plus run bookkeeping
type Response struct {
	Answer     string        `json:"answer"`
	RunID      string        `json:"run_id"`
	Iterations int           `json:"iterations"`
	ToolCalls  int           `json:"tool_calls"`
	Tokens     int           `json:"tokens"`
	Duration   time.Duration `json:"duration"`
}
