package placesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var placeSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "place": {"type": "string", "description": "City, region or country to search, e.g. \"Goa\""}
  },
  "required": ["place"]
}`)

// ErrInvalidArguments is returned when a tool call carries unusable arguments.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// Tool exposes one search capability to the agent.
type Tool struct {
	category Category
	searcher *Searcher
}

type toolArgs struct {
	Place string `json:"place"`
}

// Tools returns one tool per category, in table order.
func (s *Searcher) Tools() []*Tool {
	tools := make([]*Tool, 0, len(categoryTable))
	for _, c := range Categories() {
		tools = append(tools, &Tool{category: c, searcher: s})
	}
	return tools
}

// Name returns the tool name the model calls, e.g. search_attractions.
func (t *Tool) Name() string {
	return categoryTable[t.category].tool
}

func (t *Tool) Description() string {
	return categoryTable[t.category].describe
}

func (t *Tool) Schema() json.RawMessage {
	return placeSchema
}

// Execute decodes {"place": ...} and runs the category search with the place as given.
func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in toolArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return t.searcher.searchText(ctx, t.category, in.Place)
}
