package placesearch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTools(t *testing.T) {
	primary := &fakePrimary{places: []Place{goaBeach}}
	s := newTestSearcher(t, primary, &fakeSecondary{}, true)

	tools := s.Tools()
	require.Len(t, tools, 4)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name())
		assert.NotEmpty(t, tool.Description())
		assert.True(t, json.Valid(tool.Schema()))
	}
	assert.Equal(t, []string{"search_attractions", "search_restaurants", "search_activities", "search_transportation"}, names)

	out, err := tools[1].Execute(context.Background(), json.RawMessage(`{"place": "Goa"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Restaurants in Goa from OpenStreetMap: ")
	assert.Equal(t, []string{"restaurants and eateries in Goa"}, primary.queries)
}

func TestTool_InvalidArguments(t *testing.T) {
	primary := &fakePrimary{}
	s := newTestSearcher(t, primary, &fakeSecondary{}, true)
	tool := s.Tools()[0]

	_, err := tool.Execute(context.Background(), json.RawMessage(`not json`))
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.Empty(t, primary.queries)
}

func TestTool_BlankPlacePassesThrough(t *testing.T) {
	primary := &fakePrimary{places: []Place{goaBeach}}
	s := newTestSearcher(t, primary, &fakeSecondary{}, true)
	tool := s.Tools()[0]

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"place": "  "}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Attractions in    from OpenStreetMap: ")
	assert.Equal(t, []string{"top tourist attractions near   "}, primary.queries)

	_, err = tool.Execute(context.Background(), json.RawMessage(`{"place": ""}`))
	require.NoError(t, err)
	assert.Equal(t, "top tourist attractions near ", primary.queries[1])
}
