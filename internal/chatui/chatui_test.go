package chatui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records every posted history and answers with a canned reply
type fakeAPI struct {
	mu        sync.Mutex
	histories [][]string
	status    int
	body      string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []string `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.histories = append(f.histories, req.Messages)
	f.mu.Unlock()

	if r.URL.Path != "/query" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.body))
}

func (f *fakeAPI) recorded() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.histories
}

func newFakeAPI(t *testing.T, status int, body string) (*fakeAPI, *Client) {
	t.Helper()
	api := &fakeAPI{status: status, body: body}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, NewClient(srv.URL+"/", 5*time.Second)
}

func TestClient_Ask(t *testing.T) {
	t.Run("returns the answer", func(t *testing.T) {
		api, client := newFakeAPI(t, http.StatusOK, `{"answer":"Visit Baga Beach"}`)

		answer, err := client.Ask(context.Background(), []string{"User: Goa"})
		require.NoError(t, err)
		assert.Equal(t, "Visit Baga Beach", answer)
		assert.Equal(t, [][]string{{"User: Goa"}}, api.recorded())
	})

	t.Run("missing answer field", func(t *testing.T) {
		_, client := newFakeAPI(t, http.StatusOK, `{}`)

		answer, err := client.Ask(context.Background(), []string{"User: Goa"})
		require.NoError(t, err)
		assert.Equal(t, "No answer returned.", answer)
	})

	t.Run("non-200 keeps the body", func(t *testing.T) {
		_, client := newFakeAPI(t, http.StatusBadGateway, `{"error":"bad_gateway"}`)

		_, err := client.Ask(context.Background(), []string{"User: Goa"})
		var respErr *ResponseError
		require.ErrorAs(t, err, &respErr)
		assert.Equal(t, http.StatusBadGateway, respErr.StatusCode)
		assert.Equal(t, `Bot failed to respond: {"error":"bad_gateway"}`, err.Error())
	})

	t.Run("unreachable api", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", time.Second)

		_, err := client.Ask(context.Background(), []string{"User: Goa"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "the response failed due to")
	})
}

func TestFormatPlan(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 0, 0, time.UTC)

	plan := FormatPlan("Day 1: beaches", "Travel Agent", at)

	assert.Equal(t, "# 🌍 AI Travel Plan\n\n"+
		"# **Generated:** 2024-03-09 at 07:05  \n"+
		"# **Created by:** Travel Agent\n\n"+
		"---\n\n"+
		"Day 1: beaches\n\n"+
		"---\n\n"+
		disclaimer+"\n", plan)
}

func TestDefaultPlanPath(t *testing.T) {
	at := time.Date(2024, 3, 9, 17, 5, 30, 0, time.UTC)
	assert.Equal(t, filepath.Join("plans", "AI_Trip_Plan_2024-03-09_17-05-30.md"), DefaultPlanPath("plans", at))
}

type stubAsker struct {
	answers []string
	err     error
	seen    [][]string
}

func (s *stubAsker) Ask(_ context.Context, history []string) (string, error) {
	s.seen = append(s.seen, history)
	if s.err != nil {
		return "", s.err
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func TestSession_Send(t *testing.T) {
	asker := &stubAsker{answers: []string{"Goa is great", "Add Dudhsagar Falls"}}
	session := NewSession(asker, "Travel Agent", t.TempDir())
	ctx := context.Background()

	_, err := session.Send(ctx, "   ")
	assert.ErrorIs(t, err, ErrBlankInput)
	assert.Empty(t, asker.seen)

	plan, err := session.Send(ctx, "Plan a trip to Goa")
	require.NoError(t, err)
	assert.Contains(t, plan, "Goa is great")
	assert.Equal(t, plan, session.Plan())

	_, err = session.Send(ctx, "Add a waterfall")
	require.NoError(t, err)

	// every request carries the full history
	assert.Equal(t, [][]string{
		{"User: Plan a trip to Goa"},
		{"User: Plan a trip to Goa", "Assistant: Goa is great", "User: Add a waterfall"},
	}, asker.seen)
	assert.Equal(t, []string{
		"User: Plan a trip to Goa",
		"Assistant: Goa is great",
		"User: Add a waterfall",
		"Assistant: Add Dudhsagar Falls",
	}, session.History())

	session.Reset()
	assert.Empty(t, session.History())
	assert.Empty(t, session.Plan())
}

func TestSession_SendFailureKeepsUserLine(t *testing.T) {
	asker := &stubAsker{err: errors.New("boom")}
	session := NewSession(asker, "Travel Agent", t.TempDir())

	_, err := session.Send(context.Background(), "Plan a trip to Goa")
	require.Error(t, err)
	assert.Equal(t, []string{"User: Plan a trip to Goa"}, session.History())
	assert.Empty(t, session.Plan())
}

func TestSession_Save(t *testing.T) {
	dir := t.TempDir()
	session := NewSession(&stubAsker{answers: []string{"Day 1"}}, "Travel Agent", dir)
	session.now = func() time.Time { return time.Date(2024, 3, 9, 17, 5, 30, 0, time.UTC) }

	_, err := session.Save("")
	assert.ErrorIs(t, err, ErrNoPlan)

	_, err = session.Send(context.Background(), "Goa")
	require.NoError(t, err)

	path, err := session.Save("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "AI_Trip_Plan_2024-03-09_17-05-30.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, session.Plan(), string(data))

	custom := filepath.Join(dir, "nested", "goa.md")
	path, err = session.Save(custom)
	require.NoError(t, err)
	assert.Equal(t, custom, path)
	assert.FileExists(t, custom)
}

func TestUI_Run(t *testing.T) {
	api, client := newFakeAPI(t, http.StatusOK, `{"answer":"Visit Baga Beach"}`)
	dir := t.TempDir()
	session := NewSession(client, "Travel Agent", dir)

	input := strings.Join([]string{
		"",
		"Plan a trip to Goa",
		"/history",
		"/save " + filepath.Join(dir, "plan.md"),
		"/unknown",
		"/reset",
		"/history",
		"/quit",
		"never sent",
	}, "\n")
	var out bytes.Buffer

	ui, err := New(session, strings.NewReader(input), &out, Options{Style: "notty", Width: 80})
	require.NoError(t, err)
	require.NoError(t, ui.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Travel Planner Agentic Application")
	assert.Contains(t, text, "Visit Baga Beach")
	assert.Contains(t, text, "AI Travel Plan")
	assert.Contains(t, text, "Chat History")
	assert.Contains(t, text, "User: Plan a trip to Goa")
	assert.Contains(t, text, "Assistant: Visit Baga Beach")
	assert.Contains(t, text, "Travel plan saved to")
	assert.Contains(t, text, "unknown command /unknown")
	assert.Contains(t, text, "No messages yet.")
	assert.FileExists(t, filepath.Join(dir, "plan.md"))

	assert.Len(t, api.recorded(), 1)
}

func TestUI_FailedResponse(t *testing.T) {
	_, client := newFakeAPI(t, http.StatusInternalServerError, `{"error":"internal_error"}`)
	session := NewSession(client, "Travel Agent", t.TempDir())
	var out bytes.Buffer

	ui, err := New(session, strings.NewReader(""), &out, Options{Style: "notty"})
	require.NoError(t, err)

	quit := ui.Handle(context.Background(), "Plan a trip to Goa")
	assert.False(t, quit)
	assert.Contains(t, out.String(), `Bot failed to respond: {"error":"internal_error"}`)
	assert.Equal(t, []string{"User: Plan a trip to Goa"}, session.History())
}
