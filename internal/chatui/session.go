package chatui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrBlankInput is returned for input that is empty after trimming
	ErrBlankInput = errors.New("input is blank")
	// ErrNoPlan is returned by Save before any answer was received
	ErrNoPlan = errors.New("no travel plan yet")
)

// Asker answers a conversation history
type Asker interface {
	Ask(ctx context.Context, history []string) (string, error)
}

// Session holds the chat history and the latest travel plan
type Session struct {
	asker   Asker
	author  string
	saveDir string
	now     func() time.Time

	history []string
	plan    string
}

// NewSession creates an empty session. Plans are attributed to author and
// saved under saveDir by default.
func NewSession(asker Asker, author, saveDir string) *Session {
	return &Session{
		asker:   asker,
		author:  author,
		saveDir: saveDir,
		now:     time.Now,
	}
}

// Send appends input to the history, posts the whole history and records
// the answer. It returns the rendered plan markdown.
// A failed request leaves the user line in the history.
func (s *Session) Send(ctx context.Context, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrBlankInput
	}

	s.history = append(s.history, "User: "+input)

	answer, err := s.asker.Ask(ctx, s.History())
	if err != nil {
		return "", err
	}

	s.history = append(s.history, "Assistant: "+answer)
	s.plan = FormatPlan(answer, s.author, s.now())
	return s.plan, nil
}

// History returns a copy of the history lines, oldest first
func (s *Session) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// Plan returns the latest plan markdown, or "" before the first answer
func (s *Session) Plan() string {
	return s.plan
}

// Reset clears the history and the latest plan
func (s *Session) Reset() {
	s.history = nil
	s.plan = ""
}

// Save writes the latest plan to path, or to a timestamped file in the
// save directory when path is empty. It returns the written path.
func (s *Session) Save(path string) (string, error) {
	if s.plan == "" {
		return "", ErrNoPlan
	}
	if path == "" {
		path = DefaultPlanPath(s.saveDir, s.now())
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(s.plan), 0o644); err != nil {
		return "", fmt.Errorf("failed to save plan: %w", err)
	}
	return path, nil
}
