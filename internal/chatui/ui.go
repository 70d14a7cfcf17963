package chatui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	title    = "🌍 Travel Planner Agentic Application"
	greeting = "How can I help you in planning a trip? Let me know where do you want to visit."
	helpText = "Commands: /history, /save [path], /reset, /quit"
)

// Options controls terminal rendering
type Options struct {
	// Style is a glamour standard style name ("dark", "light", "notty").
	// Empty detects the terminal background.
	Style string
	Width int
}

// UI is the line-oriented terminal front end of a Session
type UI struct {
	session  *Session
	in       io.Reader
	out      io.Writer
	markdown *glamour.TermRenderer

	titleStyle     lipgloss.Style
	userStyle      lipgloss.Style
	assistantStyle lipgloss.Style
	errorStyle     lipgloss.Style
	hintStyle      lipgloss.Style
}

// New creates a UI reading commands from in and writing to out
func New(session *Session, in io.Reader, out io.Writer, opts Options) (*UI, error) {
	width := opts.Width
	if width <= 0 {
		width = 100
	}

	styleOpt := glamour.WithAutoStyle()
	if opts.Style != "" {
		styleOpt = glamour.WithStandardStyle(opts.Style)
	}
	md, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	r := lipgloss.NewRenderer(out)
	return &UI{
		session:        session,
		in:             in,
		out:            out,
		markdown:       md,
		titleStyle:     r.NewStyle().Bold(true),
		userStyle:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		assistantStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		errorStyle:     r.NewStyle().Foreground(lipgloss.Color("9")),
		hintStyle:      r.NewStyle().Faint(true),
	}, nil
}

// Run reads lines until /quit, end of input or ctx is cancelled
func (u *UI) Run(ctx context.Context) error {
	u.println(u.titleStyle.Render(title))
	u.println(greeting)
	u.println(u.hintStyle.Render(helpText))

	scanner := bufio.NewScanner(u.in)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(u.out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if quit := u.Handle(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

// Handle processes one input line. It reports whether the UI should exit.
func (u *UI) Handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	if strings.HasPrefix(trimmed, "/") {
		cmd, arg, _ := strings.Cut(trimmed, " ")
		switch cmd {
		case "/quit", "/exit":
			return true
		case "/history":
			u.printHistory()
		case "/reset":
			u.session.Reset()
			u.println(u.hintStyle.Render("History cleared."))
		case "/save":
			path, err := u.session.Save(strings.TrimSpace(arg))
			if err != nil {
				u.printError(err)
				return false
			}
			u.println(u.hintStyle.Render("Travel plan saved to " + path))
		case "/help":
			u.println(u.hintStyle.Render(helpText))
		default:
			u.printError(fmt.Errorf("unknown command %s", cmd))
		}
		return false
	}

	u.println(u.hintStyle.Render("Bot is thinking..."))
	plan, err := u.session.Send(ctx, line)
	if err != nil {
		u.printError(err)
		return false
	}
	u.renderMarkdown(plan)
	return false
}

func (u *UI) printHistory() {
	history := u.session.History()
	if len(history) == 0 {
		u.println(u.hintStyle.Render("No messages yet."))
		return
	}
	u.println(u.titleStyle.Render("Chat History"))
	for _, msg := range history {
		switch {
		case strings.HasPrefix(msg, "User:"):
			u.println(u.userStyle.Render(msg))
		case strings.HasPrefix(msg, "Assistant:"):
			u.println(u.assistantStyle.Render(msg))
		default:
			u.println(msg)
		}
	}
}

func (u *UI) renderMarkdown(content string) {
	rendered, err := u.markdown.Render(content)
	if err != nil {
		u.println(content)
		return
	}
	fmt.Fprint(u.out, rendered)
}

func (u *UI) printError(err error) {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		u.println(u.errorStyle.Render(respErr.Error()))
		return
	}
	u.println(u.errorStyle.Render("Error: " + err.Error()))
}

func (u *UI) println(s string) {
	fmt.Fprintln(u.out, s)
}
