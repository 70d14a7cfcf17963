package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/upb/travel-agent/config"
	"github.com/upb/travel-agent/internal/chatui"
)

func main() {
	cfg := config.LoadClient()

	baseURL := flag.String("api", cfg.BaseURL, "travel agent API base URL")
	style := flag.String("style", "", "markdown style: dark, light or notty (default: detect)")
	width := flag.Int("width", 100, "markdown word wrap width")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := chatui.NewClient(*baseURL, cfg.Timeout)
	session := chatui.NewSession(client, cfg.Author, cfg.SaveDir)

	ui, err := chatui.New(session, os.Stdin, os.Stdout, chatui.Options{Style: *style, Width: *width})
	if err != nil {
		fmt.Fprintf(os.Stderr, "travel-chat: %v\n", err)
		os.Exit(1)
	}
	if err := ui.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "travel-chat: %v\n", err)
		os.Exit(1)
	}
}
