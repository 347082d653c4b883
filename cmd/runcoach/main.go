package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/chat"
	"github.com/runcoach-ai/runcoach/internal/client"
	"github.com/runcoach-ai/runcoach/internal/config"
	"github.com/runcoach-ai/runcoach/internal/logger"
	"github.com/runcoach-ai/runcoach/internal/tui"
)

func main() {
	config.LoadConfig()

	apiURL := flag.String("api", config.AppConfig.APIBaseURL, "RunCoach API base URL")
	showThinking := flag.Bool("thinking", false, "Print the coach's reasoning with ask")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage:\n  runcoach [flags]             interactive chat\n  runcoach [flags] ask TEXT    one question, answer on stdout\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// The terminal belongs to the UI, so logs only go to the file.
	log := logger.NewFileOnly(config.AppConfig.LogLevel, config.AppConfig.LogFile)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(*apiURL,
		client.WithToken(config.AppConfig.APIToken),
		client.WithLogger(log),
	)
	session := chat.NewSession(api, log)

	args := flag.Args()
	if len(args) > 0 && args[0] == "ask" {
		if err := ask(ctx, api, session, strings.Join(args[1:], " "), *showThinking); err != nil {
			color.Red("❌ %v", err)
			os.Exit(1)
		}
		return
	}
	if len(args) > 0 {
		flag.Usage()
		os.Exit(2)
	}

	program := tea.NewProgram(tui.NewModel(ctx, session, api, log), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		log.Error("terminal UI stopped", zap.Error(err))
		color.Red("❌ %v", err)
		os.Exit(1)
	}
}

func ask(ctx context.Context, api *client.Client, session *chat.Session, question string, showThinking bool) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("nothing to ask, usage: runcoach ask TEXT")
	}

	p, err := api.LoadProfile(ctx)
	if err != nil {
		color.Yellow("⚠️  Could not load profile, asking without it: %v", err)
		p = nil
	}

	if err := session.SendUserMessage(ctx, chat.NormalizeShortcut(question), p); err != nil {
		return err
	}

	msgs := session.Messages()
	reply := msgs[len(msgs)-1]
	switch {
	case reply.Role == chat.RoleError:
		return fmt.Errorf("%s", reply.Content)
	case showThinking && reply.HasThinking():
		color.New(color.Faint).Printf("💭 %s\n\n", *reply.Thinking)
	}
	color.New(color.FgHiGreen, color.Bold).Println("🏃 Coach")
	fmt.Println(reply.Content)
	return nil
}
