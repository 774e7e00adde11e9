// Command drift is the headless entrypoint for the Agent Loop: it resolves
// a connected provider, wires one session.AgentLoop around a core.Loop, and
// drives it with a single user message, printing OutputEvents as they
// arrive. There is no interactive TUI fallback; an empty invocation prints
// usage instead.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/driftcode/drift/internal/approval"
	"github.com/driftcode/drift/internal/client"
	"github.com/driftcode/drift/internal/compact"
	"github.com/driftcode/drift/internal/config"
	"github.com/driftcode/drift/internal/core"
	"github.com/driftcode/drift/internal/hooks"
	"github.com/driftcode/drift/internal/log"
	"github.com/driftcode/drift/internal/permission"
	"github.com/driftcode/drift/internal/provider"
	"github.com/driftcode/drift/internal/session"
	"github.com/driftcode/drift/internal/system"
	"github.com/driftcode/drift/internal/tokens"
	"github.com/driftcode/drift/internal/tool"

	// Import providers for registration.
	_ "github.com/driftcode/drift/internal/provider/anthropic"
	_ "github.com/driftcode/drift/internal/provider/google"
	_ "github.com/driftcode/drift/internal/provider/moonshot"
	_ "github.com/driftcode/drift/internal/provider/openai"
)

var version = "0.1.0"

func init() {
	_ = godotenv.Load()
	_ = log.Init()
}

func main() {
	defer log.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var promptFlag string
var yoloFlag bool

func init() {
	rootCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Custom prompt to send")
	rootCmd.Flags().BoolVar(&yoloFlag, "yolo", false, "auto-approve every tool call instead of prompting")
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "drift [message]",
	Short: "Drift - AI coding assistant for the terminal",
	Long: `Drift runs a single turn of the Agent Loop against a connected provider.

  drift "your message"     Send a message directly
  echo "message" | drift   Send a message via stdin
  drift -p "prompt"        Use a custom prompt`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		message := getInputMessage(args)
		if message == "" {
			return cmd.Help()
		}
		return runSession(message)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("drift version %s\n", version)
	},
}

func getInputMessage(args []string) string {
	if promptFlag != "" {
		return promptFlag
	}
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err == nil && len(data) > 0 {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

// runSession resolves a connected provider, wires a session.AgentLoop around
// a core.Loop, and drives it through exactly one user message, printing
// OutputEvents to stdout as they arrive.
func runSession(message string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	llmProvider, providerName, modelID, err := connectedProvider(ctx)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	sessionID := uuid.NewString()

	c := &client.Client{Provider: llmProvider, Model: modelID, MaxTokens: 8192}
	sys := &system.System{Client: c, Cwd: cwd}
	toolSet := &tool.Set{Disabled: settings.DisabledTools}
	hooksEngine := hooks.NewEngine(settings, sessionID, cwd, "")

	checker := permission.Checker(settingsChecker{settings: settings})
	if yoloFlag {
		checker = permission.PermitAll()
	}

	sender, receiver := approval.New(4)

	coreLoop := &core.Loop{
		System:     sys,
		Client:     c,
		Tool:       toolSet,
		Permission: checker,
		Hooks:      hooksEngine,
		Approval:   sender,
	}

	acct := tokens.New(providerName, modelID, 0)
	compactor := compact.NewManager(acct)
	pending := approval.NewPending()
	loop := session.NewAgentLoop(sessionID, coreLoop, receiver, pending, acct, compactor)

	manager := session.NewManager(64)
	manager.Start(ctx, sessionID, loop)
	loop.Push(session.UserMessageInput{Content: message})

	return printEvents(ctx, manager, sessionID)
}

// printEvents drains the manager's combined output stream and renders each
// event for sessionID to stdout, returning once the session goes idle,
// errors, or is cancelled.
func printEvents(ctx context.Context, manager *session.Manager, sessionID string) error {
	for {
		select {
		case <-ctx.Done():
			manager.StopSession(sessionID)
			return ctx.Err()

		case tagged, ok := <-manager.Outputs():
			if !ok {
				return nil
			}
			if tagged.SessionID != sessionID {
				continue
			}

			switch ev := tagged.Event.(type) {
			case session.ThinkingEvent:
				fmt.Print(ev.Content)
			case session.AssistantMessageEvent:
				fmt.Print(ev.Content)
			case session.ToolCallEvent:
				fmt.Fprintf(os.Stderr, "\n[tool] %s\n", ev.Rendered)
			case session.ToolResultEvent:
				if !ev.Success {
					fmt.Fprintf(os.Stderr, "[tool error] %s: %s\n", ev.Name, ev.Output)
				}
			case session.ToolPendingEvent:
				// No human to ask in headless mode: fail closed unless --yolo
				// already bypassed approval entirely via PermitAll.
				fmt.Fprintf(os.Stderr, "\n[tool %s] requires approval, rejecting in non-interactive mode\n", ev.Name)
				manager.PushMessage(sessionID, session.RejectToolInput{
					ToolCallID: ev.ID,
					Reason:     "non-interactive session: no one to approve this tool call",
				})
			case session.QuestionEvent:
				fmt.Fprintf(os.Stderr, "\n[question %s] no one to answer in non-interactive mode, skipping\n", ev.RequestID)
				manager.PushMessage(sessionID, session.AnswerQuestionInput{RequestID: ev.RequestID, Answers: map[string]string{}})
			case session.IdleEvent:
				fmt.Println()
				manager.StopSession(sessionID)
				return nil
			case session.CancelledEvent:
				fmt.Fprintln(os.Stderr, "\ncancelled")
				manager.StopSession(sessionID)
				return fmt.Errorf("cancelled")
			case session.ErrorEvent:
				manager.StopSession(sessionID)
				return fmt.Errorf("%s", ev.Message)
			}
		}
	}
}

// connectedProvider resolves the current or first-available connected
// provider the same way the interactive side does, so non-interactive
// invocations share the same connection state.
func connectedProvider(ctx context.Context) (provider.LLMProvider, string, string, error) {
	store, err := provider.NewStore()
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to load provider store: %w", err)
	}

	if current := store.GetCurrentModel(); current != nil {
		p, err := provider.GetProvider(ctx, current.Provider, current.AuthMethod)
		if err != nil {
			return nil, "", "", fmt.Errorf("provider %s (%s) not available: %w", current.Provider, current.AuthMethod, err)
		}
		return p, string(current.Provider), current.ModelID, nil
	}

	for providerName, conn := range store.GetConnections() {
		p, err := provider.GetProvider(ctx, provider.Provider(providerName), conn.AuthMethod)
		if err == nil {
			return p, providerName, defaultModelFor(providerName, conn.AuthMethod), nil
		}
	}

	return nil, "", "", fmt.Errorf("no provider connected")
}

func defaultModelFor(providerName string, authMethod provider.AuthMethod) string {
	switch providerName {
	case "anthropic":
		if authMethod == provider.AuthVertex {
			return "claude-sonnet-4-5@20250929"
		}
		return "claude-sonnet-4-20250514"
	case "openai":
		return "gpt-4o"
	case "google":
		return "gemini-2.0-flash"
	case "moonshot":
		return "kimi-k2-0711-preview"
	default:
		return "claude-sonnet-4-20250514"
	}
}

// settingsChecker adapts config.Settings' allow/deny/ask pattern matching
// to permission.Checker so the headless entrypoint honors the same
// settings.json rules the interactive side does.
type settingsChecker struct {
	settings *config.Settings
	session  config.SessionPermissions
}

func (s settingsChecker) Check(toolName string, args map[string]any) permission.Decision {
	switch s.settings.CheckPermission(toolName, args, &s.session) {
	case config.PermissionAllow:
		return permission.Permit
	case config.PermissionDeny:
		return permission.Reject
	default:
		return permission.Prompt
	}
}
