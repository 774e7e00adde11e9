// Package compact implements the Context Manager: deciding when a
// conversation's token usage has crossed a threshold and replacing its
// history with a single summary message.
package compact

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/driftcode/drift/internal/client"
	"github.com/driftcode/drift/internal/core"
	"github.com/driftcode/drift/internal/message"
	"github.com/driftcode/drift/internal/tokens"
)

// defaultInterval is how many turns must pass between compaction checks.
const defaultInterval = 5

// defaultTargetRatio is the default TargetRatio. Run clamps the ratio but
// does not limit the summary's length by it.
const defaultTargetRatio = 0.3

// defaultPreserveLastK is how many trailing messages the heuristic
// summarizer quotes (each cut to 400 bytes) instead of folding into prose.
const defaultPreserveLastK = 5

// Manager tracks the turn-interval counter and drives compaction for one
// Agent Loop's conversation.
type Manager struct {
	Accountant    *tokens.Accountant
	Interval      int     // check every N turns; 0 means defaultInterval
	TargetRatio   float64 // clamped to [0.1, 0.9]; the summary's length is not bounded by it
	PreserveLastK int     // 0 means defaultPreserveLastK
	UseLLM        bool

	turnsSinceCheck int
}

// NewManager builds a Manager with spec defaults.
func NewManager(acct *tokens.Accountant) *Manager {
	return &Manager{
		Accountant:    acct,
		Interval:      defaultInterval,
		TargetRatio:   defaultTargetRatio,
		PreserveLastK: defaultPreserveLastK,
	}
}

// Tick advances the turn counter and reports whether this turn falls on the
// interval boundary where a compaction check should run at all.
func (m *Manager) Tick() bool {
	interval := m.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	m.turnsSinceCheck++
	if m.turnsSinceCheck >= interval {
		m.turnsSinceCheck = 0
		return true
	}
	return false
}

// ShouldCompact reports whether the current usage crosses the two-part
// threshold from the Token Accountant. Callers should gate this on Tick()
// returning true to respect the interval counter.
func (m *Manager) ShouldCompact(provider, model string, input, output int) bool {
	return m.Accountant.Usage(provider, model, input, output).ShouldCompact
}

// Run performs the compaction itself: it produces a single summary user
// message (wrapped in <summary>...</summary>), and returns it for the caller
// to install as the new (and only) history. The caller is responsible for
// clearing the session's history and resetting its cached token counters —
// Conversation ownership belongs to the Agent Loop, not this package.
func (m *Manager) Run(ctx context.Context, c *client.Client, msgs []message.Message, instructions string) (message.Message, error) {
	ratio := m.TargetRatio
	if ratio <= 0 {
		ratio = defaultTargetRatio
	}
	if ratio < 0.1 {
		ratio = 0.1
	}
	if ratio > 0.9 {
		ratio = 0.9
	}

	var body string
	if m.UseLLM && c != nil {
		summary, _, err := core.Compact(ctx, c, msgs, instructions)
		if err != nil {
			return message.Message{}, fmt.Errorf("compact: llm summarization failed: %w", err)
		}
		body = summary
	} else {
		body = heuristicSummary(msgs, m.preserveLastK())
	}

	if instructions != "" {
		body += fmt.Sprintf("\n\nPreserved context: %s", instructions)
	}

	content := fmt.Sprintf("<summary>\n%s\n</summary>", strings.TrimSpace(body))
	return message.UserMessage(content, nil), nil
}

func (m *Manager) preserveLastK() int {
	if m.PreserveLastK > 0 {
		return m.PreserveLastK
	}
	return defaultPreserveLastK
}

var (
	filePathRe = regexp.MustCompile(`(?:^|[\s"'` + "`" + `(])((?:[\w./-]+/)?[\w.-]+\.[A-Za-z0-9]{1,8})(?:[\s"'` + "`" + `):,.]|$)`)
	commandRe  = regexp.MustCompile("`([^`\n]{2,80})`")
)

// heuristicSummary extracts file paths and shell-style commands mentioned in
// the conversation and quotes the last K messages, each cut to 400 bytes, without calling
// the LLM. Used when use_llm is false (e.g. the compaction itself is what
// pushed the window over budget).
func heuristicSummary(msgs []message.Message, preserveLastK int) string {
	var sb strings.Builder
	sb.WriteString("Conversation summary (heuristic, no LLM call):\n")

	files := map[string]bool{}
	commands := map[string]bool{}
	for _, m := range msgs {
		for _, match := range filePathRe.FindAllStringSubmatch(m.Content, -1) {
			files[match[1]] = true
		}
		for _, match := range commandRe.FindAllStringSubmatch(m.Content, -1) {
			commands[match[1]] = true
		}
		for _, tc := range m.ToolCalls {
			if tc.Name == "Bash" {
				if params, err := message.ParseToolInput(tc.Input); err == nil {
					if cmd, ok := params["command"].(string); ok {
						commands[cmd] = true
					}
				}
			}
		}
	}

	if len(files) > 0 {
		sb.WriteString("\nFiles referenced:\n")
		for f := range files {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}
	if len(commands) > 0 {
		sb.WriteString("\nCommands run:\n")
		for cmd := range commands {
			fmt.Fprintf(&sb, "- %s\n", cmd)
		}
	}

	tail := msgs
	if len(tail) > preserveLastK {
		tail = tail[len(tail)-preserveLastK:]
	}
	if len(tail) > 0 {
		sb.WriteString("\nMost recent exchange:\n")
		for _, m := range tail {
			text := m.Content
			if text == "" && m.ToolResult != nil {
				text = "[tool result for " + m.ToolResult.ToolName + "]"
			}
			if text == "" {
				continue
			}
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, truncate(text, 400))
		}
	}

	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...[truncated]"
}
