package compact

import (
	"context"
	"strings"
	"testing"

	"github.com/driftcode/drift/internal/message"
	"github.com/driftcode/drift/internal/tokens"
)

func TestTick_FiresOnInterval(t *testing.T) {
	m := NewManager(tokens.New("anthropic", "claude-sonnet-4", 100_000))
	m.Interval = 3

	var fired []bool
	for i := 0; i < 6; i++ {
		fired = append(fired, m.Tick())
	}
	want := []bool{false, false, true, false, false, true}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("Tick() sequence = %v, want %v", fired, want)
		}
	}
}

func TestRun_HeuristicWrapsInSummaryTags(t *testing.T) {
	m := NewManager(tokens.New("anthropic", "claude-sonnet-4", 100_000))

	msgs := []message.Message{
		message.UserMessage("please read `main.go` and run `go test ./...`", nil),
		message.AssistantMessage("done", "", nil),
	}

	out, err := m.Run(context.Background(), nil, msgs, "")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out.Content, "<summary>") || !strings.Contains(out.Content, "</summary>") {
		t.Fatalf("expected <summary> markers, got: %q", out.Content)
	}
	if out.Role != message.RoleUser {
		t.Fatalf("expected RoleUser, got %v", out.Role)
	}
}

func TestRun_PreservesInstructionsMarker(t *testing.T) {
	m := NewManager(tokens.New("anthropic", "claude-sonnet-4", 100_000))

	out, err := m.Run(context.Background(), nil, nil, "focus on the auth module")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out.Content, "Preserved context: focus on the auth module") {
		t.Fatalf("expected preserved-context marker, got: %q", out.Content)
	}
}

func TestRun_TargetRatioClampedToRange(t *testing.T) {
	m := NewManager(tokens.New("anthropic", "claude-sonnet-4", 100_000))

	m.TargetRatio = 5.0 // out of range, should clamp to 0.9 internally
	if _, err := m.Run(context.Background(), nil, nil, ""); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	m.TargetRatio = -1 // out of range, should clamp to 0.1 internally
	if _, err := m.Run(context.Background(), nil, nil, ""); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestHeuristicSummary_ExtractsFilesAndCommands(t *testing.T) {
	msgs := []message.Message{
		message.UserMessage("edit `handler.go` then run `go build ./...`", nil),
	}
	summary := heuristicSummary(msgs, defaultPreserveLastK)
	if !strings.Contains(summary, "handler.go") {
		t.Errorf("expected file reference in summary, got: %q", summary)
	}
	if !strings.Contains(summary, "go build ./...") {
		t.Errorf("expected command reference in summary, got: %q", summary)
	}
}
