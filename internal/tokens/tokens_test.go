package tokens

import (
	"testing"

	"github.com/driftcode/drift/internal/message"
)

func TestUsage_TwoPartThreshold(t *testing.T) {
	a := New("anthropic", "claude-sonnet-4", 100_000)

	cases := []struct {
		name        string
		input       int
		output      int
		wantCompact bool
	}{
		{"well under both", 10_000, 0, false},
		{"over ratio, remaining still large", 76_000, 0, false},
		{"over ratio and under floor", 85_000, 0, true},
		{"under ratio even if remaining small", 10_000, 0, false},
		{"zero usage never compacts", 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := a.Usage("anthropic", "claude-sonnet-4", tc.input, tc.output)
			if u.ShouldCompact != tc.wantCompact {
				t.Fatalf("ShouldCompact = %v, want %v (input=%d output=%d limit=%d)",
					u.ShouldCompact, tc.wantCompact, tc.input, tc.output, u.Limit)
			}
		})
	}
}

func TestUsage_UnknownModelFallsBackToDefaultLimit(t *testing.T) {
	a := New("anthropic", "claude-sonnet-4", 0)
	u := a.Usage("anthropic", "claude-sonnet-4", 1000, 0)
	if u.Limit != defaultContextLimit {
		t.Fatalf("Limit = %d, want %d", u.Limit, defaultContextLimit)
	}
}

func TestCount_NonEmptyTextCountsTokens(t *testing.T) {
	a := New("anthropic", "claude-sonnet-4", 100_000)
	if n := a.Count(""); n != 0 {
		t.Fatalf("Count(\"\") = %d, want 0", n)
	}
	if n := a.Count("hello world, this is a test sentence"); n <= 0 {
		t.Fatalf("Count(nonempty) = %d, want > 0", n)
	}
}

func TestBreakdown_AttributesByRoleAndBlockType(t *testing.T) {
	a := New("anthropic", "claude-sonnet-4", 100_000)

	msgs := []message.Message{
		message.UserMessage("please read main.go", nil),
		message.AssistantMessage("sure", "", []message.ToolCall{{ID: "1", Name: "Read", Input: `{"path":"main.go"}`}}),
		message.ToolResultMessage(message.ToolResult{ToolCallID: "1", Content: "package main"}),
		message.UserMessage("<summary>previous work summarized here</summary>", nil),
	}

	b := a.Breakdown("you are a helpful assistant", msgs)
	if b.System == 0 {
		t.Fatal("System breakdown should count the system prompt")
	}
	if b.Conversation == 0 {
		t.Fatal("Conversation breakdown should count user/assistant text")
	}
	if b.Tool == 0 {
		t.Fatal("Tool breakdown should count tool-result content")
	}
	if b.Memory == 0 {
		t.Fatal("Memory breakdown should count the <summary> message")
	}
}
