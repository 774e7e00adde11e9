package core

import (
	"context"
	"testing"
	"time"

	"github.com/driftcode/drift/internal/approval"
	"github.com/driftcode/drift/internal/message"
	"github.com/driftcode/drift/internal/permission"
)

// promptChecker always returns permission.Prompt, routing every tool call
// through the approval channel.
type promptChecker struct{}

func (promptChecker) Check(_ string, _ map[string]any) permission.Decision {
	return permission.Prompt
}

func TestExecTool_PromptWithoutApprovalChannelAutoApproves(t *testing.T) {
	l := newTestLoop(&mockProvider{})
	l.Permission = promptChecker{}

	tc := message.ToolCall{ID: "tc1", Name: "UnknownTool", Input: "{}"}
	result := l.ExecTool(context.Background(), tc)

	// No approval channel configured (zero Sender) -> falls through to
	// runTool, which reports "Unknown tool" rather than a rejection.
	if result.Content != "Unknown tool: UnknownTool" {
		t.Fatalf("expected auto-approve fallthrough to runTool, got: %q", result.Content)
	}
}

func TestExecTool_PromptRoutesThroughApprovalChannel(t *testing.T) {
	l := newTestLoop(&mockProvider{})
	l.Permission = promptChecker{}

	sender, receiver := approval.New(1)
	l.Approval = sender

	tc := message.ToolCall{ID: "tc1", Name: "UnknownTool", Input: "{}"}

	resultCh := make(chan *message.ToolResult, 1)
	go func() {
		resultCh <- l.ExecTool(context.Background(), tc)
	}()

	var req approval.ToolApproval
	select {
	case r := <-receiver.Chan():
		req = r.(approval.ToolApproval)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for approval request")
	}

	if req.ToolCallID != "tc1" || req.ToolName != "UnknownTool" {
		t.Fatalf("unexpected request: %+v", req)
	}
	req.Reply(approval.Decision{Approved: false, Reason: "nope"})

	select {
	case result := <-resultCh:
		if !result.IsError || result.Content != "nope" {
			t.Fatalf("expected rejection result with reason 'nope', got: %+v", result)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ExecTool to return")
	}
}
