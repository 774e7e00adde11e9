package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/driftcode/drift/internal/approval"
	"github.com/driftcode/drift/internal/compact"
	"github.com/driftcode/drift/internal/permission"
	"github.com/driftcode/drift/internal/session"
	"github.com/driftcode/drift/internal/tokens"

	"github.com/driftcode/drift/tests/integration/testutil"
)

// promptAll always delegates to the approval channel, so tests can exercise
// the ToolPendingEvent / ApproveToolInput / RejectToolInput path.
type promptAll struct{}

func (promptAll) Check(string, map[string]any) permission.Decision { return permission.Prompt }

const testTimeout = 2 * time.Second

func newTestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func drainUntil[T session.OutputEvent](t *testing.T, out <-chan session.OutputEvent) T {
	t.Helper()
	for {
		select {
		case ev, ok := <-out:
			if !ok {
				t.Fatalf("output channel closed before finding %T", *new(T))
			}
			if v, ok := ev.(T); ok {
				return v
			}
		case <-time.After(testTimeout):
			t.Fatalf("timed out waiting for %T", *new(T))
		}
	}
}

func TestAgentLoopAutoApprovedToolCall(t *testing.T) {
	testutil.RegisterFakeTool(t, "Echo", "echo-output")

	loop, fake := testutil.NewTestLoop(t,
		testutil.ToolCallResponse("Echo", "call-1", `{"text":"hi"}`),
		testutil.EndTurnResponse("done"),
	)
	_ = fake

	acct := tokens.New("fake", "fake-model", 0)
	compactor := compact.NewManager(acct)
	sender, receiver := approval.New(4)
	loop.Approval = sender
	pending := approval.NewPending()

	al := session.NewAgentLoop("sess-1", loop, receiver, pending, acct, compactor)

	ctx, cancel := newTestContext()
	defer cancel()
	go al.Run(ctx)

	out := al.Outputs()
	drainUntil[session.ReadyEvent](t, out)

	al.Push(session.UserMessageInput{Content: "hello"})

	drainUntil[session.UserMessageEvent](t, out)
	drainUntil[session.ToolCallEvent](t, out)
	done := drainUntil[session.ToolDoneEvent](t, out)
	if !done.Success {
		t.Fatalf("expected tool to succeed, got: %s", done.Output)
	}
	drainUntil[session.IdleEvent](t, out)
}

func TestAgentLoopToolApprovalRejected(t *testing.T) {
	testutil.RegisterFakeTool(t, "Danger", "should-not-run")

	loop, _ := testutil.NewTestLoopWithPermission(t, promptAll{},
		testutil.ToolCallResponse("Danger", "call-1", `{}`),
		testutil.EndTurnResponse("done"),
	)

	acct := tokens.New("fake", "fake-model", 0)
	sender, receiver := approval.New(4)
	loop.Approval = sender
	pending := approval.NewPending()

	al := session.NewAgentLoop("sess-2", loop, receiver, pending, acct, nil)

	ctx, cancel := newTestContext()
	defer cancel()
	go al.Run(ctx)

	out := al.Outputs()
	drainUntil[session.ReadyEvent](t, out)

	al.Push(session.UserMessageInput{Content: "do the dangerous thing"})

	p := drainUntil[session.ToolPendingEvent](t, out)
	al.Push(session.RejectToolInput{ToolCallID: p.ID, Reason: "not today"})

	done := drainUntil[session.ToolDoneEvent](t, out)
	if done.Success {
		t.Fatalf("expected rejected tool call to fail, got success")
	}
	if done.Output != "not today" {
		t.Fatalf("expected rejection reason to flow through, got %q", done.Output)
	}
	drainUntil[session.IdleEvent](t, out)
}

func TestAgentLoopCancelMidApproval(t *testing.T) {
	testutil.RegisterFakeTool(t, "Slow", "irrelevant")

	loop, _ := testutil.NewTestLoopWithPermission(t, promptAll{},
		testutil.ToolCallResponse("Slow", "call-1", `{}`),
	)

	acct := tokens.New("fake", "fake-model", 0)
	sender, receiver := approval.New(4)
	loop.Approval = sender
	pending := approval.NewPending()

	al := session.NewAgentLoop("sess-3", loop, receiver, pending, acct, nil)

	ctx, cancel := newTestContext()
	defer cancel()
	go al.Run(ctx)

	out := al.Outputs()
	drainUntil[session.ReadyEvent](t, out)

	al.Push(session.UserMessageInput{Content: "start something slow"})
	drainUntil[session.ToolPendingEvent](t, out)

	al.Push(session.CancelInput{})
	drainUntil[session.CancelledEvent](t, out)
}
