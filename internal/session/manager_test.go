package session_test

import (
	"testing"
	"time"

	"github.com/driftcode/drift/internal/approval"
	"github.com/driftcode/drift/internal/session"
	"github.com/driftcode/drift/internal/tokens"

	"github.com/driftcode/drift/tests/integration/testutil"
)

func TestManagerFansInTaggedEvents(t *testing.T) {
	loopA, _ := testutil.NewTestLoop(t, testutil.EndTurnResponse("a done"))
	loopB, _ := testutil.NewTestLoop(t, testutil.EndTurnResponse("b done"))

	acctA := tokens.New("fake", "fake-model", 0)
	acctB := tokens.New("fake", "fake-model", 0)
	_, recvA := approval.New(1)
	_, recvB := approval.New(1)

	alA := session.NewAgentLoop("a", loopA, recvA, approval.NewPending(), acctA, nil)
	alB := session.NewAgentLoop("b", loopB, recvB, approval.NewPending(), acctB, nil)

	ctx, cancel := newTestContext()
	defer cancel()

	mgr := session.NewManager(16)
	mgr.Start(ctx, "a", alA)
	mgr.Start(ctx, "b", alB)

	ids := mgr.ListSessions()
	if len(ids) != 2 {
		t.Fatalf("expected 2 running sessions, got %d: %v", len(ids), ids)
	}

	if !mgr.PushMessage("a", session.UserMessageInput{Content: "hi a"}) {
		t.Fatal("expected PushMessage to session a to succeed")
	}
	if !mgr.PushMessage("b", session.UserMessageInput{Content: "hi b"}) {
		t.Fatal("expected PushMessage to session b to succeed")
	}
	if mgr.PushMessage("nope", session.UserMessageInput{Content: "x"}) {
		t.Fatal("expected PushMessage to an unknown session to fail")
	}

	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case tagged := <-mgr.Outputs():
			if _, ok := tagged.Event.(session.IdleEvent); ok {
				seen[tagged.SessionID] = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for both sessions to idle, saw: %v", seen)
		}
	}
}

func TestManagerStopSession(t *testing.T) {
	loop, _ := testutil.NewTestLoop(t)
	acct := tokens.New("fake", "fake-model", 0)
	_, recv := approval.New(1)
	al := session.NewAgentLoop("only", loop, recv, approval.NewPending(), acct, nil)

	ctx, cancel := newTestContext()
	defer cancel()

	mgr := session.NewManager(16)
	mgr.Start(ctx, "only", al)

	if !mgr.StopSession("only") {
		t.Fatal("expected StopSession to find the running session")
	}

	deadline := time.After(2 * time.Second)
	for {
		found := false
		for _, id := range mgr.ListSessions() {
			if id == "only" {
				found = true
			}
		}
		if !found {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for stopped session to be removed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if mgr.StopSession("only") {
		t.Fatal("expected StopSession on an already-removed session to report false")
	}
}
