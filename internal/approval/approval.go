// Package approval implements the asynchronous request/reply channel that
// lets a tool suspend on a human decision without blocking the agent loop.
// A Request is a one-shot: it is sent once by a Sender, read once by the
// Agent Loop's Receiver, and answered once via its own reply method.
package approval

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Decision is the outcome of a ToolApproval request.
type Decision struct {
	Approved bool
	Reason   string // populated on rejection, e.g. "Cancelled by user"
}

// QuestionOption is one labeled choice offered for a Question item.
type QuestionOption struct {
	Label string
	Value string
}

// QuestionItem is a single question within a Question request: 2-4 labeled
// options, optionally multi-select.
type QuestionItem struct {
	Prompt      string
	Options     []QuestionOption
	MultiSelect bool
}

// Answer carries one selection set per QuestionItem, in the same order as
// the Question's Questions slice. A non-multi-select item's selection set
// has exactly one element.
type Answer struct {
	Selections [][]string
}

// Request is the tagged union carried on the approval channel: ToolApproval
// or Question. The unexported marker method seals the set so no package
// outside approval can introduce a third variant.
type Request interface {
	isRequest()
	ID() string
}

// ToolApproval asks the Agent Loop to approve or reject a pending tool call.
type ToolApproval struct {
	RequestID   string
	ToolCallID  string
	ToolName    string
	Arguments   map[string]any
	Description string

	reply chan Decision
}

func (ToolApproval) isRequest()   {}
func (t ToolApproval) ID() string { return t.RequestID }

// Reply resolves the request's one-shot reply channel. Calling Reply a
// second time on the same request panics (send on closed channel), matching
// the one-shot contract: a reply channel is consumed once.
func (t ToolApproval) Reply(d Decision) {
	t.reply <- d
	close(t.reply)
}

// Question asks the Agent Loop to collect answers to 1-4 questions, each
// with 2-4 labeled options.
type Question struct {
	RequestID string
	Questions []QuestionItem

	reply chan Answer
}

func (Question) isRequest()   {}
func (q Question) ID() string { return q.RequestID }

// Reply resolves the question's one-shot reply channel. See ToolApproval.Reply.
func (q Question) Reply(a Answer) {
	q.reply <- a
	close(q.reply)
}

func validateQuestions(items []QuestionItem) error {
	if len(items) < 1 || len(items) > 4 {
		return fmt.Errorf("approval: question count must be 1-4, got %d", len(items))
	}
	for i, q := range items {
		if len(q.Options) < 2 || len(q.Options) > 4 {
			return fmt.Errorf("approval: question %d must have 2-4 options, got %d", i, len(q.Options))
		}
	}
	return nil
}

// Sender is the write half of an approval channel. Tools hold only a
// Sender; the unique Receiver stays with the Agent Loop that owns it.
type Sender struct {
	ch chan<- Request
}

// Receiver is the read half of an approval channel, held exclusively by the
// Agent Loop that created it.
type Receiver struct {
	ch <-chan Request
}

// New creates a paired Sender/Receiver. buffer sizes the channel so a tool
// can enqueue its request without the loop having to be mid-select already.
func New(buffer int) (Sender, Receiver) {
	ch := make(chan Request, buffer)
	return Sender{ch}, Receiver{ch}
}

// IsZero reports whether s is the zero Sender (no channel attached). Callers
// that run without an approval channel — e.g. non-interactive tests — use
// this to fall back to auto-approval instead of blocking forever on a nil
// channel send.
func (s Sender) IsZero() bool { return s.ch == nil }

// Clone returns a copy of the sender for a subagent. Subagents route every
// approval through the parent's channel — the parent's loop is the sole
// decision-maker — and never obtain a receiver of their own.
func (s Sender) Clone() Sender { return s }

// RequestToolApproval enqueues a ToolApproval request and blocks until the
// Agent Loop replies or ctx is cancelled.
func (s Sender) RequestToolApproval(ctx context.Context, toolCallID, toolName string, args map[string]any, description string) (Decision, error) {
	req := ToolApproval{
		RequestID:   uuid.NewString(),
		ToolCallID:  toolCallID,
		ToolName:    toolName,
		Arguments:   args,
		Description: description,
		reply:       make(chan Decision, 1),
	}

	select {
	case s.ch <- req:
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}

	select {
	case d := <-req.reply:
		return d, nil
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}

// RequestAnswer enqueues a Question request and blocks until the Agent Loop
// replies or ctx is cancelled.
func (s Sender) RequestAnswer(ctx context.Context, items []QuestionItem) (Answer, error) {
	if err := validateQuestions(items); err != nil {
		return Answer{}, err
	}

	req := Question{
		RequestID: uuid.NewString(),
		Questions: items,
		reply:     make(chan Answer, 1),
	}

	select {
	case s.ch <- req:
	case <-ctx.Done():
		return Answer{}, ctx.Err()
	}

	select {
	case a := <-req.reply:
		return a, nil
	case <-ctx.Done():
		return Answer{}, ctx.Err()
	}
}

// Chan returns the underlying read-only channel for use in the Agent Loop's
// select-multiplex.
func (r Receiver) Chan() <-chan Request { return r.ch }

// Pending tracks in-flight requests by id so the Agent Loop can match a
// later ApproveTool/RejectTool/AnswerQuestion control message (matched by
// id, not by arrival order) to the request awaiting it, and so Cancel can
// resolve every outstanding one-shot in one pass.
type Pending struct {
	mu   sync.Mutex
	byID map[string]Request
}

// NewPending creates an empty tracker.
func NewPending() *Pending {
	return &Pending{byID: map[string]Request{}}
}

// Track records req under its id, replacing the teacher's unused reply
// stubs.
func (p *Pending) Track(req Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byID == nil {
		p.byID = map[string]Request{}
	}
	p.byID[req.ID()] = req
}

// Take removes and returns the request tracked under id, if any.
func (p *Pending) Take(id string) (Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.byID[id]
	if ok {
		delete(p.byID, id)
	}
	return req, ok
}

// Len reports the number of requests currently awaiting a reply.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byID)
}

// CancelAll rejects every pending ToolApproval with reason and answers every
// pending Question with an empty Answer, so no reply channel is left
// unresolved when the loop is cancelled. Safe to call with nothing pending.
func (p *Pending) CancelAll(reason string) {
	p.mu.Lock()
	reqs := make([]Request, 0, len(p.byID))
	for _, req := range p.byID {
		reqs = append(reqs, req)
	}
	p.byID = map[string]Request{}
	p.mu.Unlock()

	for _, req := range reqs {
		switch r := req.(type) {
		case ToolApproval:
			r.Reply(Decision{Approved: false, Reason: reason})
		case Question:
			r.Reply(Answer{})
		}
	}
}
