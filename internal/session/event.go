package session

import (
	"github.com/driftcode/drift/internal/approval"
	"github.com/driftcode/drift/internal/message"
)

// SessionInput is the sealed input union a caller pushes into a running
// session: a new user turn, a reply to an outstanding approval/question, a
// mode change, or a lifecycle command. The unexported marker method seals
// the set the same way approval.Request does, so no package outside session
// can introduce a new variant.
type SessionInput interface {
	isSessionInput()
}

// UserMessageInput starts a new turn with a plain-text user message.
type UserMessageInput struct {
	Content string
}

// UserMessageWithImagesInput starts a new turn with a multimodal user message.
type UserMessageWithImagesInput struct {
	Content string
	Images  []message.ImageData
}

// ApproveToolInput resolves a pending ToolApproval request as approved.
type ApproveToolInput struct {
	ToolCallID string
}

// RejectToolInput resolves a pending ToolApproval request as rejected.
type RejectToolInput struct {
	ToolCallID string
	Reason     string
}

// AnswerQuestionInput resolves a pending Question request. Answers maps each
// question's index (stringified) to its selected value; multi-select
// answers join their values with "|".
type AnswerQuestionInput struct {
	RequestID string
	Answers   map[string]string
}

// SetPlanModeInput toggles plan mode for subsequent turns.
type SetPlanModeInput struct {
	Active bool
}

// CancelInput aborts the turn currently in flight, if any.
type CancelInput struct{}

// StopInput ends the session: the loop waits for the turn in flight, if
// any, to return and then exits, closing its output channel.
type StopInput struct{}

// PauseInput suspends a session without ending it: no new turns start until Resume.
type PauseInput struct{}

// ResumeInput resumes a paused session.
type ResumeInput struct{}

func (UserMessageInput) isSessionInput()           {}
func (UserMessageWithImagesInput) isSessionInput() {}
func (ApproveToolInput) isSessionInput()           {}
func (RejectToolInput) isSessionInput()            {}
func (AnswerQuestionInput) isSessionInput()        {}
func (SetPlanModeInput) isSessionInput()           {}
func (CancelInput) isSessionInput()                {}
func (StopInput) isSessionInput()                  {}
func (PauseInput) isSessionInput()                 {}
func (ResumeInput) isSessionInput()                {}

// OutputEvent is the sealed output union the Agent Loop emits as it runs a
// turn. Like SessionInput, it is sealed via an unexported marker method so
// the Session Manager's fan-in can type-switch exhaustively.
type OutputEvent interface {
	isOutputEvent()
}

// ReadyEvent announces the session is accepting input.
type ReadyEvent struct{}

// IdleEvent announces a turn completed with no pending work.
type IdleEvent struct{}

// ThinkingEvent carries assistant reasoning text as it streams in.
type ThinkingEvent struct {
	Content string
}

// UserMessageEvent echoes a stored user message, tagged with its position id.
type UserMessageEvent struct {
	ID      string
	Content string
}

// AssistantMessageEvent carries a completed assistant turn.
type AssistantMessageEvent struct {
	ID           string
	Content      string
	InputTokens  int
	OutputTokens int
	ContextLimit int
}

// ToolStartEvent is emitted the moment a tool call is dispatched (ephemeral).
type ToolStartEvent struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolCallEvent is the persistent counterpart to ToolStartEvent.
type ToolCallEvent struct {
	ID        string
	Name      string
	Arguments map[string]any
	Rendered  string
}

// ToolPendingEvent announces a tool call is awaiting human approval.
type ToolPendingEvent struct {
	ID          string
	Name        string
	Arguments   map[string]any
	Description string
}

// ToolDoneEvent is the ephemeral completion signal for a tool call.
type ToolDoneEvent struct {
	ID      string
	Name    string
	Success bool
	Output  string
}

// ToolResultEvent is the persistent counterpart to ToolDoneEvent.
type ToolResultEvent struct {
	ID          string
	Name        string
	Success     bool
	Output      string
	Summary     string
	DiffPreview string
}

// QuestionEvent announces a Question request awaiting an answer.
type QuestionEvent struct {
	RequestID  string
	Questions  []approval.QuestionItem
	SubagentID string
}

// PlanModeChangedEvent announces a plan-mode transition.
type PlanModeChangedEvent struct {
	Active   bool
	PlanFile string
}

// CancelledEvent announces a turn was cancelled.
type CancelledEvent struct{}

// ErrorEvent announces a fatal condition for the current turn.
type ErrorEvent struct {
	Message string
}

func (ReadyEvent) isOutputEvent()             {}
func (IdleEvent) isOutputEvent()              {}
func (ThinkingEvent) isOutputEvent()           {}
func (UserMessageEvent) isOutputEvent()        {}
func (AssistantMessageEvent) isOutputEvent()   {}
func (ToolStartEvent) isOutputEvent()          {}
func (ToolCallEvent) isOutputEvent()           {}
func (ToolPendingEvent) isOutputEvent()        {}
func (ToolDoneEvent) isOutputEvent()           {}
func (ToolResultEvent) isOutputEvent()         {}
func (QuestionEvent) isOutputEvent()           {}
func (PlanModeChangedEvent) isOutputEvent()    {}
func (CancelledEvent) isOutputEvent()          {}
func (ErrorEvent) isOutputEvent()              {}
