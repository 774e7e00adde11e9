package session

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/driftcode/drift/internal/approval"
	"github.com/driftcode/drift/internal/compact"
	"github.com/driftcode/drift/internal/core"
	"github.com/driftcode/drift/internal/hooks"
	"github.com/driftcode/drift/internal/message"
	"github.com/driftcode/drift/internal/skill"
	"github.com/driftcode/drift/internal/tokens"
	"github.com/driftcode/drift/internal/tool"
)

// maxTurnsPerMessage is the hard ceiling on provider round-trips a single
// user message may drive before the loop gives up and emits an Error.
const maxTurnsPerMessage = 100

// maxToolOutputChars truncates an oversized tool result before it is folded
// back into the conversation, so one runaway tool can't blow the context
// budget on its own.
const maxToolOutputChars = 30000

// AgentLoop drives one session's conversation: it owns a core.Loop and
// turns its Stream/Collect/AddResponse/FilterToolCalls/ExecTool seam into a
// concurrent, cancellable, approval-aware turn loop. Tool calls within a
// turn run concurrently; a single select-multiplex arbitrates between tool
// completion, pending approval requests, and inbound control messages.
type AgentLoop struct {
	ID         string
	Core       *core.Loop
	Approval   approval.Receiver
	Pending    *approval.Pending
	Accountant *tokens.Accountant
	Compactor  *compact.Manager

	in  chan SessionInput
	out chan OutputEvent

	mu                sync.Mutex
	pendingByToolCall map[string]string // tool call id -> approval request id
}

// NewAgentLoop wires a core.Loop into a running AgentLoop. recv must be the
// Receiver half of the same channel core.Loop's Approval Sender writes to.
func NewAgentLoop(id string, c *core.Loop, recv approval.Receiver, pending *approval.Pending, acct *tokens.Accountant, mgr *compact.Manager) *AgentLoop {
	return &AgentLoop{
		ID:                id,
		Core:              c,
		Approval:          recv,
		Pending:           pending,
		Accountant:        acct,
		Compactor:         mgr,
		in:                make(chan SessionInput, 16),
		out:               make(chan OutputEvent, 64),
		pendingByToolCall: map[string]string{},
	}
}

// Push enqueues an input for the loop to process. Safe to call from any
// goroutine; never call after Stop has been pushed.
func (a *AgentLoop) Push(input SessionInput) {
	a.in <- input
}

// Outputs returns the loop's output event stream.
func (a *AgentLoop) Outputs() <-chan OutputEvent {
	return a.out
}

// Run is the loop's main goroutine. It multiplexes inbound SessionInputs:
// lifecycle and mode-change inputs are handled inline, a new user message
// starts a turn in its own goroutine, and everything else that can arrive
// mid-turn (ApproveTool/RejectTool/AnswerQuestion/Cancel) is forwarded to
// the turn's control channel. Exactly one turn runs at a time; a second
// user message arriving while one is in flight is dropped, matching a
// single-threaded conversation.
func (a *AgentLoop) Run(ctx context.Context) {
	defer close(a.out)
	a.emit(ReadyEvent{})

	control := make(chan SessionInput, 8)
	var turnDone chan struct{}
	paused := false

	for {
		select {
		case <-ctx.Done():
			return

		case <-turnDone:
			turnDone = nil

		case inp, ok := <-a.in:
			if !ok {
				if turnDone != nil {
					<-turnDone
				}
				return
			}

			switch v := inp.(type) {
			case StopInput:
				if turnDone != nil {
					<-turnDone
				}
				return

			case PauseInput:
				paused = true

			case ResumeInput:
				paused = false

			case SetPlanModeInput:
				a.setPlanMode(v.Active)

			case UserMessageInput, UserMessageWithImagesInput:
				if paused || turnDone != nil {
					continue
				}
				done := make(chan struct{})
				turnDone = done
				go func() {
					defer close(done)
					a.runTurn(ctx, v, control)
				}()

			case ApproveToolInput, RejectToolInput, AnswerQuestionInput, CancelInput:
				select {
				case control <- inp:
				default:
				}
			}
		}
	}
}

func (a *AgentLoop) emit(ev OutputEvent) {
	a.out <- ev
}

func (a *AgentLoop) setPlanMode(active bool) {
	if a.Core.Tool != nil {
		a.Core.Tool.PlanMode = active
	}
	if a.Core.System != nil {
		a.Core.System.PlanMode = active
	}
	a.emit(PlanModeChangedEvent{Active: active})
}

func extractUserInput(input SessionInput) (string, []message.ImageData) {
	switch v := input.(type) {
	case UserMessageInput:
		return v.Content, nil
	case UserMessageWithImagesInput:
		return v.Content, v.Images
	default:
		return "", nil
	}
}

// runTurn implements the turn algorithm: hook-gated prompt submission,
// context accounting, the provider round-trip, concurrent tool dispatch,
// and the select-multiplex over tool completion / approval / control
// messages, looping until the model stops calling tools or the turn cap
// is hit.
func (a *AgentLoop) runTurn(parent context.Context, input SessionInput, control <-chan SessionInput) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	content, images := extractUserInput(input)

	if a.Core.Hooks != nil {
		outcome := a.Core.Hooks.Execute(ctx, hooks.UserPromptSubmit, hooks.HookInput{Prompt: content})
		if outcome.ShouldBlock {
			a.emit(ErrorEvent{Message: "Blocked by hook: " + outcome.BlockReason})
			return
		}
		if outcome.AdditionalContext != "" {
			content = content + "\n\n<user-prompt-submit-hook>\n" + outcome.AdditionalContext + "\n</user-prompt-submit-hook>"
		}
	}

	a.Core.AddUser(content, images)
	a.emit(UserMessageEvent{ID: uuid.NewString(), Content: content})

	for turn := 0; turn < maxTurnsPerMessage; turn++ {
		if ctx.Err() != nil {
			a.emit(CancelledEvent{})
			return
		}

		a.maybeCompact(ctx)

		resp, err := core.Collect(ctx, a.Core.Stream(ctx))
		if err != nil {
			if ctx.Err() != nil {
				a.emit(CancelledEvent{})
			} else {
				a.emit(ErrorEvent{Message: err.Error()})
			}
			return
		}

		calls := a.Core.AddResponse(resp)
		a.emit(a.assistantEvent(resp))

		if len(calls) == 0 {
			a.emit(IdleEvent{})
			return
		}

		allowed, blocked := a.Core.FilterToolCalls(ctx, calls)
		for _, br := range blocked {
			a.Core.AddToolResult(br)
			a.emit(ToolDoneEvent{ID: br.ToolCallID, Name: br.ToolName, Success: false, Output: br.Content})
			a.emit(ToolResultEvent{ID: br.ToolCallID, Name: br.ToolName, Success: false, Output: br.Content})
		}

		if len(allowed) == 0 {
			continue
		}

		if cancelled := a.dispatchTools(ctx, allowed, control); cancelled {
			a.emit(CancelledEvent{})
			return
		}
	}

	a.emit(ErrorEvent{Message: fmt.Sprintf("turn limit of %d reached for this message", maxTurnsPerMessage)})
}

func (a *AgentLoop) assistantEvent(resp *message.CompletionResponse) OutputEvent {
	ev := AssistantMessageEvent{
		ID:           uuid.NewString(),
		Content:      resp.Content,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	if a.Accountant != nil && a.Core.Client != nil {
		usage := a.Accountant.Usage(a.Core.Client.Name(), a.Core.Client.ModelID(),
			a.Core.Client.Tokens().InputTokens, a.Core.Client.Tokens().OutputTokens)
		ev.ContextLimit = usage.Limit
	}
	return ev
}

func (a *AgentLoop) maybeCompact(ctx context.Context) {
	if a.Compactor == nil || a.Accountant == nil || a.Core.Client == nil {
		return
	}
	if !a.Compactor.Tick() {
		return
	}

	usage := a.Core.Client.Tokens()
	if !a.Compactor.ShouldCompact(a.Core.Client.Name(), a.Core.Client.ModelID(), usage.InputTokens, usage.OutputTokens) {
		return
	}

	summary, _, err := a.Compactor.Run(ctx, a.Core.Client, a.Core.Messages(), "")
	if err != nil {
		return
	}
	a.Core.SetMessages([]message.Message{summary})
}

// dispatchTools runs every allowed tool call concurrently and arbitrates
// completion, approval requests, and control messages over one select
// until all calls finish or the turn is cancelled.
func (a *AgentLoop) dispatchTools(ctx context.Context, calls []message.ToolCall, control <-chan SessionInput) (cancelled bool) {
	toolCtx, toolCancel := context.WithCancel(ctx)
	defer toolCancel()

	done := make(chan message.ToolResult, len(calls))
	pending := make(map[string]message.ToolCall, len(calls))

	var wg sync.WaitGroup
	for _, tc := range calls {
		args, _ := message.ParseToolInput(tc.Input)
		a.emit(ToolStartEvent{ID: tc.ID, Name: tc.Name, Arguments: args})
		a.emit(ToolCallEvent{ID: tc.ID, Name: tc.Name, Arguments: args, Rendered: renderToolCall(tc.Name, args)})

		if _, ok := tool.Get(tc.Name); !ok {
			// Record unknown tools immediately; never spawn a goroutine for
			// a call that has nothing to execute.
			done <- message.ToolResult{ToolCallID: tc.ID, ToolName: tc.Name, Content: fmt.Sprintf("Unknown tool: %s", tc.Name), IsError: true}
			continue
		}

		pending[tc.ID] = tc
		wg.Add(1)
		go func(tc message.ToolCall) {
			defer wg.Done()
			result := a.Core.ExecTool(toolCtx, tc)
			done <- *result
		}(tc)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	remaining := len(calls)
	for remaining > 0 {
		select {
		case <-ctx.Done():
			a.cancelOutstanding(pending)
			return true

		case result, ok := <-done:
			if !ok {
				return false
			}
			delete(pending, result.ToolCallID)
			remaining--
			a.finalizeToolResult(ctx, calls, result)

		case req, ok := <-a.Approval.Chan():
			if !ok {
				continue
			}
			a.trackApprovalRequest(req)

		case inp, ok := <-control:
			if !ok {
				continue
			}
			switch v := inp.(type) {
			case ApproveToolInput:
				a.resolveToolApproval(v.ToolCallID, true, "")
			case RejectToolInput:
				a.resolveToolApproval(v.ToolCallID, false, v.Reason)
			case AnswerQuestionInput:
				a.resolveQuestion(v.RequestID, v.Answers)
			case CancelInput:
				toolCancel()
				a.Pending.CancelAll("Cancelled by user")
				a.cancelOutstanding(pending)
				return true
			}
		}
	}
	return false
}

func (a *AgentLoop) trackApprovalRequest(req approval.Request) {
	switch r := req.(type) {
	case approval.ToolApproval:
		a.mu.Lock()
		a.pendingByToolCall[r.ToolCallID] = r.RequestID
		a.mu.Unlock()
		a.Pending.Track(req)
		a.emit(ToolPendingEvent{ID: r.ToolCallID, Name: r.ToolName, Arguments: r.Arguments, Description: r.Description})
	case approval.Question:
		a.Pending.Track(req)
		a.emit(QuestionEvent{RequestID: r.RequestID, Questions: r.Questions})
	}
}

func (a *AgentLoop) resolveToolApproval(toolCallID string, approved bool, reason string) {
	a.mu.Lock()
	requestID, ok := a.pendingByToolCall[toolCallID]
	if ok {
		delete(a.pendingByToolCall, toolCallID)
	}
	a.mu.Unlock()
	if !ok {
		return
	}

	req, ok := a.Pending.Take(requestID)
	if !ok {
		return
	}
	ta, ok := req.(approval.ToolApproval)
	if !ok {
		return
	}
	ta.Reply(approval.Decision{Approved: approved, Reason: reason})
}

// resolveQuestion converts the flat string-keyed answer map carried on
// AnswerQuestionInput into approval.Answer's per-question selection slices.
// Answers are keyed by stringified question index; a multi-select answer
// joins its chosen values with "|".
func (a *AgentLoop) resolveQuestion(requestID string, answers map[string]string) {
	req, ok := a.Pending.Take(requestID)
	if !ok {
		return
	}
	q, ok := req.(approval.Question)
	if !ok {
		return
	}

	selections := make([][]string, len(q.Questions))
	for i := range q.Questions {
		raw, ok := answers[strconv.Itoa(i)]
		if !ok || raw == "" {
			selections[i] = []string{}
			continue
		}
		selections[i] = strings.Split(raw, "|")
	}
	q.Reply(approval.Answer{Selections: selections})
}

// cancelOutstanding synthesizes cancellation results for every tool call
// still in flight. The underlying goroutines keep running against a
// cancelled context and will eventually send into the buffered done
// channel on their own; nothing further needs to read it.
func (a *AgentLoop) cancelOutstanding(pending map[string]message.ToolCall) {
	for _, tc := range pending {
		const reason = "Cancelled by user"
		a.Core.AddToolResult(message.ToolResult{ToolCallID: tc.ID, ToolName: tc.Name, Content: reason, IsError: true})
		a.emit(ToolDoneEvent{ID: tc.ID, Name: tc.Name, Success: false, Output: reason})
		a.emit(ToolResultEvent{ID: tc.ID, Name: tc.Name, Success: false, Output: reason})
	}
}

// finalizeToolResult applies PostToolUse hooks and truncation, then either
// folds the result straight back into the conversation or, for the Skill
// tool, applies the message-injection / subagent-spawn special case.
func (a *AgentLoop) finalizeToolResult(ctx context.Context, calls []message.ToolCall, result message.ToolResult) {
	content := result.Content
	if a.Core.Hooks != nil {
		event := hooks.PostToolUse
		errMsg := ""
		if result.IsError {
			event = hooks.PostToolUseFailure
			errMsg = content
		}
		outcome := a.Core.Hooks.Execute(ctx, event, hooks.HookInput{
			ToolName:     result.ToolName,
			ToolUseID:    result.ToolCallID,
			ToolResponse: content,
			Error:        errMsg,
		})
		if outcome.AdditionalContext != "" {
			content = content + "\n\n<post-tool-hook>\n" + outcome.AdditionalContext + "\n</post-tool-hook>"
		}
	}

	if len(content) > maxToolOutputChars {
		content = content[:maxToolOutputChars] + "\n... (truncated)"
	}

	if result.ToolName == "Skill" {
		a.finalizeSkillResult(calls, result, content)
		return
	}

	a.Core.AddToolResult(message.ToolResult{ToolCallID: result.ToolCallID, ToolName: result.ToolName, Content: content, IsError: result.IsError})
	a.emit(ToolDoneEvent{ID: result.ToolCallID, Name: result.ToolName, Success: !result.IsError, Output: content})
	a.emit(ToolResultEvent{ID: result.ToolCallID, Name: result.ToolName, Success: !result.IsError, Output: content})
}

// finalizeSkillResult replaces the stored tool result with a short
// placeholder and injects the skill's content as a new user message
// instead, either a subagent-dispatch instruction (SpawnSubagent skills)
// or the skill's own instructions wrapped in a <command-name> tag.
func (a *AgentLoop) finalizeSkillResult(calls []message.ToolCall, result message.ToolResult, content string) {
	var tc message.ToolCall
	for _, c := range calls {
		if c.ID == result.ToolCallID {
			tc = c
			break
		}
	}
	params, _ := message.ParseToolInput(tc.Input)
	name, _ := params["skill"].(string)

	var sk *skill.Skill
	if skill.DefaultRegistry != nil {
		if s, ok := skill.DefaultRegistry.Get(name); ok {
			sk = s
		} else {
			sk = skill.DefaultRegistry.FindByPartialName(name)
		}
	}

	skillName := name
	if sk != nil {
		skillName = sk.FullName()
	}

	if sk != nil && sk.SpawnSubagent {
		agentType := sk.SpawnAgentType
		if agentType == "" {
			agentType = "general-purpose"
		}
		placeholder := fmt.Sprintf("Dispatched skill %q to a %s subagent.", skillName, agentType)
		a.Core.AddToolResult(message.ToolResult{ToolCallID: result.ToolCallID, ToolName: result.ToolName, Content: placeholder, IsError: false})
		a.Core.AddUser(fmt.Sprintf("Run the %q skill by invoking Task with subagent_type %q.", skillName, agentType), nil)
		a.emit(ToolDoneEvent{ID: result.ToolCallID, Name: result.ToolName, Success: true, Output: placeholder})
		a.emit(ToolResultEvent{ID: result.ToolCallID, Name: result.ToolName, Success: true, Output: placeholder, Summary: placeholder})
		return
	}

	placeholder := fmt.Sprintf("Loaded skill %q.", skillName)
	a.Core.AddToolResult(message.ToolResult{ToolCallID: result.ToolCallID, ToolName: result.ToolName, Content: placeholder, IsError: result.IsError})
	a.Core.AddUser(fmt.Sprintf("<command-name>/%s</command-name>\n\n%s", skillName, content), nil)
	a.emit(ToolDoneEvent{ID: result.ToolCallID, Name: result.ToolName, Success: !result.IsError, Output: content})
	a.emit(ToolResultEvent{ID: result.ToolCallID, Name: result.ToolName, Success: !result.IsError, Output: content, Summary: placeholder})
}

func renderToolCall(name string, args map[string]any) string {
	parts := make([]string, 0, len(args))
	for k, v := range args {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}
