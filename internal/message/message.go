// Package message defines the canonical message types and utilities used across the codebase.
// All packages import from here to avoid circular dependencies.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role represents the role of a message participant.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
)

// Message represents a chat message exchanged between user and assistant.
//
// ToolResult holds a single legacy tool-result message; ToolResults holds a
// batch (add_tool_results) sharing one user message, per the well-formed-trace
// invariant that lets many ToolResult blocks land on a single message. Both
// are internal convenience fields — ToLLMMessages is the canonical view that
// a provider actually sees, and it emits ToolUse/ToolResult as content blocks
// embedded in message content rather than as these side fields.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content,omitempty"`
	Images      []ImageData  `json:"images,omitempty"`
	Thinking    string       `json:"thinking,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResult  *ToolResult  `json:"tool_result,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ImageData represents image data for multimodal messages.
type ImageData struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
	FileName  string `json:"file_name"`
	Size      int    `json:"size"`
}

// ToolCall represents a tool call from the model.
type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name,omitempty"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// UserMessage creates a user message with optional images.
func UserMessage(text string, images []ImageData) Message {
	return Message{
		Role:    RoleUser,
		Content: text,
		Images:  images,
	}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(text, thinking string, calls []ToolCall) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   text,
		Thinking:  thinking,
		ToolCalls: calls,
	}
}

// ErrorResult creates an error ToolResult for a tool call.
func ErrorResult(tc ToolCall, content string) *ToolResult {
	return &ToolResult{
		ToolCallID: tc.ID,
		ToolName:   tc.Name,
		Content:    content,
		IsError:    true,
	}
}

// ToolResultMessage creates a tool result message.
func ToolResultMessage(result ToolResult) Message {
	return Message{
		Role:       RoleUser,
		ToolResult: &result,
	}
}

// ToolResultsMessage creates a single user message carrying a batch of tool
// results (add_tool_results). Observationally equal, after ToLLMMessages, to
// appending each result individually via ToolResultMessage: both collapse to
// one user message with one ToolResult block per result.
func ToolResultsMessage(results []ToolResult) Message {
	return Message{
		Role:        RoleUser,
		ToolResults: results,
	}
}

// allResults returns every ToolResult carried by m, whether stored singly or
// batched.
func (m Message) allResults() []ToolResult {
	if m.ToolResult == nil && len(m.ToolResults) == 0 {
		return nil
	}
	out := make([]ToolResult, 0, len(m.ToolResults)+1)
	if m.ToolResult != nil {
		out = append(out, *m.ToolResult)
	}
	out = append(out, m.ToolResults...)
	return out
}

// ContentBlockType identifies the variant of a ContentBlock.
type ContentBlockType string

const (
	BlockText       ContentBlockType = "text"
	BlockToolUse    ContentBlockType = "tool_use"
	BlockToolResult ContentBlockType = "tool_result"
)

// ContentBlock is one granular unit of a structured message: Text, ToolUse,
// or ToolResult. Exactly one of Text/ToolUse/ToolResult is set, selected by
// Type.
type ContentBlock struct {
	Type       ContentBlockType `json:"type"`
	Text       string           `json:"text,omitempty"`
	ToolUse    *ToolUseBlock    `json:"tool_use,omitempty"`
	ToolResult *ToolResultBlock `json:"tool_result,omitempty"`
}

// ToolUseBlock is a structured invocation proposed by the assistant.
type ToolUseBlock struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

// ToolResultBlock is the outcome for a prior ToolUse, carried on a user-role
// message.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// LLMMessage is the provider-facing shape of a Message: a role plus an
// ordered list of content blocks. This is what ToLLMMessages produces and
// what a provider client should serialize — never the Message side fields
// directly.
type LLMMessage struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ErrMalformedTrace is returned by ToLLMMessages when a ToolUse block has no
// matching ToolResult before the next assistant message, or a ToolResult
// references an id that was never proposed.
var ErrMalformedTrace = fmt.Errorf("malformed tool-use/tool-result trace")

// ToLLMMessages normalizes the internal message log into the provider-facing
// shape, embedding ToolUse and ToolResult as content blocks (never as Message
// side fields) and enforcing the well-formed-trace invariant: every ToolUse
// with id X is followed, before the next assistant message, by exactly one
// ToolResult with tool_use_id X. Consecutive tool-result-only user messages
// collapse into a single LLMMessage, matching add_tool_results batching.
func ToLLMMessages(msgs []Message) ([]LLMMessage, error) {
	out := make([]LLMMessage, 0, len(msgs))
	pending := map[string]bool{} // tool_use ids awaiting a result

	flushPendingCheck := func() error {
		if len(pending) > 0 {
			return fmt.Errorf("%w: tool_use id(s) without a tool_result before next assistant message", ErrMalformedTrace)
		}
		return nil
	}

	for _, m := range msgs {
		results := m.allResults()

		switch {
		case m.Role == RoleAssistant:
			if err := flushPendingCheck(); err != nil {
				return nil, err
			}
			blocks := make([]ContentBlock, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				blocks = append(blocks, ContentBlock{Type: BlockText, Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, ContentBlock{
					Type:    BlockToolUse,
					ToolUse: &ToolUseBlock{ID: tc.ID, Name: tc.Name, Input: tc.Input},
				})
				pending[tc.ID] = true
			}
			out = append(out, LLMMessage{Role: RoleAssistant, Content: blocks})

		case len(results) > 0:
			blocks := make([]ContentBlock, 0, len(results))
			for _, r := range results {
				if !pending[r.ToolCallID] {
					return nil, fmt.Errorf("%w: tool_result for unknown tool_use id %q", ErrMalformedTrace, r.ToolCallID)
				}
				delete(pending, r.ToolCallID)
				blocks = append(blocks, ContentBlock{
					Type: BlockToolResult,
					ToolResult: &ToolResultBlock{
						ToolUseID: r.ToolCallID,
						Content:   r.Content,
						IsError:   r.IsError,
					},
				})
			}
			if n := len(out); n > 0 && out[n-1].Role == RoleUser && allToolResultBlocks(out[n-1].Content) {
				out[n-1].Content = append(out[n-1].Content, blocks...)
			} else {
				out = append(out, LLMMessage{Role: RoleUser, Content: blocks})
			}

		default:
			blocks := []ContentBlock{{Type: BlockText, Text: m.Content}}
			out = append(out, LLMMessage{Role: m.Role, Content: blocks})
		}
	}

	if err := flushPendingCheck(); err != nil {
		return nil, err
	}
	return out, nil
}

func allToolResultBlocks(blocks []ContentBlock) bool {
	for _, b := range blocks {
		if b.Type != BlockToolResult {
			return false
		}
	}
	return len(blocks) > 0
}

// ParseToolInput deserializes JSON tool input into a params map.
func ParseToolInput(input string) (map[string]any, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return nil, err
	}
	return params, nil
}

// BuildConversationText converts messages to text for summarization.
func BuildConversationText(msgs []Message) string {
	var sb strings.Builder
	sb.WriteString("Please summarize this coding conversation:\n\n")

	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			if msg.ToolResult != nil {
				content := msg.ToolResult.Content
				if len(content) > 500 {
					content = content[:500] + "...[truncated]"
				}
				fmt.Fprintf(&sb, "[Tool Result: %s]\n%s\n\n", msg.ToolResult.ToolName, content)
			} else {
				fmt.Fprintf(&sb, "User: %s\n\n", msg.Content)
			}

		case RoleAssistant:
			if msg.Content != "" {
				fmt.Fprintf(&sb, "Assistant: %s\n\n", msg.Content)
			}
			if len(msg.ToolCalls) > 0 {
				for _, tc := range msg.ToolCalls {
					fmt.Fprintf(&sb, "[Tool Call: %s]\n", tc.Name)
				}
				sb.WriteString("\n")
			}
		}
	}

	return sb.String()
}

// CompletionResponse represents a completion response from an LLM provider.
type CompletionResponse struct {
	Content    string     `json:"content,omitempty"`
	Thinking   string     `json:"thinking,omitempty"` // Reasoning content for thinking models
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason"` // "end_turn", "tool_use", "max_tokens"
	Usage      Usage      `json:"usage"`
}

// Usage contains token usage information.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChunkType represents the type of a stream chunk.
type ChunkType string

const (
	ChunkTypeText      ChunkType = "text"
	ChunkTypeThinking  ChunkType = "thinking"
	ChunkTypeToolStart ChunkType = "tool_start"
	ChunkTypeToolInput ChunkType = "tool_input"
	ChunkTypeDone      ChunkType = "done"
	ChunkTypeError     ChunkType = "error"
)

// StreamChunk represents a chunk in a streaming response.
type StreamChunk struct {
	Type     ChunkType
	Text     string              // For text chunks
	ToolID   string              // For tool_start chunks
	ToolName string              // For tool_start chunks
	Response *CompletionResponse // For done chunks
	Error    error               // For error chunks
}
