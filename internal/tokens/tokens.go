// Package tokens implements the Token Accountant: counting text against a
// per-model context limit and deciding when the conversation should be
// compacted.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/driftcode/drift/internal/log"
	"github.com/driftcode/drift/internal/message"
)

// defaultContextLimit is used when a provider's ListModels doesn't report
// InputTokenLimit for the active model.
const defaultContextLimit = 200_000

// Thresholds controls when should_compact fires.
type Thresholds struct {
	// AutoCompactThreshold is the fraction of the limit that must be used
	// before compaction is considered. Default 0.75.
	AutoCompactThreshold float64
	// MinRemainingTokens is an absolute floor: compaction only fires once
	// fewer than this many tokens remain in the window. Default 20000.
	MinRemainingTokens int
}

// DefaultThresholds matches the spec defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoCompactThreshold: 0.75, MinRemainingTokens: 20_000}
}

// ContextUsage reports current token consumption against a model's limit.
type ContextUsage struct {
	InputTokens    int
	OutputTokens   int
	Limit          int
	UsedPercentage float64
	ShouldCompact  bool
	Breakdown      Breakdown
}

// Breakdown attributes tokens to the coarse categories a conversation can be
// made of.
type Breakdown struct {
	System       int
	Memory       int
	Conversation int
	Tool         int
}

// Accountant counts tokens and computes ContextUsage for one provider/model
// pair. Counting prefers a real tokenizer (tiktoken-go) when its encoding
// loads successfully; otherwise it falls back to a deterministic heuristic.
type Accountant struct {
	mu         sync.RWMutex
	encoding   *tiktoken.Tiktoken
	thresholds Thresholds
	limits     map[string]int // "provider/model" -> context limit
}

// New creates an Accountant for the given provider/model, seeding its limit
// table with limit (0 means "use defaultContextLimit until told otherwise").
// It attempts to load a tiktoken-go encoding for model; when that fails
// (unknown model family, no embedded BPE ranks), Count falls back to the
// heuristic for the lifetime of this Accountant.
func New(provider, model string, limit int) *Accountant {
	a := &Accountant{
		thresholds: DefaultThresholds(),
		limits:     map[string]int{},
	}
	a.SetLimit(provider, model, limit)

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(encodingForFamily(provider))
	}
	if err != nil {
		log.Logger().Debug("tiktoken encoding unavailable, falling back to heuristic token counter")
		return a
	}
	a.encoding = enc
	return a
}

// SetThresholds overrides the compaction thresholds (e.g. from settings).
func (a *Accountant) SetThresholds(t Thresholds) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.thresholds = t
}

// SetLimit records the context-window limit for provider/model. limit<=0
// falls back to defaultContextLimit.
func (a *Accountant) SetLimit(provider, model string, limit int) {
	if limit <= 0 {
		limit = defaultContextLimit
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.limits[limitKey(provider, model)] = limit
}

func (a *Accountant) limitFor(provider, model string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if l, ok := a.limits[limitKey(provider, model)]; ok {
		return l
	}
	return defaultContextLimit
}

func limitKey(provider, model string) string { return provider + "/" + model }

// Count returns the number of tokens text encodes to. Uses tiktoken-go when
// an encoding loaded successfully; otherwise applies the ≈4-chars/token
// heuristic, nudged for whitespace- and punctuation-heavy text (both count
// for less than a full token on average in BPE encodings).
func (a *Accountant) Count(text string) int {
	a.mu.RLock()
	enc := a.encoding
	a.mu.RUnlock()

	if enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return heuristicCount(text)
}

func heuristicCount(text string) int {
	if text == "" {
		return 0
	}
	whitespace := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")
	dense := len(text) - whitespace
	// Whitespace runs typically merge into the surrounding token; weight it
	// at a quarter of a normal character's contribution.
	return dense/4 + whitespace/16 + 1
}

// Usage computes a ContextUsage from provider-reported input/output token
// counts. should_compact is true only once BOTH the ratio and absolute-floor
// conditions hold, per the two-part rule: used_percentage >=
// auto_compact_threshold AND (limit - used) <= min_remaining_tokens. This
// intentionally never fires on a heuristic-only count before the first real
// provider response of a turn, since input+output both start at 0 then.
func (a *Accountant) Usage(provider, model string, input, output int) ContextUsage {
	limit := a.limitFor(provider, model)
	used := input + output

	a.mu.RLock()
	th := a.thresholds
	a.mu.RUnlock()

	var pct float64
	if limit > 0 {
		pct = float64(used) / float64(limit)
	}
	remaining := limit - used
	shouldCompact := used > 0 && pct >= th.AutoCompactThreshold && remaining <= th.MinRemainingTokens

	return ContextUsage{
		InputTokens:    input,
		OutputTokens:   output,
		Limit:          limit,
		UsedPercentage: pct,
		ShouldCompact:  shouldCompact,
	}
}

// Breakdown attributes the tokens in msgs (plus a separate system prompt) to
// system/memory/conversation/tool buckets by scanning message roles and
// content-block types. "Memory" covers prior compaction summaries, detected
// by the <summary> marker a compacted message is wrapped in.
func (a *Accountant) Breakdown(systemPrompt string, msgs []message.Message) Breakdown {
	b := Breakdown{System: a.Count(systemPrompt)}

	for _, m := range msgs {
		switch {
		case m.Role == message.RoleUser && strings.Contains(m.Content, "<summary>"):
			b.Memory += a.Count(m.Content)
		case m.ToolResult != nil || len(m.ToolResults) > 0:
			if m.ToolResult != nil {
				b.Tool += a.Count(m.ToolResult.Content)
			}
			for _, r := range m.ToolResults {
				b.Tool += a.Count(r.Content)
			}
		default:
			b.Conversation += a.Count(m.Content)
			for _, tc := range m.ToolCalls {
				b.Conversation += a.Count(tc.Input)
			}
		}
	}
	return b
}

// encodingForFamily maps a provider name to a tiktoken base encoding to try
// before falling back to the heuristic. Anthropic and Gemini don't publish a
// BPE-compatible tokenizer, so cl100k_base is used as the nearest available
// approximation, matching the reasoning in the corpus' own tokenizer utility.
func encodingForFamily(provider string) string {
	switch strings.ToLower(provider) {
	case "openai", "moonshot":
		return "o200k_base"
	default:
		return "cl100k_base"
	}
}
