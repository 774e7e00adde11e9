// Package prompt assembles the system prompt and effective tool restriction
// for a single turn from its layered inputs: a base prompt, hook-injected
// context, an optional agent definition, zero or more skills, and an
// optional command invocation. It also implements the tool-spec pattern
// language (`*`, `Name`, `Name(pattern)`) shared by agent/skill/command tool
// restrictions.
package prompt

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/driftcode/drift/internal/config"
)

// ToolAccessMode mirrors agent.ToolAccessMode's allowlist/denylist
// distinction. Defined locally (rather than imported) so this package stays
// a leaf: agent/task assemble prompts by calling into here, not the reverse.
type ToolAccessMode string

const (
	ToolAccessAllowlist ToolAccessMode = "allowlist"
	ToolAccessDenylist  ToolAccessMode = "denylist"
)

// RestrictionFromAccess converts an agent or skill's {mode, allow, deny}
// triple into a ToolRestriction.
func RestrictionFromAccess(mode ToolAccessMode, allow, deny []string) ToolRestriction {
	if mode == ToolAccessDenylist {
		return ToolRestriction{Deny: deny}
	}
	return ToolRestriction{Allow: allow, Deny: deny}
}

// ToolRestriction is an allow/deny pair of tool-spec patterns.
type ToolRestriction struct {
	Allow []string
	Deny  []string
}

// Permits reports whether a call to toolName with args is allowed under r.
// Deny patterns always win; an empty Allow set means "allow everything".
func (r ToolRestriction) Permits(toolName string, args map[string]any) bool {
	for _, d := range r.Deny {
		if MatchToolSpec(d, toolName, args) {
			return false
		}
	}
	if len(r.Allow) == 0 {
		return true
	}
	for _, a := range r.Allow {
		if MatchToolSpec(a, toolName, args) {
			return true
		}
	}
	return false
}

// Intersect combines r with other: Allow sets intersect (an empty Allow set
// is the universal set, and so is the identity element of intersection);
// Deny sets union.
func (r ToolRestriction) Intersect(other ToolRestriction) ToolRestriction {
	return ToolRestriction{
		Allow: intersectPatterns(r.Allow, other.Allow),
		Deny:  unionPatterns(r.Deny, other.Deny),
	}
}

func intersectPatterns(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	set := make(map[string]bool, len(b))
	for _, p := range b {
		set[p] = true
	}
	var out []string
	for _, p := range a {
		if set[p] {
			out = append(out, p)
		}
	}
	return out
}

func unionPatterns(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, p := range a {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range b {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// filePathTools are tools whose pattern argument is a file path, matched as
// a real path-aware glob (via doublestar) rather than the teacher's
// string-prefix/suffix heuristic.
var filePathTools = map[string]bool{
	"Read":         true,
	"Write":        true,
	"Edit":         true,
	"NotebookEdit": true,
}

// MatchToolSpec reports whether a tool call matches a single tool-spec
// pattern: "*" matches everything, "Name" matches the tool name with any
// arguments, "Name(pattern)" additionally matches pattern against the
// call's arguments.
//
// For file tools, pattern is matched as a doublestar glob against file_path
// (so "Edit(internal/**/*.go)" matches path segments correctly). For every
// other tool — Bash's command-prefix matching in particular — pattern
// matching is delegated to config.BuildRule/MatchRule, the same rule engine
// permission.Settings uses for allow/deny/ask lists.
func MatchToolSpec(spec, toolName string, args map[string]any) bool {
	if spec == "*" || spec == "" {
		return true
	}

	name, pattern, hasPattern := splitSpec(spec)
	if name != toolName {
		return false
	}
	if !hasPattern {
		return true
	}

	if filePathTools[toolName] && looksLikeGlob(pattern) {
		if fp, ok := args["file_path"].(string); ok {
			if matched, _ := doublestar.Match(pattern, fp); matched {
				return true
			}
		}
	}

	rule := config.BuildRule(toolName, args)
	return config.MatchRule(rule, name+"("+pattern+")")
}

func splitSpec(spec string) (name, pattern string, hasPattern bool) {
	name, rest, found := strings.Cut(spec, "(")
	if !found {
		return spec, "", false
	}
	return name, strings.TrimSuffix(rest, ")"), true
}

func looksLikeGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// AgentPrompt carries the agent-definition-derived layer of an assembly.
type AgentPrompt struct {
	SystemPrompt string
	Tools        ToolRestriction
	Model        string
	MaxTurns     int
}

// SkillPrompt carries one active skill's contribution to the assembly.
type SkillPrompt struct {
	Instructions string
	Tools        ToolRestriction
}

// CommandInvocation carries a command's content plus the caller-supplied
// argument string substituted for $ARGUMENTS / ${ARGUMENTS}.
type CommandInvocation struct {
	Command   *Command
	Arguments string
}

// AssembleInput collects every layer the assembler composes, in the fixed
// concatenation order: base, hook contexts, agent, skills, command.
type AssembleInput struct {
	Base         string
	HookContexts []string
	Agent        *AgentPrompt
	Skills       []SkillPrompt
	Command      *CommandInvocation
	Env          map[string]string
	Extra        ToolRestriction
}

// AssembledPrompt is the assembler's output.
type AssembledPrompt struct {
	SystemPrompt string
	Tools        ToolRestriction
	Model        string
	MaxTurns     int
	Metadata     map[string]string
}

var argumentsPattern = regexp.MustCompile(`\$\{ARGUMENTS\}|\$ARGUMENTS`)

// substituteArguments replaces $ARGUMENTS and ${ARGUMENTS} with arguments.
func substituteArguments(content, arguments string) string {
	if content == "" {
		return content
	}
	return argumentsPattern.ReplaceAllString(content, arguments)
}

var templateVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteVariables replaces ${KEY} with env[KEY] for every key present in
// env, leaving unknown references untouched.
func substituteVariables(text string, env map[string]string) string {
	if len(env) == 0 {
		return text
	}
	return templateVarPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := templateVarPattern.FindStringSubmatch(m)
		if sub == nil {
			return m
		}
		if v, ok := env[sub[1]]; ok {
			return v
		}
		return m
	})
}

// Assemble composes a system prompt and effective tool restriction from in,
// per the fixed layering order: base, hook contexts, agent system prompt,
// skill instructions, command content (with argument substitution), finally
// template-variable substitution over the joined text.
func Assemble(in AssembleInput) AssembledPrompt {
	var parts []string
	addPart := func(s string) {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}

	addPart(in.Base)
	for _, hc := range in.HookContexts {
		addPart(hc)
	}

	restriction := in.Extra
	model := ""
	maxTurns := 0
	metadata := map[string]string{}

	if in.Agent != nil {
		addPart(in.Agent.SystemPrompt)
		restriction = restriction.Intersect(in.Agent.Tools)
		model = in.Agent.Model
		maxTurns = in.Agent.MaxTurns
	}

	for _, s := range in.Skills {
		addPart(s.Instructions)
		restriction = restriction.Intersect(s.Tools)
	}

	if in.Command != nil && in.Command.Command != nil {
		cmd := in.Command.Command
		addPart(substituteArguments(cmd.Content, in.Command.Arguments))
		restriction = restriction.Intersect(ToolRestriction{
			Allow: cmd.AllowedTools,
			Deny:  cmd.DisallowedTools,
		})
		if cmd.Model != "" {
			model = cmd.Model
		}
		metadata["command"] = cmd.Name
	}

	joined := substituteVariables(strings.Join(parts, "\n\n"), in.Env)

	return AssembledPrompt{
		SystemPrompt: joined,
		Tools:        restriction,
		Model:        model,
		MaxTurns:     maxTurns,
		Metadata:     metadata,
	}
}
