package prompt

import "testing"

func TestMatchToolSpec_Wildcard(t *testing.T) {
	if !MatchToolSpec("*", "Bash", map[string]any{"command": "ls"}) {
		t.Fatal("expected * to match everything")
	}
}

func TestMatchToolSpec_NameOnly(t *testing.T) {
	if !MatchToolSpec("Read", "Read", map[string]any{"file_path": "/tmp/x"}) {
		t.Fatal("expected bare name to match any arguments")
	}
	if MatchToolSpec("Read", "Write", map[string]any{"file_path": "/tmp/x"}) {
		t.Fatal("expected bare name not to match a different tool")
	}
}

func TestMatchToolSpec_FilePathGlob(t *testing.T) {
	args := map[string]any{"file_path": "internal/core/core.go"}
	if !MatchToolSpec("Edit(internal/**/*.go)", "Edit", args) {
		t.Fatal("expected doublestar path glob to match")
	}
	if MatchToolSpec("Edit(cmd/**/*.go)", "Edit", args) {
		t.Fatal("expected doublestar path glob not to match a different prefix")
	}
}

func TestMatchToolSpec_BashCommandPrefix(t *testing.T) {
	args := map[string]any{"command": "npm install lodash"}
	if !MatchToolSpec("Bash(npm:*)", "Bash", args) {
		t.Fatal("expected bash command-prefix pattern to match")
	}
	if MatchToolSpec("Bash(yarn:*)", "Bash", args) {
		t.Fatal("expected mismatched bash prefix not to match")
	}
}

func TestToolRestriction_Permits_DenyWinsOverAllow(t *testing.T) {
	r := ToolRestriction{Allow: []string{"*"}, Deny: []string{"Bash(rm:*)"}}
	if r.Permits("Bash", map[string]any{"command": "rm -rf /tmp/x"}) {
		t.Fatal("expected deny pattern to win over allow-everything")
	}
	if !r.Permits("Read", map[string]any{"file_path": "x"}) {
		t.Fatal("expected non-denied tool to be permitted")
	}
}

func TestToolRestriction_Permits_EmptyAllowMeansEverything(t *testing.T) {
	r := ToolRestriction{}
	if !r.Permits("AnyTool", map[string]any{}) {
		t.Fatal("expected empty restriction to permit everything")
	}
}

func TestToolRestriction_Intersect_EmptyIsIdentity(t *testing.T) {
	a := ToolRestriction{}
	b := ToolRestriction{Allow: []string{"Read", "Grep"}}

	got := a.Intersect(b)
	if len(got.Allow) != 2 {
		t.Fatalf("expected intersect with empty set to return the other operand, got %+v", got)
	}
}

func TestToolRestriction_Intersect_NarrowsAllowSet(t *testing.T) {
	a := ToolRestriction{Allow: []string{"Read", "Grep", "Bash"}}
	b := ToolRestriction{Allow: []string{"Read", "Bash"}}

	got := a.Intersect(b)
	if len(got.Allow) != 2 {
		t.Fatalf("expected intersection of allow sets, got %+v", got.Allow)
	}
}

func TestToolRestriction_Intersect_UnionsDeny(t *testing.T) {
	a := ToolRestriction{Deny: []string{"Bash(rm:*)"}}
	b := ToolRestriction{Deny: []string{"Write(**/.env)"}}

	got := a.Intersect(b)
	if len(got.Deny) != 2 {
		t.Fatalf("expected union of deny sets, got %+v", got.Deny)
	}
}

func TestAssemble_ConcatenationOrder(t *testing.T) {
	out := Assemble(AssembleInput{
		Base:         "BASE",
		HookContexts: []string{"HOOK"},
		Agent:        &AgentPrompt{SystemPrompt: "AGENT"},
		Skills:       []SkillPrompt{{Instructions: "SKILL"}},
		Command: &CommandInvocation{
			Command:   &Command{Name: "test", Content: "CMD $ARGUMENTS"},
			Arguments: "foo",
		},
	})

	want := "BASE\n\nHOOK\n\nAGENT\n\nSKILL\n\nCMD foo"
	if out.SystemPrompt != want {
		t.Fatalf("unexpected assembly:\ngot:  %q\nwant: %q", out.SystemPrompt, want)
	}
}

func TestAssemble_ArgumentSubstitutionBothForms(t *testing.T) {
	out := Assemble(AssembleInput{
		Command: &CommandInvocation{
			Command:   &Command{Name: "test", Content: "dollar=$ARGUMENTS braces=${ARGUMENTS}"},
			Arguments: "X",
		},
	})
	want := "dollar=X braces=X"
	if out.SystemPrompt != want {
		t.Fatalf("got %q, want %q", out.SystemPrompt, want)
	}
}

func TestAssemble_TemplateVariableSubstitution(t *testing.T) {
	out := Assemble(AssembleInput{
		Base: "workspace is ${WORKSPACE}",
		Env:  map[string]string{"WORKSPACE": "/repo"},
	})
	want := "workspace is /repo"
	if out.SystemPrompt != want {
		t.Fatalf("got %q, want %q", out.SystemPrompt, want)
	}
}

func TestAssemble_ToolRestrictionIntersectsAcrossLayers(t *testing.T) {
	out := Assemble(AssembleInput{
		Agent: &AgentPrompt{Tools: ToolRestriction{Allow: []string{"Read", "Bash", "Write"}}},
		Skills: []SkillPrompt{
			{Tools: ToolRestriction{Allow: []string{"Read", "Bash"}}},
		},
		Command: &CommandInvocation{
			Command: &Command{Name: "test", AllowedTools: []string{"Read"}},
		},
	})

	if len(out.Tools.Allow) != 1 || out.Tools.Allow[0] != "Read" {
		t.Fatalf("expected intersection to narrow to [Read], got %+v", out.Tools.Allow)
	}
}

func TestAssemble_ModelAndMaxTurnsFromAgentOverriddenByCommand(t *testing.T) {
	out := Assemble(AssembleInput{
		Agent: &AgentPrompt{Model: "sonnet", MaxTurns: 50},
		Command: &CommandInvocation{
			Command: &Command{Name: "test", Model: "opus"},
		},
	})
	if out.Model != "opus" {
		t.Fatalf("expected command model to override agent model, got %q", out.Model)
	}
	if out.MaxTurns != 50 {
		t.Fatalf("expected agent max turns to be preserved, got %d", out.MaxTurns)
	}
}

func TestRestrictionFromAccess_Denylist(t *testing.T) {
	r := RestrictionFromAccess(ToolAccessDenylist, []string{"ignored"}, []string{"Bash"})
	if len(r.Allow) != 0 || len(r.Deny) != 1 || r.Deny[0] != "Bash" {
		t.Fatalf("unexpected denylist conversion: %+v", r)
	}
}

func TestRestrictionFromAccess_Allowlist(t *testing.T) {
	r := RestrictionFromAccess(ToolAccessAllowlist, []string{"Read", "Grep"}, nil)
	if len(r.Allow) != 2 {
		t.Fatalf("unexpected allowlist conversion: %+v", r)
	}
}
