package skill

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinSkillsLoadOnEmptyDirs(t *testing.T) {
	tmpDir := t.TempDir()
	loader := &Loader{cwd: tmpDir}

	skills, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	if len(skills) != len(builtinSkills) {
		t.Fatalf("got %d skills, want %d built-ins", len(skills), len(builtinSkills))
	}

	skill, ok := skills["bug-hunter"]
	if !ok {
		t.Fatal("bug-hunter built-in not found")
	}
	if skill.Scope != ScopeBuiltin {
		t.Errorf("Scope = %s, want builtin", skill.Scope.String())
	}
	if skill.Instructions == "" {
		t.Error("built-in skill should have instructions preloaded, not lazy")
	}
	if !skill.loaded {
		t.Error("built-in skill should be marked loaded")
	}
}

func TestOnDiskSkillOverridesBuiltin(t *testing.T) {
	tmpDir := t.TempDir()
	skillDir := filepath.Join(tmpDir, ".drift", "skills", "bug-hunter")
	if err := os.MkdirAll(skillDir, 0755); err != nil {
		t.Fatal(err)
	}

	content := `---
name: bug-hunter
description: Project-specific override
---

Custom instructions.
`
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	loader := &Loader{cwd: tmpDir}
	skills, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	skill, ok := skills["bug-hunter"]
	if !ok {
		t.Fatal("bug-hunter not found")
	}
	if skill.Scope != ScopeProject {
		t.Errorf("Scope = %s, want project (on-disk should override builtin)", skill.Scope.String())
	}
	if skill.Description != "Project-specific override" {
		t.Errorf("Description = %q, want override to win", skill.Description)
	}
}
