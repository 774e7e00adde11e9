package prompt

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCommandFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoader_LoadAll_ParsesFrontmatterAndBody(t *testing.T) {
	cwd := t.TempDir()
	dir := filepath.Join(cwd, ".drift", "commands")
	writeCommandFile(t, dir, "review.md", "---\n"+
		"description: Review a change\n"+
		"argument-hint: <file>\n"+
		"allowed-tools:\n  - Read\n  - Grep\n"+
		"---\n"+
		"Review $ARGUMENTS for bugs.\n")

	commands := NewLoader(cwd).LoadAll()

	cmd, ok := commands["review"]
	if !ok {
		t.Fatalf("expected a 'review' command to be loaded, got: %+v", commands)
	}
	if cmd.Description != "Review a change" {
		t.Fatalf("unexpected description: %q", cmd.Description)
	}
	if cmd.Content != "Review $ARGUMENTS for bugs." {
		t.Fatalf("unexpected content: %q", cmd.Content)
	}
	if len(cmd.AllowedTools) != 2 {
		t.Fatalf("unexpected allowed tools: %+v", cmd.AllowedTools)
	}
}

func TestLoader_LoadAll_ProjectOverridesUser(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()
	t.Setenv("HOME", home)

	writeCommandFile(t, filepath.Join(home, ".drift", "commands"), "ship.md", "User version")
	writeCommandFile(t, filepath.Join(cwd, ".drift", "commands"), "ship.md", "---\nname: ship\n---\nProject version")

	commands := NewLoader(cwd).LoadAll()
	cmd, ok := commands["ship"]
	if !ok {
		t.Fatalf("expected 'ship' command to be loaded, got: %+v", commands)
	}
	if cmd.Content != "Project version" {
		t.Fatalf("expected project command to override user command, got %q", cmd.Content)
	}
}

func TestLoader_LoadAll_NameDefaultsToFilename(t *testing.T) {
	cwd := t.TempDir()
	writeCommandFile(t, filepath.Join(cwd, ".drift", "commands"), "deploy.md", "No frontmatter here.")

	commands := NewLoader(cwd).LoadAll()
	if _, ok := commands["deploy"]; !ok {
		t.Fatalf("expected filename-derived command name 'deploy', got: %+v", commands)
	}
}
