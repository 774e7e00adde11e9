// Package skill provides skill management for Drift.
// Skills are markdown-based prompts that can be invoked via slash commands
// or proactively by the model when active.
package skill

// SkillState represents the state of a skill.
// Three states control visibility and model awareness.
type SkillState string

const (
	// StateDisable means the skill is hidden and not available.
	StateDisable SkillState = "disable"

	// StateEnable means the skill is visible as a slash command but the model
	// is not aware of it (user-invoked only).
	StateEnable SkillState = "enable"

	// StateActive means the skill metadata is included in the system prompt
	// and the model can invoke it proactively.
	StateActive SkillState = "active"
)

// NextState cycles through states: disable -> enable -> active -> disable.
func (s SkillState) NextState() SkillState {
	switch s {
	case StateDisable:
		return StateEnable
	case StateEnable:
		return StateActive
	case StateActive:
		return StateDisable
	default:
		return StateEnable
	}
}

// Icon returns the display icon for the state.
func (s SkillState) Icon() string {
	switch s {
	case StateDisable:
		return "○"
	case StateEnable:
		return "◐"
	case StateActive:
		return "●"
	default:
		return "○"
	}
}

// SkillScope represents where a skill was loaded from.
// Higher values have higher priority.
type SkillScope int

const (
	// ScopeBuiltin is a skill compiled into the binary (lowest priority; any
	// on-disk skill with the same full name overrides it).
	ScopeBuiltin SkillScope = iota

	// ScopeClaudeUser is ~/.claude/skills/ (Claude compatibility)
	ScopeClaudeUser

	// ScopeUserPlugin is ~/.drift/plugins/*/skills/ (User plugins)
	ScopeUserPlugin

	// ScopeUser is ~/.drift/skills/ (Drift user level)
	ScopeUser

	// ScopeClaudeProject is .claude/skills/ (Claude project compatibility)
	ScopeClaudeProject

	// ScopeProjectPlugin is .drift/plugins/*/skills/ (Project plugins)
	ScopeProjectPlugin

	// ScopeProject is .drift/skills/ (Drift project level, highest priority)
	ScopeProject
)

// String returns the display name for the scope.
func (s SkillScope) String() string {
	switch s {
	case ScopeBuiltin:
		return "builtin"
	case ScopeClaudeUser:
		return "claude-user"
	case ScopeUserPlugin:
		return "user-plugin"
	case ScopeUser:
		return "user"
	case ScopeClaudeProject:
		return "claude-project"
	case ScopeProjectPlugin:
		return "project-plugin"
	case ScopeProject:
		return "project"
	default:
		return "unknown"
	}
}

// Skill represents a loaded skill with metadata and instructions.
type Skill struct {
	// Frontmatter fields (parsed from YAML header)
	Name         string   `yaml:"name"`
	Namespace    string   `yaml:"namespace"`    // Optional namespace (e.g., "git", "jira")
	Description  string   `yaml:"description"`
	AllowedTools []string `yaml:"allowed-tools"`
	ArgumentHint string   `yaml:"argument-hint"`

	// SpawnSubagent, when set, tells the Agent Loop that invoking this skill
	// should not inject its instructions into the main conversation but
	// instead ask the model to run the skill inside a subagent of
	// SpawnAgentType (default "general-purpose" when empty).
	SpawnSubagent  bool   `yaml:"spawn-subagent"`
	SpawnAgentType string `yaml:"spawn-agent-type"`

	// Runtime fields
	FilePath     string     // Full path to the skill file
	SkillDir     string     // Directory containing the skill
	Scope        SkillScope // Where the skill was loaded from
	Instructions string     // Full markdown content (lazy loaded)
	State        SkillState // Current state (persisted separately)
	loaded       bool       // Whether full instructions have been loaded

	// Resource directories (Agent Skills spec)
	Scripts    []string // Files in scripts/ directory
	References []string // Files in references/ directory
	Assets     []string // Files in assets/ directory
}

// FullName returns the namespaced skill name (namespace:name or just name).
func (s *Skill) FullName() string {
	if s.Namespace != "" {
		return s.Namespace + ":" + s.Name
	}
	return s.Name
}

// IsEnabled returns true if the skill is enabled or active.
func (s *Skill) IsEnabled() bool {
	return s.State == StateEnable || s.State == StateActive
}

// IsActive returns true if the skill is active (model aware).
func (s *Skill) IsActive() bool {
	return s.State == StateActive
}

// GetInstructions returns the full skill instructions, loading if needed.
func (s *Skill) GetInstructions() string {
	if !s.loaded && s.FilePath != "" {
		// Lazy load instructions
		if instructions, err := loadInstructions(s.FilePath); err == nil {
			s.Instructions = instructions
			s.loaded = true
		}
	}
	return s.Instructions
}

// GetScriptPath returns the full path to a script file.
func (s *Skill) GetScriptPath(name string) string {
	if s.SkillDir == "" {
		return ""
	}
	return s.SkillDir + "/scripts/" + name
}

// GetReferencePath returns the full path to a reference file.
func (s *Skill) GetReferencePath(name string) string {
	if s.SkillDir == "" {
		return ""
	}
	return s.SkillDir + "/references/" + name
}

// GetAssetPath returns the full path to an asset file.
func (s *Skill) GetAssetPath(name string) string {
	if s.SkillDir == "" {
		return ""
	}
	return s.SkillDir + "/assets/" + name
}

// HasResources returns true if the skill has any bundled resources.
func (s *Skill) HasResources() bool {
	return len(s.Scripts) > 0 || len(s.References) > 0 || len(s.Assets) > 0
}
