package prompt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/driftcode/drift/internal/log"
	"go.uber.org/zap"
)

// Command is a reusable prompt template invoked by name (a slash command),
// loaded from a markdown file with YAML frontmatter.
type Command struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	ArgumentHint    string   `yaml:"argument-hint"`
	Model           string   `yaml:"model"`
	AllowedTools    []string `yaml:"allowed-tools"`
	DisallowedTools []string `yaml:"disallowed-tools"`

	// FilePath is the source file this command was loaded from.
	FilePath string `yaml:"-"`

	// Content is the markdown body, containing $ARGUMENTS/${ARGUMENTS}
	// placeholders to be substituted at invocation time.
	Content string `yaml:"-"`
}

// Loader loads Command definitions from the user and project command
// directories, mirroring internal/skill's scope convention: project
// definitions override user definitions of the same name, and a
// ".claude/commands" tree is read for compatibility with existing layouts.
type Loader struct {
	cwd string
}

// NewLoader creates a command loader rooted at cwd.
func NewLoader(cwd string) *Loader {
	return &Loader{cwd: cwd}
}

// searchDirs returns command directories in priority order (lowest to
// highest); later directories win on name collision.
func (l *Loader) searchDirs() []string {
	homeDir, _ := os.UserHomeDir()
	return []string{
		filepath.Join(homeDir, ".claude", "commands"),
		filepath.Join(homeDir, ".drift", "commands"),
		filepath.Join(l.cwd, ".claude", "commands"),
		filepath.Join(l.cwd, ".drift", "commands"),
	}
}

// LoadAll loads every command across all search directories, keyed by name.
func (l *Loader) LoadAll() map[string]*Command {
	commands := make(map[string]*Command)
	for _, dir := range l.searchDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		var names []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			cmd, err := loadCommandFile(path)
			if err != nil {
				log.Logger().Debug("Failed to load command file",
					zap.String("path", path), zap.Error(err))
				continue
			}
			commands[cmd.Name] = cmd
		}
	}
	return commands
}

// loadCommandFile loads a single command from a markdown file with YAML
// frontmatter, in the same delimited-by-"---" shape as AGENT.md files.
func loadCommandFile(path string) (*Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	frontmatter, body := extractFrontmatter(string(data))

	cmd := &Command{FilePath: path}
	if frontmatter != "" {
		if err := yaml.Unmarshal([]byte(frontmatter), cmd); err != nil {
			return nil, err
		}
	}

	if cmd.Name == "" {
		base := filepath.Base(path)
		cmd.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	cmd.Content = strings.TrimSpace(body)

	return cmd, nil
}

// extractFrontmatter extracts a leading YAML frontmatter block delimited by
// "---" lines from markdown content, returning the frontmatter and the
// remaining body. Grounded on internal/agent/loader.go's AGENT.md parser.
func extractFrontmatter(content string) (frontmatter, body string) {
	content = strings.TrimSpace(content)

	if !strings.HasPrefix(content, "---") {
		return "", content
	}

	rest := content[3:]
	endIndex := strings.Index(rest, "\n---")
	if endIndex == -1 {
		return "", content
	}

	frontmatter = strings.TrimSpace(rest[:endIndex])
	body = strings.TrimSpace(rest[endIndex+4:])
	return frontmatter, body
}
