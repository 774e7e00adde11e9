package skill

// builtinSkills holds skill documents compiled into the binary so a fresh
// checkout has useful slash commands before any skill directory exists on
// disk. Keys are only used for logging; each skill's real name comes from
// its own frontmatter, and an on-disk skill with the same full name always
// wins (see ScopeBuiltin).
var builtinSkills = map[string]string{
	"bug-hunter":       bugHunterSkill,
	"dep-audit":        depAuditSkill,
	"context-reducer":  contextReducerSkill,
	"tool-surface-map": toolSurfaceMapSkill,
}

const bugHunterSkill = `---
name: bug-hunter
description: Traces a reported symptom to its root cause by following the call graph instead of guessing, then proposes the smallest fix that addresses the cause
allowed-tools: [Read, Glob, Grep, Bash, TodoWrite]
argument-hint: "[symptom or failing test]"
---

# Bug Hunter

Symptom: $ARGUMENTS

1. Reproduce the symptom if there's a runnable test or command; if not,
   find the code path that would produce it.
2. Trace backward from where the symptom surfaces to where the bad state
   was introduced. Don't stop at the first suspicious line — confirm it's
   actually reachable with the reported inputs.
3. State the root cause in one sentence before proposing a fix.
4. Propose the smallest change that addresses the cause. Flag any other
   spot touched by the same root cause so it doesn't resurface elsewhere.
`

const depAuditSkill = `---
name: dep-audit
description: Reviews a module's dependency surface for unused imports, version drift, and requires that nothing in the code actually exercises
allowed-tools: [Read, Glob, Grep, Bash]
argument-hint: "[go.mod path, defaults to repo root]"
---

# Dependency Audit

Scope: $ARGUMENTS

1. Read go.mod's require block and cross-reference each module against
   actual imports in the tree.
2. Flag requires with no importing file, and imports with no matching
   require (likely pulled in transitively but used directly).
3. Note any replace directives and whether they still look necessary.
4. Summarize findings as a short list: drop candidates, version concerns,
   nothing else.
`

const contextReducerSkill = `---
name: context-reducer
description: Proposes what a long-running conversation's next compaction summary should keep, given the operations performed since the last compaction
allowed-tools: [Read, TodoWrite]
argument-hint: "[optional focus area]"
---

# Context Reducer

Focus: $ARGUMENTS

Review the turns since the last summary and identify:

1. Decisions that would need to survive compaction (the "why", not the
   "what" — the diff already shows what changed).
2. Open threads: anything started but not finished, including ones the
   user hasn't mentioned again but didn't explicitly drop.
3. Constraints the user stated that aren't visible from the code alone.

Produce a compact note organized under those three headings rather than a
chronological replay of tool calls.
`

const toolSurfaceMapSkill = `---
name: tool-surface-map
description: Maps which tools a given subagent scope preset exposes and flags any tool that's reachable but shouldn't be for that scope
allowed-tools: [Read, Grep]
argument-hint: "[scope preset name]"
---

# Tool Surface Map

Scope preset: $ARGUMENTS

1. Find the scope preset's tool set definition and list every tool it
   grants.
2. For each granted tool, note whether it can mutate state, run arbitrary
   commands, or reach the network.
3. Flag anything that looks broader than the preset's stated purpose
   (for example, a read-only exploration preset that can still invoke
   Bash or Task).
`
