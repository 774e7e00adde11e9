package ui

import (
	"fmt"
	"time"
)

// Icons used in tool result summaries (session output is plain text; the
// terminal/GUI front-end, if any, applies its own presentation).
const (
	IconRead     = "\U0001F4C4" // 📄
	IconGlob     = "\U0001F50D" // 🔍
	IconGrep     = "\U0001F50E" // 🔎
	IconWeb      = "\U0001F310" // 🌐
	IconSearch   = "\U0001F50D" // 🔍 (web search)
	IconError    = "❌"     // ❌
	IconSuccess  = "✓"     // ✓
	IconFile     = "\U0001F4C1" // 📁
	IconDuration = "⏱"     // ⏱
)

// Style is a no-op text style: the core emits plain text and leaves
// presentation (color, bold, borders) to whatever front-end consumes
// SessionOutput events.
type Style struct{}

// Render returns s unchanged.
func (Style) Render(s string) string { return s }

// Named styles kept for call-site compatibility with the rendering helpers
// in content.go/header.go; all are plain-text passthroughs.
var (
	LineNumberStyle  = Style{}
	LineContentStyle = Style{}
	MatchStyle       = Style{}
	FilePathStyle    = Style{}
	TruncatedStyle   = Style{}
	ErrorStyle       = Style{}
	ErrorMsgStyle    = Style{}
	SpinnerStyle     = Style{}
	ProgressMsgStyle = Style{}
	HeaderStyle      = Style{}
	HeaderTitleStyle = Style{}
	HeaderSubtitleStyle = Style{}
	HeaderMetaStyle  = Style{}
)

// FormatSize formats bytes to human readable size.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatDuration formats a duration to a human readable string.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
}
