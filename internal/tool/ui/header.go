package ui

import (
	"fmt"
	"strings"
	"time"
)

// ResultMetadata contains metadata about a tool execution result.
type ResultMetadata struct {
	Title      string        // Tool name
	Icon       string        // Tool icon
	Subtitle   string        // Short description (e.g., file path)
	Size       int64         // File/content size in bytes
	Duration   time.Duration // Execution duration
	LineCount  int           // Number of lines
	ItemCount  int           // Number of items (files/matches)
	StatusCode int           // HTTP status code (WebFetch)
	Truncated  bool          // Whether output was truncated
}

// RenderHeader renders a one-line-per-field summary of a tool result.
// Used to populate SessionOutput's ToolCall.rendered / ToolResult.summary.
func RenderHeader(meta ResultMetadata, _ int) string {
	subtitle := fmt.Sprintf("%s %s", meta.Icon, meta.Subtitle)
	metaLine := strings.Join(metaParts(meta), " · ")
	return fmt.Sprintf("%s\n%s\n%s", meta.Title, subtitle, metaLine)
}

func metaParts(meta ResultMetadata) []string {
	var parts []string
	if meta.Size > 0 {
		parts = append(parts, FormatSize(meta.Size))
	}
	if meta.LineCount > 0 {
		parts = append(parts, fmt.Sprintf("%d lines", meta.LineCount))
	}
	if meta.ItemCount > 0 {
		switch meta.Title {
		case "Glob":
			parts = append(parts, fmt.Sprintf("%d files", meta.ItemCount))
		case "Grep":
			parts = append(parts, fmt.Sprintf("%d matches", meta.ItemCount))
		default:
			parts = append(parts, fmt.Sprintf("%d items", meta.ItemCount))
		}
	}
	if meta.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("%d OK", meta.StatusCode))
	}
	if meta.Duration > 0 {
		parts = append(parts, FormatDuration(meta.Duration))
	}
	if meta.Truncated {
		parts = append(parts, "(truncated)")
	}
	return parts
}

// RenderErrorHeader renders a one-line-per-field summary of a failed tool result.
func RenderErrorHeader(toolName, errorMsg string, _ int) string {
	return fmt.Sprintf("%s\n%s %s\n%s", toolName, IconError, "Error", errorMsg)
}

// RenderCompactHeader renders a single-line header for compact display.
// 📄 Read: /path/to/file.go (2.4 KB · 85 lines · 12ms)
func RenderCompactHeader(meta ResultMetadata) string {
	parts := metaParts(meta)
	metaStr := ""
	if len(parts) > 0 {
		metaStr = fmt.Sprintf(" (%s)", strings.Join(parts, " · "))
	}

	return fmt.Sprintf("%s %s: %s%s", meta.Icon, meta.Title, meta.Subtitle, metaStr)
}
