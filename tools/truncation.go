package tools

import "fmt"

// headTailTruncate keeps the first and last half of s and drops the
// middle, since a long run_code stdout is typically most informative at
// both ends (setup/errors near the top, final findings near the bottom).
// Adapted from the teacher's TruncateOutput(..., TruncateHeadTail) — that
// function's per-tool char-limit table (keyed by coding tools like
// read_file/shell/grep) has no analogue here, so it collapses to one
// direct limit argument per call site.
func headTailTruncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	half := limit / 2
	removed := len(s) - limit
	return fmt.Sprintf("%s\n[... %d bytes omitted ...]\n%s", s[:half], removed, s[len(s)-half:])
}

// tailTruncate keeps only the most recent limit bytes, for short previews
// (e.g. the tool_result event's stdout_preview) where only the tail is
// worth showing.
func tailTruncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return fmt.Sprintf("[... %d bytes omitted ...]\n%s", len(s)-limit, s[len(s)-limit:])
}
