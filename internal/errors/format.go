// Package errors provides error formatting for qbdtest CLI output.
package errors

import (
	"io"
	"sort"
	"strings"
)

// PrintOptions controls error output formatting.
type PrintOptions struct {
	// Verbose enables detailed error output with more context keys.
	Verbose bool
}

// Context key whitelist (default mode, in print order).
var defaultContextKeys = []string{
	"op",
	"kind",
	"ref_number",
	"correlation_id",
	"socket",
	"session",
	"status_code",
	"duration",
}

// Additional context keys for verbose mode.
var verboseContextKeys = []string{
	"op",
	"kind",
	"ref_number",
	"txn_id",
	"correlation_id",
	"socket",
	"session",
	"status_code",
	"status_message",
	"duration",
	"raw",
	"attempts",
}

// maxValueLen bounds single-line context values.
const maxValueLen = 256

// Format formats an error for display without I/O.
// This is a pure function; it never reads files or performs network I/O.
func Format(err error, opts PrintOptions) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	qe, ok := AsError(err)
	if !ok {
		sb.WriteString(err.Error())
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString("error_code: ")
	sb.WriteString(string(qe.Code))
	sb.WriteString("\n")
	sb.WriteString(qe.Msg)
	sb.WriteString("\n")

	if len(qe.Details) == 0 {
		return sb.String()
	}

	sb.WriteString("\n")

	contextKeys := defaultContextKeys
	if opts.Verbose {
		contextKeys = verboseContextKeys
	}

	printed := make(map[string]bool)
	for _, key := range contextKeys {
		val, ok := qe.Details[key]
		if !ok || val == "" {
			continue
		}
		printed[key] = true
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(sanitizeValue(val, maxValueLen))
		sb.WriteString("\n")
	}

	// In verbose mode, print remaining keys under extra: section.
	if opts.Verbose {
		var extraKeys []string
		for key := range qe.Details {
			if !printed[key] && key != "hint" {
				extraKeys = append(extraKeys, key)
			}
		}
		if len(extraKeys) > 0 {
			sort.Strings(extraKeys)
			sb.WriteString("\nextra:\n")
			for _, key := range extraKeys {
				val := qe.Details[key]
				if val == "" {
					continue
				}
				sb.WriteString("  ")
				sb.WriteString(key)
				sb.WriteString(": ")
				sb.WriteString(sanitizeValue(val, maxValueLen))
				sb.WriteString("\n")
			}
		}
	}

	if hint := qe.Details["hint"]; hint != "" {
		sb.WriteString("\nhint: ")
		sb.WriteString(hint)
		sb.WriteString("\n")
	}

	return sb.String()
}

// PrintWithOptions writes a formatted error to w with the given options.
func PrintWithOptions(w io.Writer, err error, opts PrintOptions) {
	if err == nil {
		return
	}
	_, _ = io.WriteString(w, Format(err, opts))
}

// sanitizeValue sanitizes a value for single-line context output.
// Normalizes CRLF, replaces newlines with literal \n, truncates to maxLen.
func sanitizeValue(val string, maxLen int) string {
	val = strings.TrimRight(val, " \t\r\n")
	val = strings.ReplaceAll(val, "\r\n", "\n")
	val = strings.ReplaceAll(val, "\n", "\\n")
	if len(val) > maxLen {
		return val[:maxLen] + "…"
	}
	return val
}
