package commands

import (
	"fmt"
	"io"
	"strings"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a titled double-line block
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintList prints a bulleted list
func PrintList(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// maskPassword hides the password part of a database URL
func maskPassword(url string) string {
	scheme := strings.Index(url, "://")
	at := strings.LastIndex(url, "@")
	if scheme < 0 || at < 0 || at < scheme {
		return url
	}
	creds := url[scheme+3 : at]
	colon := strings.Index(creds, ":")
	if colon < 0 {
		return url
	}
	return url[:scheme+3] + creds[:colon] + ":***" + url[at:]
}
