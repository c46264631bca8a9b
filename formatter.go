package contentsync

import (
	"strconv"
	"strings"
)

// FormatFragments formats fragments as a numbered list for display.
// Empty fragments are shown as "(empty)" and continuation lines are indented.
func FormatFragments(fragments []string) string {
	if len(fragments) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, f := range fragments {
		prefix := "[" + strconv.Itoa(i+1) + "] "
		sb.WriteString(prefix)
		if f == "" {
			sb.WriteString("(empty)\n")
			continue
		}
		indent := strings.Repeat(" ", len(prefix))
		sb.WriteString(strings.ReplaceAll(f, "\n", "\n"+indent))
		sb.WriteString("\n")
	}
	return sb.String()
}
