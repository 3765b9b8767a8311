package output

import (
	"fmt"
	"strings"
)

// FormatHeader formats a markdown header at the given level.
func FormatHeader(level int, title string) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + title
}

// FormatKeyValue formats a markdown list item with a bold key.
func FormatKeyValue(key string, value interface{}) string {
	return fmt.Sprintf("- **%s:** %v", key, value)
}
