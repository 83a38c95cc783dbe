package render

import (
	"runtime"
	"strings"
)

// optionEscaper escapes a value embedded in a filter option list
var optionEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`:`, `\:`,
)

// graphEscaper escapes a filter description embedded in a filtergraph
var graphEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`[`, `\[`,
	`]`, `\]`,
	`,`, `\,`,
	`;`, `\;`,
)

// EscapeFilterPath escapes a file path for use as a filter option value
// inside a -filter_complex graph on the current platform
func EscapeFilterPath(path string) string {
	return escapeFilterPathFor(runtime.GOOS, path)
}

func escapeFilterPathFor(goos, path string) string {
	// Windows: Convert backslashes to forward slashes
	if goos == "windows" {
		path = strings.ReplaceAll(path, `\`, "/")
	}
	return graphEscaper.Replace(optionEscaper.Replace(path))
}
