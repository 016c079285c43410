package spec

import "strings"

var rep = strings.NewReplacer(
	`.`, `\.`,
	`*`, `\*`,
	`+`, `\+`,
	`?`, `\?`,
	`|`, `\|`,
	`(`, `\(`,
	`)`, `\)`,
	`[`, `\[`,
	`\`, `\\`,
)

// escapePattern escapes the special characters of a pattern.
// For example, escapePattern(`+`) returns `\+`.
func escapePattern(s string) string {
	return rep.Replace(s)
}
