// Package format re-indents source lines from their brace structure.
package format

import "strings"

// DefaultWidth is the number of spaces per brace level.
const DefaultWidth = 2

// Depths returns, for every line, the signed brace depth accumulated over the
// lines before it: +1 per '{' and -1 per '}'. The value may go negative on
// unbalanced input.
func Depths(lines []string) []int {
	depths := make([]int, len(lines))
	depth := 0
	for i, line := range lines {
		depths[i] = depth
		depth += strings.Count(line, "{") - strings.Count(line, "}")
	}
	return depths
}

// Reindent takes its brace structure from structure and its text from
// content, which must have the same length. Each content line is trimmed and
// prefixed with width spaces per level of depth, clamped at zero. Blank lines
// get the prefix too.
func Reindent(structure, content []string, width int) []string {
	depths := Depths(structure)
	out := make([]string, len(content))
	for i, line := range content {
		depth := 0
		if i < len(depths) {
			depth = max(0, depths[i])
		}
		out[i] = strings.Repeat(" ", width*depth) + strings.TrimSpace(line)
	}
	return out
}

// Format re-indents lines using their own brace structure.
func Format(lines []string, width int) []string {
	return Reindent(lines, lines, width)
}
