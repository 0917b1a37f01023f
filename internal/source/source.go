package source

import "strings"

// Text is the immutable input of one analysis run: the raw source split into
// lines. Line terminators are not kept.
type Text struct {
	lines []string
}

// New splits raw source on '\n' and drops a trailing '\r' from each line. A
// trailing newline yields a final empty line.
func New(raw string) Text {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return Text{lines: lines}
}

// Len returns the number of lines.
func (t Text) Len() int {
	return len(t.lines)
}

// Line returns the 1-indexed line n, or "" when n is out of range.
func (t Text) Line(n int) string {
	if n < 1 || n > len(t.lines) {
		return ""
	}
	return t.lines[n-1]
}

// Lines returns a copy of all lines.
func (t Text) Lines() []string {
	return append([]string(nil), t.lines...)
}

// After returns up to n lines following the 0-indexed line idx.
func (t Text) After(idx, n int) []string {
	start := idx + 1
	if start >= len(t.lines) || n <= 0 {
		return nil
	}
	end := start + n
	if end > len(t.lines) {
		end = len(t.lines)
	}
	return t.lines[start:end]
}

// String joins the lines back with '\n'.
func (t Text) String() string {
	return strings.Join(t.lines, "\n")
}

// Code blanks out everything on line that is not code: the whole line for
// directives and comments, string and character literal contents, and a
// trailing // comment. Byte offsets of the remaining code are preserved.
func Code(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || isCommentLine(trimmed) {
		return ""
	}

	b := []byte(line)
	var quote byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(b) {
				b[i], b[i+1] = ' ', ' '
				i++
				continue
			}
			if c == quote {
				quote = 0
				continue
			}
			b[i] = ' '
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(b) && b[i+1] == '/':
			return string(b[:i])
		}
	}
	return string(b)
}

func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}
