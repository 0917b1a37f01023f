package extractor

import (
	"regexp"
	"strings"
)

var (
	// Pattern: #include <path> or #include "path"
	includePattern = regexp.MustCompile(`#include\s*[<"]([^>"]+)[>"]`)

	// Pattern: <type> <name> (
	functionPattern = regexp.MustCompile(`\b(void|int|char|float|double)\s+(\w+)\s*\(`)

	// Pattern: <type> <name>
	variablePattern = regexp.MustCompile(`\b(int|char|float|double|void)\s+(\w+)`)
)

// matchInclude returns [path] if line includes a header
func matchInclude(line string) []string {
	if m := includePattern.FindStringSubmatch(line); m != nil {
		return []string{m[1]}
	}
	return nil
}

// matchFunction returns [name, type] if line declares or defines a function
func matchFunction(line string) []string {
	if m := functionPattern.FindStringSubmatch(line); m != nil {
		return []string{m[2], m[1]}
	}
	return nil
}

// matchVariable returns [name, type] if line declares a variable
func matchVariable(line string) []string {
	// Anything with a parenthesis is a function signature or a call
	if strings.Contains(line, "(") {
		return nil
	}
	if m := variablePattern.FindStringSubmatch(line); m != nil {
		return []string{m[2], m[1]}
	}
	return nil
}
