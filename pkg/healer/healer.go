// Package healer applies a bounded set of textual normalizations to raw
// manifest segments before decoding. Every transform is a pure text
// transform and is idempotent: healing already-healed text is a no-op.
package healer

import (
	"regexp"
	"strings"
)

const indentWidth = 4

// Heal runs all transforms in fixed order: tab expansion, key/value
// spacing, multi-colon collapse on image keys, continuation re-alignment.
func Heal(text string) string {
	text = expandTabs(text)
	text = spaceAfterColon(text)
	text = collapseImageColons(text)
	text = realignContinuations(text)
	return text
}

func expandTabs(text string) string {
	return strings.ReplaceAll(text, "\t", strings.Repeat(" ", indentWidth))
}

// keyValue matches a key at line start (optionally a list-item key) whose
// colon is immediately followed by a non-space value.
var keyValue = regexp.MustCompile(`^(\s*(?:- +)?[A-Za-z0-9_./-]+):(\S.*)$`)

// spaceAfterColon inserts the single missing space after a key's colon:
// "kind:Pod" becomes "kind: Pod". Comment lines are left alone, as are
// values starting with "/" so scheme-less URLs at line start survive.
func spaceAfterColon(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		m := keyValue.FindStringSubmatch(line)
		if m == nil || strings.HasPrefix(m[2], "/") {
			continue
		}
		lines[i] = m[1] + ": " + m[2]
	}
	return strings.Join(lines, "\n")
}

var (
	imageLine     = regexp.MustCompile(`^(\s*(?:- +)?image\s*:\s+)(.+)$`)
	spacedColons  = regexp.MustCompile(`\s*:\s*`)
	doubledColons = regexp.MustCompile(`:{2,}`)
)

// collapseImageColons repairs doubled separators in image references
// pasted with stray spaces or colons: "image: nginx: : 1.25" becomes
// "image: nginx:1.25". Only image-style scalar keys are touched; a
// trailing comment on the line is preserved verbatim.
func collapseImageColons(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := imageLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, comment := m[2], ""
		if idx := strings.Index(value, " #"); idx >= 0 {
			value, comment = value[:idx], value[idx:]
		}
		repaired := spacedColons.ReplaceAllString(strings.TrimSpace(value), ":")
		repaired = doubledColons.ReplaceAllString(repaired, ":")
		lines[i] = m[1] + repaired + comment
	}
	return strings.Join(lines, "\n")
}

var plainKey = regexp.MustCompile(`^( *)([A-Za-z0-9_./-]+): *(.*)$`)

// realignContinuations pulls a key that is indented deeper than its
// previous sibling back to the sibling's indent, when the previous line's
// inline scalar value rules out a nested mapping. List items and block
// scalar bodies are never touched.
func realignContinuations(text string) string {
	lines := strings.Split(text, "\n")

	prevIndent := -1
	prevEligible := false
	skipIndent := -1 // inside a block scalar body when >= 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " "))

		if skipIndent >= 0 {
			if indent > skipIndent {
				continue
			}
			skipIndent = -1
		}

		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "-") {
			prevEligible = false
			continue
		}

		m := plainKey.FindStringSubmatch(line)
		if m == nil {
			prevEligible = false
			continue
		}
		value := strings.TrimSpace(m[3])
		if c := strings.Index(value, " #"); c >= 0 {
			value = strings.TrimSpace(value[:c])
		}

		if prevEligible && indent > prevIndent {
			line = strings.Repeat(" ", prevIndent) + strings.TrimLeft(line, " ")
			lines[i] = line
			indent = prevIndent
		}

		if value == "|" || value == ">" || strings.HasPrefix(value, "|") || strings.HasPrefix(value, ">") {
			// Block scalar: its body is free-form text, never realigned.
			prevEligible = false
			skipIndent = indent
			continue
		}

		prevIndent = indent
		prevEligible = value != ""
	}
	return strings.Join(lines, "\n")
}
