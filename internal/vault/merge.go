package vault

import "strings"

// MergeSection replaces the section identified by heading within body and
// returns the new body. The replaced span runs from the heading line up to
// (but not including) the next heading of equal or higher level, or the end
// of the body. When the heading is not present the section is appended at
// the end. Everything outside the span is preserved byte for byte.
//
// Section must start with the heading line and carry no trailing newline;
// the merge normalizes to exactly one blank line after the section.
func MergeSection(body, heading, section string) string {
	level := headingLevel(heading)
	if level == 0 {
		return body
	}
	section = strings.TrimRight(section, "\n")
	sectionLines := strings.Split(section, "\n")

	lines := strings.Split(body, "\n")
	start := -1
	for i, line := range lines {
		if strings.TrimRight(line, " \t\r") == heading {
			start = i
			break
		}
	}

	if start == -1 {
		return appendSection(body, sectionLines)
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if lvl := headingLevel(lines[i]); lvl > 0 && lvl <= level {
			end = i
			break
		}
	}

	out := make([]string, 0, start+len(sectionLines)+1+(len(lines)-end))
	out = append(out, lines[:start]...)
	out = append(out, sectionLines...)
	out = append(out, "")
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}

// appendSection adds a section after the existing body content, separated by
// one blank line, ending the body with a single trailing newline.
func appendSection(body string, sectionLines []string) string {
	trimmed := strings.TrimRight(body, "\n")
	out := make([]string, 0, len(sectionLines)+3)
	if trimmed != "" {
		out = append(out, trimmed, "")
	}
	out = append(out, sectionLines...)
	out = append(out, "")
	return strings.Join(out, "\n")
}

// headingLevel returns the Markdown heading level of a line, or 0 when the
// line is not a heading.
func headingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return 0
	}
	if n == len(line) {
		return n
	}
	if line[n] == ' ' || line[n] == '\t' {
		return n
	}
	return 0
}
