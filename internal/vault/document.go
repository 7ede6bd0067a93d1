package vault

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterFence = "---"

// Document is a parsed note: an optional frontmatter block plus a Markdown
// body. Frontmatter is kept as raw lines so that fields the renderer does
// not own survive byte-for-byte; owned fields are replaced line by line.
type Document struct {
	// Frontmatter holds the raw lines between the fences, without the
	// fences themselves. Nil when the note has no frontmatter block.
	Frontmatter []string

	// Body is everything after the frontmatter block.
	Body string

	// Malformed is set when a frontmatter fence was found but the block
	// could not be parsed as YAML or was never closed. Callers must treat
	// a malformed document as opaque and only append to it.
	Malformed bool
}

// ParseDocument splits a note into frontmatter and body. A note without a
// leading fence is all body. A fence that is never closed, or frontmatter
// that is not valid YAML, marks the document malformed with the original
// text preserved as the body.
func ParseDocument(text string) *Document {
	if text != frontmatterFence && !strings.HasPrefix(text, frontmatterFence+"\n") {
		return &Document{Body: text}
	}

	lines := strings.Split(text, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r") == frontmatterFence {
			end = i
			break
		}
	}
	if end == -1 {
		return &Document{Body: text, Malformed: true}
	}

	fm := lines[1:end]
	var probe map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(fm, "\n")), &probe); err != nil {
		return &Document{Body: text, Malformed: true}
	}

	body := strings.Join(lines[end+1:], "\n")
	return &Document{Frontmatter: fm, Body: body}
}

// SetField replaces the top-level frontmatter field's line, or appends the
// field when missing. Field order and unrelated lines are preserved.
func (d *Document) SetField(key string, value any) {
	line := key + ": " + formatYAMLValue(value)
	prefix := key + ":"
	for i, fm := range d.Frontmatter {
		if fm != prefix && !strings.HasPrefix(fm, prefix+" ") {
			continue
		}
		// Drop continuation lines of a block-style value before splicing
		// in the single replacement line.
		end := i + 1
		for end < len(d.Frontmatter) && isContinuationLine(d.Frontmatter[end]) {
			end++
		}
		d.Frontmatter = append(d.Frontmatter[:i+1], d.Frontmatter[end:]...)
		d.Frontmatter[i] = line
		return
	}
	d.Frontmatter = append(d.Frontmatter, line)
}

// String reassembles the note text.
func (d *Document) String() string {
	if d.Malformed || d.Frontmatter == nil {
		return d.Body
	}
	var b strings.Builder
	b.WriteString(frontmatterFence)
	b.WriteString("\n")
	for _, line := range d.Frontmatter {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(frontmatterFence)
	b.WriteString("\n")
	b.WriteString(d.Body)
	return b.String()
}

// isContinuationLine reports whether a frontmatter line continues the value
// of the preceding key, as in a block-style list or indented scalar.
func isContinuationLine(line string) bool {
	if line == "" {
		return false
	}
	return line[0] == ' ' || line[0] == '\t' || strings.HasPrefix(line, "- ")
}

// formatYAMLValue renders one frontmatter value inline. String slices use
// flow style so project lists stay on one line.
func formatYAMLValue(value any) string {
	switch v := value.(type) {
	case string:
		return quoteYAMLString(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case []string:
		parts := make([]string, len(v))
		for i, s := range v {
			parts[i] = quoteYAMLString(s)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return strings.TrimRight(string(out), "\n")
	}
}

// quoteYAMLString always double-quotes so values like "08:30" cannot be
// re-resolved as non-string scalars and the rendered bytes stay stable.
func quoteYAMLString(s string) string {
	return strconv.Quote(s)
}
