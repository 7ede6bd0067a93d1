package sanitize

// Filter applies an ordered pattern set to text. Built-in patterns run
// first, then any custom patterns, so built-in labels win when both match
// the same span.
type Filter struct {
	patterns []Pattern
}

// NewFilter returns a Filter with the built-in patterns plus any custom
// patterns layered on top.
func NewFilter(custom ...Pattern) *Filter {
	patterns := Builtin()
	patterns = append(patterns, custom...)
	return &Filter{patterns: patterns}
}

// Mask replaces every sensitive match in text with its placeholder and
// returns the labels that matched, in pattern order. Masking is a fixed
// point: masking already-masked text changes nothing.
func (f *Filter) Mask(text string) (string, []string) {
	if text == "" {
		return text, nil
	}

	masked := text
	var found []string
	for _, p := range f.patterns {
		replaced := p.Regex.ReplaceAllString(masked, p.Replacement)
		if replaced != masked {
			masked = replaced
			found = append(found, p.Label)
		}
	}
	return masked, found
}

// Finding is one scan hit. Preview is a bounded prefix of the match,
// never the whole value.
type Finding struct {
	Label   string
	Preview string
}

const previewLen = 20

// Scan reports matches without modifying the text, for audit use.
func (f *Filter) Scan(text string) []Finding {
	if text == "" {
		return nil
	}

	var findings []Finding
	for _, p := range f.patterns {
		for _, m := range p.Regex.FindAllString(text, -1) {
			preview := m
			if len(preview) > previewLen {
				preview = preview[:previewLen] + "..."
			}
			findings = append(findings, Finding{Label: p.Label, Preview: preview})
		}
	}
	return findings
}
