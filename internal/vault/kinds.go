// Package vault renders worklog notes into a Markdown vault.
//
// Notes are plain Markdown files with a YAML frontmatter block. The renderer
// owns a fixed set of frontmatter fields and sections per note kind;
// everything else in an existing note passes through untouched, so users can
// freely add their own headings and text around the generated content.
package vault

// Kind identifies a note kind. Each kind has a fixed descriptor: where the
// note lives under the vault root, which frontmatter fields the renderer
// owns, and which section headings it regenerates on every render.
type Kind int

const (
	KindDaily Kind = iota
	KindWeekly
	KindMonthly
	KindProject
	KindBriefing
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDaily:
		return "daily"
	case KindWeekly:
		return "weekly"
	case KindMonthly:
		return "monthly"
	case KindProject:
		return "project"
	case KindBriefing:
		return "briefing"
	default:
		return "unknown"
	}
}

// Descriptor is the fixed contract for one note kind. OwnedSections holds
// complete heading lines (including the leading hash marks) in render order.
type Descriptor struct {
	Kind          Kind
	Tag           string
	OwnedFields   []string
	OwnedSections []string
}

var descriptors = map[Kind]Descriptor{
	KindDaily: {
		Kind:        KindDaily,
		Tag:         "daily",
		OwnedFields: []string{"date", "work_start", "work_end", "projects", "total_ai_sessions"},
		OwnedSections: []string{
			"## Summary",
			"## Timeline",
			"## Per-Project Breakdown",
		},
	},
	KindWeekly: {
		Kind:        KindWeekly,
		Tag:         "weekly",
		OwnedFields: []string{"week", "projects", "total_ai_sessions", "total_files", "active_days"},
		OwnedSections: []string{
			"## Summary",
			"## Per-Project Breakdown",
		},
	},
	KindMonthly: {
		Kind:        KindMonthly,
		Tag:         "monthly",
		OwnedFields: []string{"month", "projects", "total_ai_sessions", "total_files", "active_days"},
		OwnedSections: []string{
			"## Summary",
			"## Per-Project Breakdown",
		},
	},
	KindProject: {
		Kind:        KindProject,
		Tag:         "project",
		OwnedFields: []string{"project", "status", "last_activity"},
		OwnedSections: []string{
			"## Recent Activity",
		},
	},
	KindBriefing: {
		Kind:        KindBriefing,
		Tag:         "briefing",
		OwnedFields: []string{"date"},
		OwnedSections: []string{
			"## Stuck Files",
		},
	},
}

// Describe returns the descriptor for a kind. It panics on an unknown kind
// since kinds are compile-time constants.
func Describe(k Kind) Descriptor {
	d, ok := descriptors[k]
	if !ok {
		panic("vault: unknown note kind")
	}
	return d
}
