package vault

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/runger/worklog/internal/period"
	"github.com/runger/worklog/internal/storage"
)

// TimelineEntry is one row of a daily note's timeline table.
type TimelineEntry struct {
	TsMs    int64
	Project string
	Detail  string
}

// FileChange is one changed file listed under a project's breakdown.
type FileChange struct {
	Path string
	Type string
}

// SessionRef is a short reference to one AI exchange under a project.
type SessionRef struct {
	Tool    string
	Preview string
}

// ProjectActivity groups one project's work inside the rendered period.
type ProjectActivity struct {
	Name     string
	StartMs  int64
	EndMs    int64
	Files    []FileChange
	Sessions []SessionRef
}

// BriefingItem is one stuck-file hint carried into a briefing note.
type BriefingItem struct {
	FilePath       string
	EditCount      int
	ElapsedMinutes int
	Related        []string
}

// NoteData carries everything a single render needs. Summary is required;
// the remaining fields feed kind-specific sections and may be empty.
type NoteData struct {
	Label      string
	Period     period.Period
	Summary    *storage.Summary
	ToolCounts map[string]int
	Timeline   []TimelineEntry
	Projects   []ProjectActivity
	Status     string
	Items      []BriefingItem
}

func (d *NoteData) location() *time.Location {
	if d.Period.Start.IsZero() {
		return time.Local
	}
	return d.Period.Start.Location()
}

func (d *NoteData) clock(tsMs int64) string {
	return time.UnixMilli(tsMs).In(d.location()).Format("15:04")
}

func (d *NoteData) day(tsMs int64) string {
	return time.UnixMilli(tsMs).In(d.location()).Format("2006-01-02")
}

// projectNames returns the summary's project names sorted, with the
// unassigned bucket last.
func (d *NoteData) projectNames() []string {
	names := make([]string, 0, len(d.Summary.ProjectCounts))
	unassigned := false
	for name := range d.Summary.ProjectCounts {
		if name == storage.UnassignedProject {
			unassigned = true
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if unassigned {
		names = append(names, storage.UnassignedProject)
	}
	return names
}

// RenderNote produces the full note text for a kind. When existing is empty
// a fresh note is created; otherwise owned frontmatter fields and owned
// sections are merged into the existing text and everything else survives
// unchanged. A malformed existing note degrades to append-only: the original
// text is kept whole and generated sections are added at the end.
func RenderNote(kind Kind, data *NoteData, existing string) string {
	desc := Describe(kind)
	sections := buildSections(desc, data)

	if existing == "" {
		doc := &Document{Frontmatter: []string{}, Body: ""}
		applyFrontmatter(doc, desc, data)
		doc.Frontmatter = append(doc.Frontmatter, "tags: ["+desc.Tag+"]")
		body := "# " + noteTitle(desc, data) + "\n"
		for i, heading := range desc.OwnedSections {
			body = MergeSection(body, heading, sections[i])
		}
		doc.Body = body
		return doc.String()
	}

	doc := ParseDocument(existing)
	if doc.Malformed {
		body := doc.Body
		for i := range desc.OwnedSections {
			body = appendSection(body, strings.Split(sections[i], "\n"))
		}
		return body
	}

	if doc.Frontmatter != nil {
		applyFrontmatter(doc, desc, data)
	}
	body := doc.Body
	for i, heading := range desc.OwnedSections {
		body = MergeSection(body, heading, sections[i])
	}
	doc.Body = body
	return doc.String()
}

func noteTitle(desc Descriptor, data *NoteData) string {
	switch desc.Kind {
	case KindDaily:
		return data.Label + " Worklog"
	case KindWeekly:
		return "Week " + data.Label
	case KindMonthly:
		return data.Label + " Monthly Review"
	case KindProject:
		return data.Label
	case KindBriefing:
		return data.Label + " Briefing"
	default:
		return data.Label
	}
}

func applyFrontmatter(doc *Document, desc Descriptor, data *NoteData) {
	s := data.Summary
	switch desc.Kind {
	case KindDaily:
		doc.SetField("date", data.Label)
		doc.SetField("work_start", clockOrEmpty(data, s.FirstActivity))
		doc.SetField("work_end", clockOrEmpty(data, s.LastActivity))
		doc.SetField("projects", data.projectNames())
		doc.SetField("total_ai_sessions", s.TotalAI)
	case KindWeekly:
		doc.SetField("week", data.Label)
		doc.SetField("projects", data.projectNames())
		doc.SetField("total_ai_sessions", s.TotalAI)
		doc.SetField("total_files", s.TotalFiles)
		doc.SetField("active_days", s.ActiveDays)
	case KindMonthly:
		doc.SetField("month", data.Label)
		doc.SetField("projects", data.projectNames())
		doc.SetField("total_ai_sessions", s.TotalAI)
		doc.SetField("total_files", s.TotalFiles)
		doc.SetField("active_days", s.ActiveDays)
	case KindProject:
		doc.SetField("project", data.Label)
		if data.Status != "" {
			doc.SetField("status", data.Status)
		}
		if s.LastActivity != nil {
			doc.SetField("last_activity", data.day(*s.LastActivity))
		}
	case KindBriefing:
		doc.SetField("date", data.Label)
	}
}

func clockOrEmpty(data *NoteData, tsMs *int64) string {
	if tsMs == nil {
		return ""
	}
	return data.clock(*tsMs)
}

func buildSections(desc Descriptor, data *NoteData) []string {
	out := make([]string, len(desc.OwnedSections))
	for i, heading := range desc.OwnedSections {
		switch heading {
		case "## Summary":
			out[i] = buildSummarySection(data)
		case "## Timeline":
			out[i] = buildTimelineSection(data)
		case "## Per-Project Breakdown":
			if desc.Kind == KindDaily {
				out[i] = buildProjectDetailSection(data)
			} else {
				out[i] = buildProjectTableSection(data)
			}
		case "## Recent Activity":
			out[i] = buildRecentActivitySection(data)
		case "## Stuck Files":
			out[i] = buildStuckSection(data)
		default:
			out[i] = heading
		}
	}
	return out
}

func buildSummarySection(data *NoteData) string {
	s := data.Summary
	tools := make([]string, 0, len(data.ToolCounts))
	for tool := range data.ToolCounts {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	parts := make([]string, 0, len(tools))
	for _, tool := range tools {
		parts = append(parts, fmt.Sprintf("%s: %d", tool, data.ToolCounts[tool]))
	}
	toolDetail := strings.Join(parts, ", ")
	if toolDetail == "" {
		toolDetail = "none"
	}

	var b strings.Builder
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Projects worked: **%d**\n", len(s.ProjectCounts))
	fmt.Fprintf(&b, "- AI interactions: **%d** (%s)\n", s.TotalAI, toolDetail)
	fmt.Fprintf(&b, "- Files created/modified: **%d**\n", s.TotalFiles)
	if s.ActiveDays > 1 {
		fmt.Fprintf(&b, "- Active days: **%d**\n", s.ActiveDays)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildTimelineSection(data *NoteData) string {
	var b strings.Builder
	b.WriteString("## Timeline\n\n")
	b.WriteString("| Time | Project | Activity |\n")
	b.WriteString("|------|---------|----------|\n")
	if len(data.Timeline) == 0 {
		b.WriteString("| - | - | no activity |\n")
		return strings.TrimRight(b.String(), "\n")
	}
	entries := make([]TimelineEntry, len(data.Timeline))
	copy(entries, data.Timeline)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].TsMs < entries[j].TsMs })
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | [[Projects/%s\\|%s]] | %s |\n",
			data.clock(e.TsMs), e.Project, e.Project, sanitizeCell(e.Detail))
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildProjectDetailSection(data *NoteData) string {
	var b strings.Builder
	b.WriteString("## Per-Project Breakdown\n")
	for _, p := range data.Projects {
		fmt.Fprintf(&b, "\n### [[Projects/%s\\|%s]]\n", p.Name, p.Name)
		if p.StartMs > 0 && p.EndMs > 0 {
			fmt.Fprintf(&b, "\nWork time: %s - %s\n", data.clock(p.StartMs), data.clock(p.EndMs))
		}
		if len(p.Files) > 0 {
			b.WriteString("\n#### Changed Files\n")
			for _, f := range p.Files {
				fmt.Fprintf(&b, "- `%s` (%s)\n", f.Path, f.Type)
			}
		}
		if len(p.Sessions) > 0 {
			b.WriteString("\n#### AI Sessions\n")
			for _, sess := range p.Sessions {
				if sess.Preview != "" {
					fmt.Fprintf(&b, "- %s: %s\n", sess.Tool, sess.Preview)
				} else {
					fmt.Fprintf(&b, "- %s\n", sess.Tool)
				}
			}
		}
	}
	if len(data.Projects) == 0 {
		b.WriteString("\nNo project activity recorded.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildProjectTableSection(data *NoteData) string {
	var b strings.Builder
	b.WriteString("## Per-Project Breakdown\n\n")
	b.WriteString("| Project | AI Sessions | File Changes |\n")
	b.WriteString("|---------|-------------|--------------|\n")
	names := data.projectNames()
	if len(names) == 0 {
		b.WriteString("| - | 0 | 0 |\n")
		return strings.TrimRight(b.String(), "\n")
	}
	for _, name := range names {
		c := data.Summary.ProjectCounts[name]
		fmt.Fprintf(&b, "| [[Projects/%s\\|%s]] | %d | %d |\n", name, name, c.AICount, c.FileCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildRecentActivitySection(data *NoteData) string {
	var b strings.Builder
	b.WriteString("## Recent Activity\n\n")
	s := data.Summary
	fmt.Fprintf(&b, "- AI interactions: **%d**\n", s.TotalAI)
	fmt.Fprintf(&b, "- File changes: **%d**\n", s.TotalFiles)
	if s.LastActivity != nil {
		fmt.Fprintf(&b, "- Last seen: %s %s\n", data.day(*s.LastActivity), data.clock(*s.LastActivity))
	}
	for _, p := range data.Projects {
		for _, f := range p.Files {
			fmt.Fprintf(&b, "- `%s` (%s)\n", f.Path, f.Type)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildStuckSection(data *NoteData) string {
	var b strings.Builder
	b.WriteString("## Stuck Files\n")
	if len(data.Items) == 0 {
		b.WriteString("\nNothing looks stuck right now.\n")
		return strings.TrimRight(b.String(), "\n")
	}
	for _, item := range data.Items {
		fmt.Fprintf(&b, "\n### `%s`\n\n", item.FilePath)
		fmt.Fprintf(&b, "- %d edits over %d minutes without a commit\n", item.EditCount, item.ElapsedMinutes)
		for _, rel := range item.Related {
			fmt.Fprintf(&b, "- Similar past session: %s\n", rel)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// sanitizeCell keeps table rows on one line and escapes the cell separator.
func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return s
}
