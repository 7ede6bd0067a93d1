package vault

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/runger/worklog/internal/period"
	"github.com/runger/worklog/internal/sanitize"
	"github.com/runger/worklog/internal/storage"
)

// CollectNoteData gathers everything a periodic note render needs: the
// aggregation summary plus raw events for the timeline and the per-project
// breakdown.
func CollectNoteData(ctx context.Context, store storage.Store, p period.Period) (*NoteData, error) {
	summary, err := store.Aggregate(ctx, p, "")
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", p.Label, err)
	}
	startMs, endMs := p.StartUnixMs(), p.EndUnixMs()

	prompts, err := store.AIPromptsBetween(ctx, startMs, endMs, nil)
	if err != nil {
		return nil, fmt.Errorf("prompts for %s: %w", p.Label, err)
	}
	files, err := store.FileEventsBetween(ctx, startMs, endMs, nil)
	if err != nil {
		return nil, fmt.Errorf("file events for %s: %w", p.Label, err)
	}
	names, err := projectNameIndex(ctx, store)
	if err != nil {
		return nil, err
	}

	data := &NoteData{
		Label:      p.Label,
		Period:     p,
		Summary:    summary,
		ToolCounts: make(map[string]int),
	}

	byProject := make(map[string]*ProjectActivity)
	touch := func(name string, tsMs int64) *ProjectActivity {
		pa, ok := byProject[name]
		if !ok {
			pa = &ProjectActivity{Name: name}
			byProject[name] = pa
		}
		if pa.StartMs == 0 || tsMs < pa.StartMs {
			pa.StartMs = tsMs
		}
		if tsMs > pa.EndMs {
			pa.EndMs = tsMs
		}
		return pa
	}

	for _, pr := range prompts {
		data.ToolCounts[pr.Tool]++
		name := names.lookup(pr.ProjectID)
		pa := touch(name, pr.TsUnixMs)
		pa.Sessions = append(pa.Sessions, SessionRef{
			Tool:    pr.Tool,
			Preview: preview(pr.PromptText, sessionPreviewLen),
		})
		detail := pr.Tool
		if p := preview(pr.PromptText, timelinePreviewLen); p != "" {
			detail = pr.Tool + ": " + p
		}
		data.Timeline = append(data.Timeline, TimelineEntry{
			TsMs:    pr.TsUnixMs,
			Project: name,
			Detail:  detail,
		})
	}

	for _, f := range files {
		name := names.lookup(f.ProjectID)
		pa := touch(name, f.TsUnixMs)
		pa.Files = append(pa.Files, FileChange{Path: f.FilePath, Type: f.EventType})
		data.Timeline = append(data.Timeline, TimelineEntry{
			TsMs:    f.TsUnixMs,
			Project: name,
			Detail:  f.FilePath + " (" + f.EventType + ")",
		})
	}

	projectNames := make([]string, 0, len(byProject))
	for name := range byProject {
		projectNames = append(projectNames, name)
	}
	sort.Strings(projectNames)
	for _, name := range projectNames {
		data.Projects = append(data.Projects, *byProject[name])
	}
	return data, nil
}

// CollectProjectNoteData gathers one project's data for its project note,
// scoped to the trailing window ending at now.
func CollectProjectNoteData(ctx context.Context, store storage.Store, projectName string, now time.Time, window time.Duration) (*NoteData, error) {
	project, err := store.GetProjectByName(ctx, projectName)
	if err != nil {
		return nil, err
	}
	p := period.Period{
		Unit:  period.UnitDay,
		Label: projectName,
		Start: now.Add(-window),
		End:   now,
	}
	summary, err := store.Aggregate(ctx, p, projectName)
	if err != nil {
		return nil, fmt.Errorf("aggregate project %s: %w", projectName, err)
	}
	files, err := store.FileEventsBetween(ctx, p.StartUnixMs(), p.EndUnixMs(), &project.ID)
	if err != nil {
		return nil, fmt.Errorf("file events for project %s: %w", projectName, err)
	}

	pa := ProjectActivity{Name: projectName}
	for _, f := range files {
		pa.Files = append(pa.Files, FileChange{Path: f.FilePath, Type: f.EventType})
	}
	return &NoteData{
		Label:    projectName,
		Period:   p,
		Summary:  summary,
		Status:   project.Status,
		Projects: []ProjectActivity{pa},
	}, nil
}

// MaskWith runs every free-text fragment about to be rendered through the
// filter. Stores populated with masking enabled see no change; stores
// populated raw get masked output anyway.
func (d *NoteData) MaskWith(filter *sanitize.Filter) {
	if filter == nil {
		return
	}
	for i := range d.Timeline {
		d.Timeline[i].Detail, _ = filter.Mask(d.Timeline[i].Detail)
	}
	for pi := range d.Projects {
		sessions := d.Projects[pi].Sessions
		for si := range sessions {
			sessions[si].Preview, _ = filter.Mask(sessions[si].Preview)
		}
	}
	for ii := range d.Items {
		related := d.Items[ii].Related
		for ri := range related {
			related[ri], _ = filter.Mask(related[ri])
		}
	}
}

const (
	sessionPreviewLen  = 50
	timelinePreviewLen = 60
)

// projectNameIdx maps project ids to names for event attribution.
type projectNameIdx map[int64]string

func projectNameIndex(ctx context.Context, store storage.Store) (projectNameIdx, error) {
	projects, err := store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	idx := make(projectNameIdx, len(projects))
	for _, p := range projects {
		idx[p.ID] = p.Name
	}
	return idx, nil
}

func (idx projectNameIdx) lookup(id *int64) string {
	if id == nil {
		return storage.UnassignedProject
	}
	if name, ok := idx[*id]; ok {
		return name
	}
	return storage.UnassignedProject
}

// preview flattens newlines and truncates for single-line display.
func preview(text string, max int) string {
	flat := strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(text))
	runes := []rune(flat)
	if len(runes) <= max {
		return flat
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}
