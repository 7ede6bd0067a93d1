package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runger/worklog/internal/period"
	"github.com/runger/worklog/internal/sanitize"
	"github.com/runger/worklog/internal/storage"
)

// maxTextLen bounds stored prompt/response text.
const maxTextLen = 10_000

// maxLineBytes bounds one JSONL line; conversation turns with large tool
// output can run long.
const maxLineBytes = 4 << 20

// ClaudeImporter reads Claude Code conversation JSONL files and upserts one
// AIPrompt row per user turn, paired with its assistant response.
type ClaudeImporter struct {
	store    storage.Store
	filter   *sanitize.Filter
	resolver *Resolver
	dir      string
	window   *period.Period
	logger   *slog.Logger
}

// ImportStats counts what one import run did.
type ImportStats struct {
	Files    int
	Turns    int
	Inserted int
	Updated  int
	Skipped  int
	Dropped  int
}

func (s ImportStats) String() string {
	return fmt.Sprintf("%d files, %d turns: %d inserted, %d updated, %d skipped, %d dropped",
		s.Files, s.Turns, s.Inserted, s.Updated, s.Skipped, s.Dropped)
}

// NewClaudeImporter builds an importer over the conversation directory.
// A nil filter disables masking; a non-nil window restricts turns to it.
func NewClaudeImporter(store storage.Store, filter *sanitize.Filter, resolver *Resolver, dir string, window *period.Period, logger *slog.Logger) *ClaudeImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaudeImporter{
		store:    store,
		filter:   filter,
		resolver: resolver,
		dir:      dir,
		window:   window,
		logger:   logger,
	}
}

// Name implements Step.
func (c *ClaudeImporter) Name() string { return "import-claude" }

// Run implements Step.
func (c *ClaudeImporter) Run(ctx context.Context) (string, error) {
	stats, err := c.Import(ctx)
	if err != nil {
		return "", err
	}
	return stats.String(), nil
}

// Import walks the conversation directory and upserts every user turn. A
// missing directory is not an error: there is just nothing to import.
func (c *ClaudeImporter) Import(ctx context.Context) (*ImportStats, error) {
	stats := &ImportStats{}

	if _, err := os.Stat(c.dir); err != nil {
		if os.IsNotExist(err) {
			c.logger.Warn("conversation directory missing", "dir", c.dir)
			return stats, nil
		}
		return nil, fmt.Errorf("stat %s: %w", c.dir, err)
	}

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		stats.Files++
		c.importFile(ctx, path, stats)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// conversationLine is one JSONL record of a Claude Code conversation.
type conversationLine struct {
	Type       string          `json:"type"`
	UUID       string          `json:"uuid"`
	ParentUUID string          `json:"parentUuid"`
	SessionID  string          `json:"sessionId"`
	Cwd        string          `json:"cwd"`
	Timestamp  string          `json:"timestamp"`
	Message    conversationMsg `json:"message"`
}

type conversationMsg struct {
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *ClaudeImporter) importFile(ctx context.Context, path string, stats *ImportStats) {
	lines, err := c.readLines(path)
	if err != nil {
		c.logger.Warn("cannot read conversation file", "path", path, "error", err)
		return
	}

	// First assistant reply per user turn, keyed by parent uuid.
	replies := make(map[string]*conversationLine)
	for i := range lines {
		l := &lines[i]
		if l.Type == "assistant" && l.ParentUUID != "" {
			if _, ok := replies[l.ParentUUID]; !ok {
				replies[l.ParentUUID] = l
			}
		}
	}

	for i := range lines {
		l := &lines[i]
		if l.Type != "user" {
			continue
		}
		prompt := extractText(l.Message.Content)
		if strings.TrimSpace(prompt) == "" {
			// Tool-result turns carry no human text.
			continue
		}
		stats.Turns++

		ts, err := time.Parse(time.RFC3339, l.Timestamp)
		if err != nil {
			c.logger.Warn("turn without usable timestamp", "path", path, "uuid", l.UUID)
			stats.Dropped++
			continue
		}
		if c.window != nil && !c.window.Contains(ts) {
			stats.Skipped++
			continue
		}

		var response string
		if reply := replies[l.UUID]; reply != nil {
			response = extractText(reply.Message.Content)
		}

		row := &storage.AIPrompt{
			TsUnixMs:     ts.UnixMilli(),
			Tool:         "claude",
			PromptText:   c.mask(prompt),
			ResponseText: c.mask(response),
			SessionID:    turnSessionID(l.SessionID, l.UUID),
			ProjectID:    c.resolveProject(ctx, l.Cwd),
		}
		outcome, err := c.store.UpsertAIPrompt(ctx, row)
		if err != nil {
			c.logger.Warn("upsert failed", "path", path, "uuid", l.UUID, "error", err)
			stats.Dropped++
			continue
		}
		switch outcome {
		case storage.OutcomeInserted:
			stats.Inserted++
		case storage.OutcomeUpdated:
			stats.Updated++
		default:
			stats.Skipped++
		}
	}
}

func (c *ClaudeImporter) readLines(path string) ([]conversationLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []conversationLine
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineno := 0
	for scanner.Scan() {
		lineno++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var line conversationLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			c.logger.Warn("skipping malformed line", "path", path, "line", lineno, "error", err)
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

// mask runs the sensitive-content filter when one is configured.
func (c *ClaudeImporter) mask(text string) string {
	if c.filter == nil || text == "" {
		return text
	}
	masked, labels := c.filter.Mask(text)
	if len(labels) > 0 {
		c.logger.Debug("masked sensitive content", "labels", strings.Join(labels, ","))
	}
	return masked
}

func (c *ClaudeImporter) resolveProject(ctx context.Context, cwd string) *int64 {
	return resolveProjectID(ctx, c.store, c.resolver, cwd, c.logger)
}

// resolveProjectID maps an event path to a project row. Paths outside
// every watch root fall back to the directory base name, so an event is
// never orphaned just because its project moved.
func resolveProjectID(ctx context.Context, store storage.Store, resolver *Resolver, path string, logger *slog.Logger) *int64 {
	if path == "" {
		return nil
	}
	name, projectPath, ok := resolver.Resolve(path)
	if !ok {
		name = filepath.Base(filepath.ToSlash(path))
		projectPath = path
	}
	if name == "" || name == "." || name == "/" {
		return nil
	}
	project, _, err := store.EnsureProject(ctx, name, projectPath)
	if err != nil {
		logger.Warn("project resolution failed", "path", path, "error", err)
		return nil
	}
	return &project.ID
}

// turnSessionID makes the per-turn natural key from the conversation session
// and the turn uuid. Empty when neither is known, which lets the store fall
// back to its text digest key.
func turnSessionID(sessionID, uuid string) string {
	switch {
	case sessionID != "" && uuid != "":
		return sessionID + ":" + uuid
	case uuid != "":
		return uuid
	default:
		return ""
	}
}

// extractText flattens a message content field: either a JSON string or a
// list of typed blocks whose text entries are concatenated.
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return truncate(s, maxTextLen)
	}
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return truncate(b.String(), maxTextLen)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
