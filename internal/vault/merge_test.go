package vault

import (
	"strings"
	"testing"
)

func TestMergeSectionReplacesOwnedSpan(t *testing.T) {
	t.Parallel()

	body := "# Note\n\n## Summary\n- old line\n\n## Notes\nmy own text\n"
	out := MergeSection(body, "## Summary", "## Summary\n- new line")

	if !strings.Contains(out, "- new line") {
		t.Errorf("new content missing from %q", out)
	}
	if strings.Contains(out, "- old line") {
		t.Errorf("old content survived in %q", out)
	}
	if !strings.Contains(out, "## Notes\nmy own text") {
		t.Errorf("user section damaged in %q", out)
	}
}

func TestMergeSectionSpanEndsAtEqualOrHigherHeading(t *testing.T) {
	t.Parallel()

	// The ### subsection belongs to the owned span; the next ## does not.
	body := "## Breakdown\n\n### sub\ndetail\n\n## Keep\nkeep me\n"
	out := MergeSection(body, "## Breakdown", "## Breakdown\n\nfresh")

	if strings.Contains(out, "### sub") || strings.Contains(out, "detail") {
		t.Errorf("subsection should be replaced, got %q", out)
	}
	if !strings.Contains(out, "## Keep\nkeep me") {
		t.Errorf("following section damaged in %q", out)
	}
}

func TestMergeSectionAppendsWhenMissing(t *testing.T) {
	t.Parallel()

	body := "# Note\n\nfree text\n"
	out := MergeSection(body, "## Summary", "## Summary\n- added")

	want := "# Note\n\nfree text\n\n## Summary\n- added\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestMergeSectionIntoEmptyBody(t *testing.T) {
	t.Parallel()

	out := MergeSection("", "## Summary", "## Summary\n- only")
	if out != "## Summary\n- only\n" {
		t.Errorf("got %q", out)
	}
}

func TestMergeSectionIdempotent(t *testing.T) {
	t.Parallel()

	body := "# Note\n\nintro text\n"
	section := "## Summary\n- stable line"

	once := MergeSection(body, "## Summary", section)
	twice := MergeSection(once, "## Summary", section)
	if once != twice {
		t.Errorf("second merge changed bytes:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestMergeSectionLastSectionIdempotent(t *testing.T) {
	t.Parallel()

	body := "## Summary\n- a\n\n## Tail\nend content\n"
	section := "## Tail\nend content"

	out := MergeSection(body, "## Tail", section)
	if out != body {
		t.Errorf("merge of identical tail section changed bytes:\ngot  %q\nwant %q", out, body)
	}
}

func TestMergeSectionIgnoresNonHeading(t *testing.T) {
	t.Parallel()

	body := "anything\n"
	if out := MergeSection(body, "not a heading", "content"); out != body {
		t.Errorf("non-heading marker should be a no-op, got %q", out)
	}
}

func TestHeadingLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line string
		want int
	}{
		{"# Title", 1},
		{"## Sub", 2},
		{"###### Deep", 6},
		{"####### Too deep", 0},
		{"#hashtag", 0},
		{"##", 2},
		{"plain", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := headingLevel(tc.line); got != tc.want {
			t.Errorf("headingLevel(%q) = %d, want %d", tc.line, got, tc.want)
		}
	}
}
