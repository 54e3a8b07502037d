package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMarkdownDifferent(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMarkdown(&buf, Summary{
		DocA:       "a.pdf",
		DocB:       "b.pdf",
		PagesA:     2,
		PagesB:     3,
		OutputPath: "diff.pdf",
		DPI:        72,
		Date:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Pages: []Page{
			{Index: 0, Status: "different", DiffPixels: 12},
			{Index: 1, Status: "equal"},
			{Index: 2, Status: "only in b"},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "# PDF Visual Diff Report")
	assert.Contains(t, out, "`a.pdf`")
	assert.Contains(t, out, "`diff.pdf`")
	assert.Contains(t, out, "2026-03-01 12:00:00 UTC")
	assert.Contains(t, out, "❌ Different")
	assert.Contains(t, out, "different number of pages (2 and 3)")
	assert.Contains(t, out, "## Pages")
	assert.Contains(t, out, "Only In B")
	assert.Contains(t, out, "Different")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "```mermaid")
}

func TestWriteMarkdownEqual(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMarkdown(&buf, Summary{
		DocA:   "a.pdf",
		DocB:   "b.pdf",
		PagesA: 1,
		PagesB: 1,
		Equal:  true,
		DPI:    72,
		Pages:  []Page{{Index: 0, Status: "equal"}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "✅ Equal")
	assert.Contains(t, out, "visually equal")
	assert.NotContains(t, out, "mermaid")
	assert.NotContains(t, out, "Date")
}

func TestWriteMarkdownPartial(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, Summary{DocA: "a", DocB: "b", PagesA: 1, PagesB: 2, Partial: true}))

	out := buf.String()
	assert.Contains(t, out, "stopped at the first difference")
	assert.Contains(t, out, "No page was compared.")
}
