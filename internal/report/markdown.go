// Package report writes a Markdown summary of a comparison.
package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Page is the outcome for one page slot.
type Page struct {
	Index      int
	Status     string
	DiffPixels int
}

// Summary is everything the report shows.
type Summary struct {
	DocA       string
	DocB       string
	PagesA     int
	PagesB     int
	Equal      bool
	OutputPath string
	DPI        float64
	Threshold  int
	Date       time.Time
	// Partial is set when the comparison stopped at the first difference.
	Partial bool
	Pages   []Page
}

// WriteMarkdown writes s to w as GitHub flavored Markdown.
func WriteMarkdown(w io.Writer, s Summary) error {
	md := markdown.NewMarkdown(w)

	md.H1("PDF Visual Diff Report")
	md.PlainText("")
	writeSummary(md, s)
	writeAlert(md, s)
	writePages(md, s)

	return md.Build()
}

func writeSummary(md *markdown.Markdown, s Summary) {
	output := "-"
	if s.OutputPath != "" {
		output = "`" + s.OutputPath + "`"
	}
	rows := [][]string{
		{"Document A", "`" + s.DocA + "`"},
		{"Document B", "`" + s.DocB + "`"},
		{"Pages A", strconv.Itoa(s.PagesA)},
		{"Pages B", strconv.Itoa(s.PagesB)},
		{"Resolution", strconv.FormatFloat(s.DPI, 'f', -1, 64) + " dpi"},
		{"Threshold", strconv.Itoa(s.Threshold)},
		{"Verdict", verdict(s)},
		{"Difference Document", output},
	}
	if !s.Date.IsZero() {
		rows = append([][]string{{"Date", s.Date.Format("2006-01-02 15:04:05 MST")}}, rows...)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func verdict(s Summary) string {
	if s.Equal {
		return "✅ Equal"
	}
	return "❌ Different"
}

func writeAlert(md *markdown.Markdown, s Summary) {
	switch {
	case s.Equal:
		md.Tip("The documents are visually equal.")
	case s.PagesA != s.PagesB:
		md.Warningf("The documents have a different number of pages (%d and %d).", s.PagesA, s.PagesB)
	default:
		md.Warningf("%d page(s) differ.", count(s.Pages, "different"))
	}
	md.PlainText("")
	if s.Partial {
		md.Note("The comparison stopped at the first difference. Pages after it were not compared.")
		md.PlainText("")
	}
}

func writePages(md *markdown.Markdown, s Summary) {
	md.H2("Pages")
	md.PlainText("")
	if len(s.Pages) == 0 {
		md.PlainText("No page was compared.")
		md.PlainText("")
		return
	}

	title := cases.Title(language.English)
	rows := make([][]string, len(s.Pages))
	for i, p := range s.Pages {
		rows[i] = []string{
			strconv.Itoa(p.Index + 1),
			title.String(p.Status),
			strconv.Itoa(p.DiffPixels),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Status", "Different Pixels"},
		Rows:   rows,
	})
	md.PlainText("")

	if !s.Equal {
		writePieChart(md, s.Pages, title)
	}
}

// writePieChart writes a mermaid pie chart of page statuses.
func writePieChart(md *markdown.Markdown, pages []Page, title cases.Caser) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Status"),
		piechart.WithShowData(true),
	)
	var seen []string
	for _, p := range pages {
		if !contains(seen, p.Status) {
			seen = append(seen, p.Status)
			chart.LabelAndIntValue(title.String(p.Status), uint64(count(pages, p.Status)))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func count(pages []Page, status string) int {
	n := 0
	for _, p := range pages {
		if p.Status == status {
			n++
		}
	}
	return n
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
