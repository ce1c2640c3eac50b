package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// TerminalRenderer writes reports for a terminal.
type TerminalRenderer struct {
	title   *color.Color
	pass    *color.Color
	fail    *color.Color
	info    *color.Color
	warning *color.Color
	muted   *color.Color
}

// NewTerminalRenderer returns a renderer. With plain set, no ANSI codes are written.
func NewTerminalRenderer(plain bool) *TerminalRenderer {
	r := &TerminalRenderer{
		title:   color.New(color.Bold),
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		info:    color.New(color.FgCyan),
		warning: color.New(color.FgYellow),
		muted:   color.New(color.FgHiBlack),
	}
	if plain {
		for _, c := range []*color.Color{r.title, r.pass, r.fail, r.info, r.warning, r.muted} {
			c.DisableColor()
		}
	}
	return r
}

// Render writes the report to w.
func (t *TerminalRenderer) Render(w io.Writer, report Report) error {
	var b strings.Builder

	if report.Mode == ModeRawText {
		b.WriteString(t.warning.Sprint("⚠ " + report.Warning))
		b.WriteString("\n\n")
		b.WriteString(report.RawText)
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, section := range report.Sections {
		b.WriteString(t.title.Sprint(section.Title))
		b.WriteString("\n")
		for _, criterion := range section.Criteria {
			badge, tone := "❌", t.fail
			if criterion.Passed {
				badge, tone = "✅", t.pass
			}
			fmt.Fprintf(&b, "  %s %s\n", badge, criterion.Question)
			if criterion.Explanation != "" {
				fmt.Fprintf(&b, "     %s\n", tone.Sprint(criterion.Explanation))
			}
		}
		b.WriteString("\n")
	}

	switch report.Grade.Status {
	case GradePass:
		b.WriteString(t.pass.Sprint(report.Grade.Label()))
	case GradeFail:
		b.WriteString(t.fail.Sprint(report.Grade.Label()))
	default:
		b.WriteString(t.info.Sprint(report.Grade.Label()))
	}
	b.WriteString("\n")

	if report.HasComments() {
		b.WriteString("\n")
		b.WriteString(t.title.Sprint("Overall Comments"))
		b.WriteString("\n")
		b.WriteString(report.OverallComments)
		b.WriteString("\n")
	}

	if len(report.SchemaIssues) > 0 {
		b.WriteString("\n")
		b.WriteString(t.muted.Sprintf("Schema notes (%d):", len(report.SchemaIssues)))
		b.WriteString("\n")
		for _, issue := range report.SchemaIssues {
			b.WriteString(t.muted.Sprint("  - " + issue))
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
