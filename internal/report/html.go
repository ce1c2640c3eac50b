package report

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	passColor = "#0f766e"
	failColor = "#b91c1c"
)

const reportTemplate = `<div class="report" data-mode="{{.Mode}}">
{{- if .Warning}}
<div class="alert alert-warning">{{.Warning}}</div>
{{- end}}
{{- if .RawText}}
<div class="raw-text">{{.RawText}}</div>
{{- end}}
{{- range .Sections}}
<section class="part" data-part="{{.Key}}">
<div style="padding:12px 16px;border:1px solid #ddd;border-radius:10px;background:#fafafa;"><h4 style="margin:0 0 8px 0">{{.Title}}</h4></div>
{{- range .Criteria}}
<div class="criterion" data-passed="{{.Passed}}" style="padding:10px 12px;border:1px solid #eee;border-radius:8px;margin:8px 0;">
<div style="font-weight:600">{{.Badge}} {{.Question}}</div>
<div style="color:{{.Color}};font-size:0.95em;margin-top:4px">{{.Explanation}}</div>
</div>
{{- end}}
</section>
{{- end}}
{{- if .ShowGrade}}
<div class="alert alert-{{.GradeClass}} grade">{{.GradeLabel}}</div>
{{- end}}
{{- if .Comments}}
<h3>Overall Comments</h3>
<div class="overall-comments">{{.Comments}}</div>
{{- end}}
{{- if .SchemaIssues}}
<details class="schema-notes"><summary>Schema notes ({{len .SchemaIssues}})</summary><ul>
{{- range .SchemaIssues}}<li>{{.}}</li>{{end -}}
</ul></details>
{{- end}}
</div>`

type htmlCriterion struct {
	Question    string
	Passed      bool
	Badge       string
	Color       template.CSS
	Explanation template.HTML
}

type htmlSection struct {
	Key      string
	Title    string
	Criteria []htmlCriterion
}

type htmlView struct {
	Mode         Mode
	Warning      string
	RawText      string
	Sections     []htmlSection
	ShowGrade    bool
	GradeClass   string
	GradeLabel   string
	Comments     template.HTML
	SchemaIssues []string
}

// HTMLRenderer renders reports as HTML fragments. Explanations and comments
// are sanitised with a UGC policy and keep their line breaks. Raw-text
// payloads are escaped and shown as-is.
type HTMLRenderer struct {
	tmpl      *template.Template
	sanitizer *bluemonday.Policy
}

// NewHTMLRenderer parses the report template.
func NewHTMLRenderer() *HTMLRenderer {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	return &HTMLRenderer{
		tmpl:      template.Must(template.New("report").Parse(reportTemplate)),
		sanitizer: sanitizer,
	}
}

// Render returns the HTML fragment of the report.
func (h *HTMLRenderer) Render(report Report) (template.HTML, error) {
	view := htmlView{
		Mode:         report.Mode,
		Warning:      report.Warning,
		RawText:      report.RawText,
		Comments:     h.sanitize(report.OverallComments),
		SchemaIssues: report.SchemaIssues,
	}

	if report.Mode == ModeStructured {
		view.ShowGrade = true
		view.GradeLabel = report.Grade.Label()
		switch report.Grade.Status {
		case GradePass:
			view.GradeClass = "success"
		case GradeFail:
			view.GradeClass = "error"
		default:
			view.GradeClass = "info"
		}
	}

	for _, section := range report.Sections {
		rendered := htmlSection{Key: section.Key, Title: section.Title}
		for _, criterion := range section.Criteria {
			item := htmlCriterion{
				Question:    criterion.Question,
				Passed:      criterion.Passed,
				Badge:       "❌",
				Color:       failColor,
				Explanation: h.sanitize(criterion.Explanation),
			}
			if criterion.Passed {
				item.Badge = "✅"
				item.Color = passColor
			}
			rendered.Criteria = append(rendered.Criteria, item)
		}
		view.Sections = append(view.Sections, rendered)
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (h *HTMLRenderer) sanitize(text string) template.HTML {
	if text == "" {
		return ""
	}
	withBreaks := strings.ReplaceAll(text, "\n", "<br>")
	return template.HTML(h.sanitizer.Sanitize(withBreaks))
}
