package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
)

func fullEvaluation(r rubric.Rubric, value string, grade string) Evaluation {
	evaluation := Evaluation{FinalGrade: grade, OverallComments: "Solid work."}
	for _, part := range r.Parts {
		verdicts := PartVerdicts{Key: part.Key}
		for _, question := range part.Criteria {
			verdicts.Answers = append(verdicts.Answers, Answer{
				Question: question,
				Verdict:  Verdict{Value: value, Explanation: "Because " + question},
			})
		}
		evaluation.Parts = append(evaluation.Parts, verdicts)
	}
	return evaluation
}

func marshal(t *testing.T, value interface{}) string {
	t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	return string(raw)
}

func TestBuildAllYesRendersPass(t *testing.T) {
	for _, r := range rubric.Default().List() {
		t.Run(r.ID, func(t *testing.T) {
			report := Build(r, marshal(t, fullEvaluation(r, "yes", "pass")))

			require.Equal(t, ModeStructured, report.Mode)
			require.Len(t, report.Sections, len(r.Parts))
			for i, section := range report.Sections {
				require.Equal(t, r.Parts[i].Title, section.Title)
				require.Len(t, section.Criteria, len(r.Parts[i].Criteria))
				for _, criterion := range section.Criteria {
					require.True(t, criterion.Passed)
				}
			}
			require.Equal(t, GradePass, report.Grade.Status)
			require.Equal(t, "Final Grade: PASS", report.Grade.Label())
			require.Equal(t, "pass", report.DerivedGrade)
			require.True(t, report.GradeConsistent)
		})
	}
}

func TestBuildRendersGradeVerbatim(t *testing.T) {
	r := rubric.Platform()

	withNo := fullEvaluation(r, "yes", "pass")
	withNo.Parts[1].Answers[0].Verdict.Value = "no"
	report := Build(r, marshal(t, withNo))
	require.Equal(t, GradePass, report.Grade.Status)
	require.Equal(t, "fail", report.DerivedGrade)
	require.False(t, report.GradeConsistent)
	require.False(t, report.Sections[1].Criteria[0].Passed)

	allYesButFail := fullEvaluation(r, "yes", "fail")
	report = Build(r, marshal(t, allYesButFail))
	require.Equal(t, GradeFail, report.Grade.Status)
	require.Equal(t, "Final Grade: FAIL", report.Grade.Label())
	require.Equal(t, "pass", report.DerivedGrade)
	require.False(t, report.GradeConsistent)
}

func TestBuildRoundTripMatchesStructuredRendering(t *testing.T) {
	for _, r := range rubric.Default().List() {
		evaluation := fullEvaluation(r, "yes", "PASS")
		evaluation.Parts[0].Answers[0].Verdict = Verdict{Value: "No", Explanation: "Missing <b>detail</b> & \"quotes\"."}

		direct := BuildFromEvaluation(r, evaluation)
		parsed := Build(r, marshal(t, evaluation))
		require.Equal(t, direct, parsed, r.ID)
	}
}

func TestBuildFallsBackToRawText(t *testing.T) {
	r := rubric.Ecosystem()

	for _, payload := range []string{`{"part1_complementors_intermediaries": {`, `[1,2,3]`, `"pass"`, `null`, ``, `Looks good overall.`} {
		report := Build(r, payload)
		require.Equal(t, ModeRawText, report.Mode, payload)
		require.Equal(t, RawTextWarning, report.Warning)
		require.Equal(t, payload, report.RawText)
		require.Empty(t, report.Sections)
		require.Equal(t, GradeNeutral, report.Grade.Status)
	}
}

func TestBuildMissingFinalGradeIsNeutral(t *testing.T) {
	r := rubric.Ecosystem()
	report := Build(r, `{"part2_mve": {"Is the minimal viable ecosystem defined?": {"value": "yes", "explanation": "ok"}}}`)

	require.Equal(t, ModeStructured, report.Mode)
	require.False(t, report.Grade.Present)
	require.Equal(t, GradeNeutral, report.Grade.Status)
	require.Equal(t, "Final Grade: ", report.Grade.Label())
	require.Len(t, report.Sections, 1)
	require.Equal(t, "part2_mve", report.Sections[0].Key)

	report = Build(r, `{"final_grade": "incomplete"}`)
	require.Equal(t, GradeNeutral, report.Grade.Status)
	require.Equal(t, "Final Grade: incomplete", report.Grade.Label())
}

func TestBuildExampleScenario(t *testing.T) {
	r := rubric.DigitalDisruption()
	payload := `{"part1":{"Q1":{"value":"yes","explanation":"ok"}}, "final_grade":"fail","overall_comments":""}`

	report := Build(r, payload)
	require.Len(t, report.Sections, 1)
	require.Equal(t, "Part 1 — Business Model", report.Sections[0].Title)
	require.Equal(t, []Criterion{{Question: "Q1", Value: "yes", Passed: true, Explanation: "ok"}}, report.Sections[0].Criteria)
	require.Equal(t, GradeFail, report.Grade.Status)
	require.False(t, report.HasComments())

	html, err := NewHTMLRenderer().Render(report)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(html), "✅"))
	require.NotContains(t, string(html), "❌")
	require.Contains(t, string(html), "Final Grade: FAIL")
	require.Contains(t, string(html), "alert-error")
	require.NotContains(t, string(html), "Overall Comments")
}

func TestBuildSkipsMalformedSections(t *testing.T) {
	r := rubric.TransformationPlan()
	payload := `{
		"part1_awareness": "not an object",
		"part2_vision": {
			"Zeta question?": {"value": "YES", "explanation": "first"},
			"Broken": "nope",
			"Alpha question?": {"value": true, "explanation": 42}
		},
		"part3_use_cases": null,
		"final_grade": "Pass",
		"overall_comments": "Keep going."
	}`

	report := Build(r, payload)
	require.Len(t, report.Sections, 1)
	criteria := report.Sections[0].Criteria
	require.Len(t, criteria, 2)
	require.Equal(t, "Zeta question?", criteria[0].Question)
	require.True(t, criteria[0].Passed)
	require.Equal(t, "Alpha question?", criteria[1].Question)
	require.False(t, criteria[1].Passed)
	require.Equal(t, "true", criteria[1].Value)
	require.Equal(t, "42", criteria[1].Explanation)
	require.Equal(t, GradePass, report.Grade.Status)
	require.Equal(t, "fail", report.DerivedGrade)
	require.Equal(t, "Keep going.", report.OverallComments)
}

func TestBuildOmitsNonStringComments(t *testing.T) {
	report := Build(rubric.Ecosystem(), `{"final_grade": "pass", "overall_comments": {"note": "x"}}`)
	require.False(t, report.HasComments())
}

func TestBuilderReportsSchemaIssues(t *testing.T) {
	registry := rubric.Default()
	validator, err := NewValidator(registry.List()...)
	require.NoError(t, err)
	builder := NewBuilder(validator)

	r := rubric.Platform()
	conforming := builder.Build(r, marshal(t, fullEvaluation(r, "yes", "pass")))
	require.Empty(t, conforming.SchemaIssues)

	payload := `{"part1_interactions_actors": {"Are the core platform interactions described clearly?": {"value": "maybe", "explanation": "?"}}, "final_grade": "pass"}`
	degraded := builder.Build(r, payload)
	require.NotEmpty(t, degraded.SchemaIssues)
	require.Equal(t, GradePass, degraded.Grade.Status)
	require.Len(t, degraded.Sections, 1)

	raw := builder.Build(r, "not json")
	require.Empty(t, raw.SchemaIssues)
}

func TestHTMLRendererSanitisesModelText(t *testing.T) {
	r := rubric.Ecosystem()
	payload := `{"part3_risks": {"Are core ecosystem risks identified?": {"value": "no", "explanation": "<script>alert(1)</script>Adoption risk\nmissing"}}, "final_grade": "fail", "overall_comments": "Line one\nLine <em>two</em>"}`

	html, err := NewHTMLRenderer().Render(Build(r, payload))
	require.NoError(t, err)
	out := string(html)
	require.NotContains(t, out, "<script>")
	require.Contains(t, out, "Adoption risk")
	require.Contains(t, out, "❌ Are core ecosystem risks identified?")
	require.Contains(t, out, failColor)
	require.Contains(t, out, "Overall Comments")
	require.Contains(t, out, "<em>two</em>")
	require.Contains(t, out, "<br")
}

func TestHTMLRendererRawText(t *testing.T) {
	html, err := NewHTMLRenderer().Render(Build(rubric.Platform(), "The model said <b>hello</b> & left"))
	require.NoError(t, err)
	out := string(html)
	require.Contains(t, out, RawTextWarning)
	require.Contains(t, out, "&amp; left")
	require.Contains(t, out, "&lt;b&gt;hello&lt;/b&gt;")
	require.NotContains(t, out, "<b>hello</b>")
	require.NotContains(t, out, "Final Grade")
}

func TestHTMLRendererRawTextKeepsTagLikeText(t *testing.T) {
	payload := "Sorry, output cut: {\"part1\": <incomplete> see <Q1 & Q2>\nsecond line"
	built := Build(rubric.DigitalDisruption(), payload)
	require.Equal(t, ModeRawText, built.Mode)

	html, err := NewHTMLRenderer().Render(built)
	require.NoError(t, err)
	out := string(html)
	require.Contains(t, out, "&lt;incomplete&gt;")
	require.Contains(t, out, "&lt;Q1 &amp; Q2&gt;")
	require.Contains(t, out, "see &lt;Q1 &amp; Q2&gt;\nsecond line")
}

func TestTerminalRenderer(t *testing.T) {
	r := rubric.Platform()
	evaluation := fullEvaluation(r, "yes", "pass")
	evaluation.Parts[2].Answers[0].Verdict.Value = "no"

	var out strings.Builder
	require.NoError(t, NewTerminalRenderer(true).Render(&out, Build(r, marshal(t, evaluation))))
	text := out.String()

	require.Contains(t, text, "Part 1 — Core Interactions and Actors\n")
	require.Contains(t, text, "  ✅ Are the core platform interactions described clearly?\n")
	require.Contains(t, text, "  ❌ Is a realistic monetization model proposed?\n")
	require.Contains(t, text, "Final Grade: PASS\n")
	require.Contains(t, text, "Overall Comments\nSolid work.\n")

	out.Reset()
	require.NoError(t, NewTerminalRenderer(true).Render(&out, Build(r, "oops")))
	require.Equal(t, "⚠ "+RawTextWarning+"\n\noops\n", out.String())
}
