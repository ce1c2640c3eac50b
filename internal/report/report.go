// Package report turns an evaluation payload into a rubric report. Parsing is
// lenient: anything the model gets wrong degrades the report, it never fails.
package report

import (
	"encoding/json"
	"strings"

	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
)

// RawTextWarning is shown when the payload cannot be read as a JSON object.
const RawTextWarning = "Could not parse the evaluation into sections. Showing compact text."

// Mode describes how a payload was rendered.
type Mode string

const (
	// ModeStructured renders sections, grade and comments.
	ModeStructured Mode = "structured"
	// ModeRawText shows the unparsed payload as-is.
	ModeRawText Mode = "raw_text"
)

// GradeStatus is the display class of the final grade.
type GradeStatus string

const (
	GradePass    GradeStatus = "pass"
	GradeFail    GradeStatus = "fail"
	GradeNeutral GradeStatus = "neutral"
)

// Criterion is one rendered badge.
type Criterion struct {
	Question    string `json:"question"`
	Value       string `json:"value"`
	Passed      bool   `json:"passed"`
	Explanation string `json:"explanation"`
}

// Section groups the badges of one rubric part.
type Section struct {
	Key      string      `json:"key"`
	Title    string      `json:"title"`
	Criteria []Criterion `json:"criteria"`
}

// Grade is the final grade exactly as the payload states it.
type Grade struct {
	Status  GradeStatus `json:"status"`
	Raw     string      `json:"raw"`
	Present bool        `json:"present"`
}

// Label is the banner text of the grade.
func (g Grade) Label() string {
	switch g.Status {
	case GradePass:
		return "Final Grade: PASS"
	case GradeFail:
		return "Final Grade: FAIL"
	default:
		return "Final Grade: " + g.Raw
	}
}

// Report is the rendered verdict of one submission.
type Report struct {
	RubricID        string    `json:"rubric_id"`
	Mode            Mode      `json:"mode"`
	Warning         string    `json:"warning,omitempty"`
	RawText         string    `json:"raw_text,omitempty"`
	Sections        []Section `json:"sections"`
	Grade           Grade     `json:"grade"`
	OverallComments string    `json:"overall_comments,omitempty"`
	DerivedGrade    string    `json:"derived_grade,omitempty"`
	GradeConsistent bool      `json:"grade_consistent"`
	SchemaIssues    []string  `json:"schema_issues,omitempty"`
}

// HasComments reports whether the overall comments section is shown.
func (r Report) HasComments() bool {
	return r.OverallComments != ""
}

// Builder builds reports, optionally checking payloads against rubric schemas.
type Builder struct {
	validator *Validator
}

// NewBuilder returns a builder. A nil validator skips schema checks.
func NewBuilder(validator *Validator) *Builder {
	return &Builder{validator: validator}
}

// Build renders payload against r without schema checks.
func Build(r rubric.Rubric, payload string) Report {
	return NewBuilder(nil).Build(r, payload)
}

// Build interprets payload as the rubric's schema.
func (b *Builder) Build(r rubric.Rubric, payload string) Report {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil || fields == nil {
		return rawTextReport(r, payload)
	}

	report := Report{
		RubricID: r.ID,
		Mode:     ModeStructured,
		Sections: []Section{},
	}

	for _, part := range r.Parts {
		raw, ok := fields[part.Key]
		if !ok {
			continue
		}
		members, ok := decodeObject(raw)
		if !ok {
			continue
		}
		section := Section{Key: part.Key, Title: part.Title, Criteria: []Criterion{}}
		for _, member := range members {
			criterion, ok := decodeCriterion(member)
			if !ok {
				continue
			}
			section.Criteria = append(section.Criteria, criterion)
		}
		report.Sections = append(report.Sections, section)
	}

	gradeValue, gradePresent := fields[rubric.FieldFinalGrade]
	report.Grade = classifyGrade(stringify(gradeValue), gradePresent)

	if raw, ok := fields[rubric.FieldOverallComments]; ok {
		var comments string
		if err := json.Unmarshal(raw, &comments); err == nil {
			report.OverallComments = comments
		}
	}

	report.DerivedGrade = deriveGrade(r, report.Sections)
	report.GradeConsistent = string(report.Grade.Status) == report.DerivedGrade

	if b != nil && b.validator != nil {
		report.SchemaIssues = b.validator.Issues(r.ID, []byte(payload))
	}

	return report
}

func rawTextReport(r rubric.Rubric, payload string) Report {
	return Report{
		RubricID: r.ID,
		Mode:     ModeRawText,
		Warning:  RawTextWarning,
		RawText:  payload,
		Sections: []Section{},
		Grade:    Grade{Status: GradeNeutral},
	}
}

func decodeCriterion(m member) (Criterion, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(m.Value, &fields); err != nil || fields == nil {
		return Criterion{}, false
	}

	criterion := Criterion{
		Question:    m.Key,
		Explanation: stringify(fields["explanation"]),
	}
	if raw, ok := fields["value"]; ok {
		var value string
		if err := json.Unmarshal(raw, &value); err == nil {
			criterion.Value = value
			criterion.Passed = isYes(value)
		} else {
			criterion.Value = stringify(raw)
		}
	}
	return criterion, true
}

func isYes(value string) bool {
	return strings.ToLower(value) == "yes"
}

func classifyGrade(raw string, present bool) Grade {
	grade := Grade{Raw: raw, Present: present, Status: GradeNeutral}
	switch strings.ToLower(raw) {
	case "pass":
		grade.Status = GradePass
	case "fail":
		grade.Status = GradeFail
	}
	return grade
}

// deriveGrade recomputes the grade locally: pass only when every criterion
// of the rubric was rendered with a yes.
func deriveGrade(r rubric.Rubric, sections []Section) string {
	passed := make(map[string]map[string]bool, len(sections))
	for _, section := range sections {
		answers := make(map[string]bool, len(section.Criteria))
		for _, criterion := range section.Criteria {
			answers[criterion.Question] = criterion.Passed
		}
		passed[section.Key] = answers
	}

	for _, part := range r.Parts {
		for _, question := range part.Criteria {
			if !passed[part.Key][question] {
				return string(GradeFail)
			}
		}
	}
	return string(GradePass)
}
