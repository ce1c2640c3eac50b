package report

import (
	"bytes"
	"encoding/json"

	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
)

// Verdict is the model's answer to one criterion.
type Verdict struct {
	Value       string `json:"value"`
	Explanation string `json:"explanation"`
}

// Answer pairs a criterion question with its verdict.
type Answer struct {
	Question string
	Verdict  Verdict
}

// PartVerdicts holds the ordered answers of one rubric part.
type PartVerdicts struct {
	Key     string
	Answers []Answer
}

// Evaluation is the structured form of a payload in the shared response
// schema. MarshalJSON keeps part and answer order.
type Evaluation struct {
	Parts           []PartVerdicts
	FinalGrade      string
	OverallComments string
}

// MarshalJSON encodes the evaluation in the shape the rubric instructions request.
func (e Evaluation) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, part := range e.Parts {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, part.Key); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, answer := range part.Answers {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, answer.Question); err != nil {
				return nil, err
			}
			encoded, err := json.Marshal(answer.Verdict)
			if err != nil {
				return nil, err
			}
			buf.Write(encoded)
		}
		buf.WriteByte('}')
	}
	if len(e.Parts) > 0 {
		buf.WriteByte(',')
	}
	if err := writeKey(&buf, rubric.FieldFinalGrade); err != nil {
		return nil, err
	}
	if err := writeValue(&buf, e.FinalGrade); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	if err := writeKey(&buf, rubric.FieldOverallComments); err != nil {
		return nil, err
	}
	if err := writeValue(&buf, e.OverallComments); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AllYes reports whether every answer of the evaluation is yes.
func (e Evaluation) AllYes() bool {
	for _, part := range e.Parts {
		for _, answer := range part.Answers {
			if answer.Verdict.Value != "yes" {
				return false
			}
		}
	}
	return true
}

// BuildFromEvaluation renders structured data directly, without a JSON round trip.
func BuildFromEvaluation(r rubric.Rubric, e Evaluation) Report {
	report := Report{
		RubricID: r.ID,
		Mode:     ModeStructured,
		Sections: []Section{},
	}

	byKey := make(map[string]PartVerdicts, len(e.Parts))
	for _, part := range e.Parts {
		byKey[part.Key] = part
	}

	for _, part := range r.Parts {
		verdicts, ok := byKey[part.Key]
		if !ok {
			continue
		}
		section := Section{Key: part.Key, Title: part.Title, Criteria: []Criterion{}}
		seen := map[string]int{}
		for _, answer := range verdicts.Answers {
			criterion := Criterion{
				Question:    answer.Question,
				Value:       answer.Verdict.Value,
				Passed:      isYes(answer.Verdict.Value),
				Explanation: answer.Verdict.Explanation,
			}
			if position, dup := seen[answer.Question]; dup {
				section.Criteria[position] = criterion
				continue
			}
			seen[answer.Question] = len(section.Criteria)
			section.Criteria = append(section.Criteria, criterion)
		}
		report.Sections = append(report.Sections, section)
	}

	report.Grade = classifyGrade(e.FinalGrade, true)
	report.OverallComments = e.OverallComments
	report.DerivedGrade = deriveGrade(r, report.Sections)
	report.GradeConsistent = string(report.Grade.Status) == report.DerivedGrade
	return report
}

func writeKey(buf *bytes.Buffer, key string) error {
	if err := writeValue(buf, key); err != nil {
		return err
	}
	buf.WriteByte(':')
	return nil
}

func writeValue(buf *bytes.Buffer, value string) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}
