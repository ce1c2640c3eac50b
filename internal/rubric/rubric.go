package rubric

import (
	"encoding/json"
	"errors"

	"github.com/noah-isme/gema-rubric-evaluator/internal/credential"
)

// DefaultModel is the model identifier pre-filled on every evaluator.
const DefaultModel = "gpt-5-nano"

// Field names shared by every rubric schema.
const (
	FieldFinalGrade      = "final_grade"
	FieldOverallComments = "overall_comments"
)

// ErrNotFound indicates no rubric is registered under the requested id.
var ErrNotFound = errors.New("rubric not found")

// Part is one required section of a submission. Criteria hold the exact
// question texts the model must use as keys.
type Part struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Criteria []string `json:"criteria"`
}

// Rubric is the immutable grading definition of one evaluator.
type Rubric struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Icon         string            `json:"icon"`
	Intro        string            `json:"intro"`
	Placeholder  string            `json:"placeholder"`
	Instructions string            `json:"-"`
	Parts        []Part            `json:"parts"`
	DefaultModel string            `json:"default_model"`
	Credentials  credential.Policy `json:"credential_sources"`

	// MissingKeyWarning overrides the warning generated from Credentials.
	MissingKeyWarning string `json:"-"`
}

// CredentialWarning is the message shown when no credential source holds a key.
func (r Rubric) CredentialWarning() string {
	if r.MissingKeyWarning != "" {
		return r.MissingKeyWarning
	}
	return r.Credentials.MissingWarning()
}

// Part returns the part with the given key.
func (r Rubric) Part(key string) (Part, bool) {
	for _, part := range r.Parts {
		if part.Key == key {
			return part, true
		}
	}
	return Part{}, false
}

// CriteriaCount returns the number of criteria across all parts.
func (r Rubric) CriteriaCount() int {
	total := 0
	for _, part := range r.Parts {
		total += len(part.Criteria)
	}
	return total
}

// SchemaURL is the resource identifier of the rubric's JSON Schema.
func (r Rubric) SchemaURL() string {
	return "https://gema.local/schemas/rubrics/" + r.ID + ".json"
}

// JSONSchema describes the response the model is asked to produce. Every part
// and criterion is required.
func (r Rubric) JSONSchema() map[string]interface{} {
	criterion := map[string]interface{}{
		"type":     "object",
		"required": []string{"value", "explanation"},
		"properties": map[string]interface{}{
			"value":       map[string]interface{}{"type": "string", "enum": []string{"yes", "no"}},
			"explanation": map[string]interface{}{"type": "string"},
		},
	}

	properties := map[string]interface{}{
		FieldFinalGrade:      map[string]interface{}{"type": "string", "enum": []string{"pass", "fail"}},
		FieldOverallComments: map[string]interface{}{"type": "string"},
	}
	required := make([]string, 0, len(r.Parts)+2)

	for _, part := range r.Parts {
		criteria := make(map[string]interface{}, len(part.Criteria))
		for _, question := range part.Criteria {
			criteria[question] = criterion
		}
		properties[part.Key] = map[string]interface{}{
			"type":       "object",
			"title":      part.Title,
			"required":   append([]string(nil), part.Criteria...),
			"properties": criteria,
		}
		required = append(required, part.Key)
	}
	required = append(required, FieldFinalGrade, FieldOverallComments)

	return map[string]interface{}{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"$id":        r.SchemaURL(),
		"title":      r.Title,
		"type":       "object",
		"required":   required,
		"properties": properties,
	}
}

// SchemaDocument returns the JSON encoding of JSONSchema.
func (r Rubric) SchemaDocument() ([]byte, error) {
	return json.MarshalIndent(r.JSONSchema(), "", "  ")
}

// Registry holds rubrics in a stable display order.
type Registry struct {
	order []string
	byID  map[string]Rubric
}

// NewRegistry builds a registry from the given rubrics. Later duplicates replace earlier ones.
func NewRegistry(rubrics ...Rubric) *Registry {
	registry := &Registry{byID: make(map[string]Rubric, len(rubrics))}
	for _, r := range rubrics {
		if _, exists := registry.byID[r.ID]; !exists {
			registry.order = append(registry.order, r.ID)
		}
		registry.byID[r.ID] = r
	}
	return registry
}

// Default returns the registry of the four built-in evaluators.
func Default() *Registry {
	return NewRegistry(Platform(), Ecosystem(), DigitalDisruption(), TransformationPlan())
}

// List returns every rubric in registration order.
func (r *Registry) List() []Rubric {
	result := make([]Rubric, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.byID[id])
	}
	return result
}

// Get looks a rubric up by id.
func (r *Registry) Get(id string) (Rubric, error) {
	rubric, ok := r.byID[id]
	if !ok {
		return Rubric{}, ErrNotFound
	}
	return rubric, nil
}

// WithCredentials returns a copy of the registry where the rubric with the
// given id uses policy and a warning generated from it. Unknown ids are ignored.
func (r *Registry) WithCredentials(id string, policy credential.Policy) *Registry {
	rubrics := r.List()
	for i := range rubrics {
		if rubrics[i].ID == id {
			rubrics[i].Credentials = append(credential.Policy(nil), policy...)
			rubrics[i].MissingKeyWarning = ""
		}
	}
	return NewRegistry(rubrics...)
}
