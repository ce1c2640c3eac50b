package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
)

// Validator checks payloads against the generated JSON Schema of each rubric.
// Its findings are informational and never change how a report renders.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the schema of every given rubric.
func NewValidator(rubrics ...rubric.Rubric) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	for _, r := range rubrics {
		document, err := r.SchemaDocument()
		if err != nil {
			return nil, fmt.Errorf("encode schema %s: %w", r.ID, err)
		}
		if err := compiler.AddResource(r.SchemaURL(), bytes.NewReader(document)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", r.ID, err)
		}
	}

	schemas := make(map[string]*jsonschema.Schema, len(rubrics))
	for _, r := range rubrics {
		schema, err := compiler.Compile(r.SchemaURL())
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", r.ID, err)
		}
		schemas[r.ID] = schema
	}

	return &Validator{schemas: schemas}, nil
}

// Issues lists schema violations of payload, one line per failing location.
// Unknown rubrics and payloads that are not JSON yield no issues.
func (v *Validator) Issues(rubricID string, payload []byte) []string {
	schema, ok := v.schemas[rubricID]
	if !ok {
		return nil
	}

	var document interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		return nil
	}

	err := schema.Validate(document)
	if err == nil {
		return nil
	}

	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}

	issues := []string{}
	collectIssues(validationErr, &issues)
	sort.Strings(issues)
	return issues
}

func collectIssues(err *jsonschema.ValidationError, issues *[]string) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		*issues = append(*issues, fmt.Sprintf("%s: %s", location, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectIssues(cause, issues)
	}
}
