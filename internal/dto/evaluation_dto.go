package dto

import (
	"github.com/noah-isme/gema-rubric-evaluator/internal/report"
	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
)

// EvaluationRequest is the JSON or form payload submitted for evaluation.
// Submission emptiness is checked by the evaluation service so the user sees
// the exact warning text.
type EvaluationRequest struct {
	Submission string `json:"submission" form:"submission"`
	Model      string `json:"model" form:"model" validate:"omitempty,max=128,printascii"`
	APIKey     string `json:"api_key" form:"api_key" validate:"omitempty,max=512"`
}

// EvaluationUsage reports token accounting of the remote call.
type EvaluationUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// EvaluationResponse is returned by the evaluate endpoint.
type EvaluationResponse struct {
	RubricID         string          `json:"rubric_id"`
	Model            string          `json:"model"`
	CredentialSource string          `json:"credential_source"`
	DurationMs       int64           `json:"duration_ms"`
	Usage            EvaluationUsage `json:"usage"`
	Payload          string          `json:"payload"`
	Report           report.Report   `json:"report"`
}

// RubricSummary lists an evaluator on the index endpoint.
type RubricSummary struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Icon              string   `json:"icon"`
	Intro             string   `json:"intro"`
	DefaultModel      string   `json:"default_model"`
	CredentialSources []string `json:"credential_sources"`
	Criteria          int      `json:"criteria"`
}

// RubricDetail describes one evaluator including its parts.
type RubricDetail struct {
	RubricSummary
	Placeholder string        `json:"placeholder"`
	Parts       []rubric.Part `json:"parts"`
}

// NewRubricSummary maps a rubric onto its summary.
func NewRubricSummary(r rubric.Rubric) RubricSummary {
	sources := make([]string, 0, len(r.Credentials))
	for _, source := range r.Credentials {
		sources = append(sources, string(source))
	}
	return RubricSummary{
		ID:                r.ID,
		Title:             r.Title,
		Icon:              r.Icon,
		Intro:             r.Intro,
		DefaultModel:      r.DefaultModel,
		CredentialSources: sources,
		Criteria:          r.CriteriaCount(),
	}
}

// NewRubricDetail maps a rubric onto its detail view.
func NewRubricDetail(r rubric.Rubric) RubricDetail {
	return RubricDetail{
		RubricSummary: NewRubricSummary(r),
		Placeholder:   r.Placeholder,
		Parts:         r.Parts,
	}
}
