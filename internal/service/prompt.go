package service

import (
	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
	"github.com/noah-isme/gema-rubric-evaluator/pkg/ai"
)

// AssemblePrompt builds the two-message exchange: the rubric instructions as
// a developer message followed by the submission exactly as received.
func AssemblePrompt(r rubric.Rubric, submission string) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleDeveloper, Content: r.Instructions},
		{Role: ai.RoleUser, Content: submission},
	}
}
