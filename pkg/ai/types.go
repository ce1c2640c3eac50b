package ai

import (
	"context"
	"errors"
)

// ErrMissingCredential indicates an evaluation was attempted without an API key.
// It is returned before any network activity.
var ErrMissingCredential = errors.New("openai api key is required")

// ErrEvaluationFailed wraps transport and service failures of the remote call.
var ErrEvaluationFailed = errors.New("evaluation failed")

// Role tags a message of the prompt exchange.
type Role string

const (
	// RoleDeveloper carries the fixed rubric instructions.
	RoleDeveloper Role = "developer"
	// RoleUser carries the verbatim submission.
	RoleUser Role = "user"
)

// Message is one role-tagged text message sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the caller-scoped configuration of one evaluation: the resolved
// credential and the selected model.
type Session struct {
	APIKey string
	Model  string
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the text payload extracted from the provider's response envelope.
// Text is expected, but not guaranteed, to be JSON.
type Response struct {
	Text      string `json:"text"`
	Extractor string `json:"extractor"`
	Model     string `json:"model"`
	Usage     Usage  `json:"usage"`
}

// Evaluator performs exactly one remote text-generation call.
type Evaluator interface {
	Evaluate(ctx context.Context, session Session, messages []Message) (Response, error)
}
