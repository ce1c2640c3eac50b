package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// EvaluationEvent is published after every completed remote call. It never
// carries the submission text or the API key.
type EvaluationEvent struct {
	RubricID         string    `json:"rubric_id"`
	Model            string    `json:"model"`
	CredentialSource string    `json:"credential_source"`
	Mode             string    `json:"mode"`
	FinalGrade       string    `json:"final_grade"`
	DerivedGrade     string    `json:"derived_grade,omitempty"`
	GradeConsistent  bool      `json:"grade_consistent"`
	SchemaIssues     int       `json:"schema_issues"`
	DurationMs       int64     `json:"duration_ms"`
	CorrelationID    string    `json:"correlation_id,omitempty"`
	CompletedAt      time.Time `json:"completed_at"`
}

// EventPublisher delivers evaluation events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event EvaluationEvent) error
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSEventPublisher publishes events on "<subjectBase>.evaluation.completed".
// It returns nil when no connection is supplied.
func NewNATSEventPublisher(conn *nats.Conn, subjectBase string) EventPublisher {
	if conn == nil {
		return nil
	}
	base := strings.Trim(strings.ReplaceAll(subjectBase, ":", "."), ".")
	if base == "" {
		base = "gema.rubric"
	}
	return &natsEventPublisher{conn: conn, subject: base + ".evaluation.completed"}
}

func (p *natsEventPublisher) Publish(_ context.Context, event EvaluationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, payload)
}
