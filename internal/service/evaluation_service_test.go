package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-rubric-evaluator/internal/credential"
	"github.com/noah-isme/gema-rubric-evaluator/internal/report"
	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
	"github.com/noah-isme/gema-rubric-evaluator/pkg/ai"
)

type evaluatorStub struct {
	calls    int
	session  ai.Session
	messages []ai.Message
	response ai.Response
	err      error
}

func (s *evaluatorStub) Evaluate(_ context.Context, session ai.Session, messages []ai.Message) (ai.Response, error) {
	s.calls++
	s.session = session
	s.messages = messages
	if s.err != nil {
		return ai.Response{}, s.err
	}
	return s.response, nil
}

type publisherStub struct {
	events []EvaluationEvent
	err    error
}

func (p *publisherStub) Publish(_ context.Context, event EvaluationEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func passingPayload(t *testing.T, r rubric.Rubric) string {
	t.Helper()
	evaluation := report.Evaluation{FinalGrade: "pass", OverallComments: "Well argued."}
	for _, part := range r.Parts {
		verdicts := report.PartVerdicts{Key: part.Key}
		for _, question := range part.Criteria {
			verdicts.Answers = append(verdicts.Answers, report.Answer{
				Question: question,
				Verdict:  report.Verdict{Value: "yes", Explanation: "Covered."},
			})
		}
		evaluation.Parts = append(evaluation.Parts, verdicts)
	}
	raw, err := json.Marshal(evaluation)
	require.NoError(t, err)
	return string(raw)
}

func newTestService(evaluator ai.Evaluator, events EventPublisher, cfg EvaluationConfig) EvaluationService {
	return NewEvaluationService(rubric.Default(), evaluator, report.NewBuilder(nil), events, cfg, testLogger())
}

func TestEvaluateRejectsEmptySubmission(t *testing.T) {
	stub := &evaluatorStub{}
	svc := newTestService(stub, nil, EvaluationConfig{EnvironmentKey: func() string { return "sk-env" }})

	_, err := svc.Evaluate(context.Background(), EvaluationRequest{RubricID: "platform", Submission: " \n\t "})

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	require.ErrorIs(t, err, ErrEmptySubmission)
	require.Equal(t, EmptySubmissionWarning, inputErr.Warning)
	require.Zero(t, stub.calls)
}

func TestEvaluateMissingCredentialSkipsRemoteCall(t *testing.T) {
	stub := &evaluatorStub{}
	svc := newTestService(stub, nil, EvaluationConfig{})

	_, err := svc.Evaluate(context.Background(), EvaluationRequest{RubricID: "platform", Submission: "My proposal"})

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	require.ErrorIs(t, err, ErrMissingCredential)
	require.Equal(t, "Provide an OpenAI API key in the sidebar or set OPENAI_API_KEY.", inputErr.Warning)
	require.Zero(t, stub.calls)
}

func TestEvaluateStrictRubricIgnoresExplicitAndEnvironmentKeys(t *testing.T) {
	stub := &evaluatorStub{}
	svc := newTestService(stub, nil, EvaluationConfig{EnvironmentKey: func() string { return "sk-env" }})

	_, err := svc.Evaluate(context.Background(), EvaluationRequest{
		RubricID:    "digital-disruption",
		Submission:  "Business model canvas...",
		ExplicitKey: "sk-user",
	})

	require.ErrorIs(t, err, ErrMissingCredential)
	require.Zero(t, stub.calls)
}

func TestEvaluateUnknownRubric(t *testing.T) {
	stub := &evaluatorStub{}
	svc := newTestService(stub, nil, EvaluationConfig{})

	_, err := svc.Evaluate(context.Background(), EvaluationRequest{RubricID: "nope", Submission: "text"})
	require.ErrorIs(t, err, rubric.ErrNotFound)
	require.Zero(t, stub.calls)
}

func TestEvaluateCredentialOrderPerRubric(t *testing.T) {
	cases := []struct {
		name     string
		rubricID string
		explicit string
		session  string
		env      string
		wantKey  string
		wantFrom credential.Source
	}{
		{name: "platform_prefers_explicit", rubricID: "platform", explicit: "sk-user", env: "sk-env", wantKey: "sk-user", wantFrom: credential.SourceExplicit},
		{name: "platform_falls_back_to_environment", rubricID: "platform", env: "sk-env", wantKey: "sk-env", wantFrom: credential.SourceEnvironment},
		{name: "platform_ignores_session", rubricID: "platform", session: "sk-secret", env: "sk-env", wantKey: "sk-env", wantFrom: credential.SourceEnvironment},
		{name: "transformation_prefers_session", rubricID: "transformation-plan", explicit: "sk-user", session: "sk-secret", env: "sk-env", wantKey: "sk-secret", wantFrom: credential.SourceSession},
		{name: "transformation_environment_before_explicit", rubricID: "transformation-plan", explicit: "sk-user", env: "sk-env", wantKey: "sk-env", wantFrom: credential.SourceEnvironment},
		{name: "transformation_explicit_last", rubricID: "transformation-plan", explicit: "sk-user", wantKey: "sk-user", wantFrom: credential.SourceExplicit},
		{name: "disruption_session", rubricID: "digital-disruption", session: " sk-secret ", wantKey: "sk-secret", wantFrom: credential.SourceSession},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := rubric.Default().Get(tc.rubricID)
			require.NoError(t, err)

			stub := &evaluatorStub{response: ai.Response{Text: passingPayload(t, r)}}
			env := tc.env
			svc := newTestService(stub, nil, EvaluationConfig{
				SessionSecret:  tc.session,
				EnvironmentKey: func() string { return env },
			})

			outcome, err := svc.Evaluate(context.Background(), EvaluationRequest{
				RubricID:    tc.rubricID,
				Submission:  "submission",
				ExplicitKey: tc.explicit,
			})
			require.NoError(t, err)
			require.Equal(t, 1, stub.calls)
			require.Equal(t, tc.wantKey, stub.session.APIKey)
			require.Equal(t, tc.wantFrom, outcome.CredentialSource)
		})
	}
}

func TestEvaluateSendsVerbatimSubmission(t *testing.T) {
	r := rubric.Platform()
	stub := &evaluatorStub{response: ai.Response{Text: passingPayload(t, r), Extractor: "chat_choice"}}
	svc := newTestService(stub, nil, EvaluationConfig{EnvironmentKey: func() string { return "sk-env" }})

	submission := "  Proposal with leading space\n\nand trailing newline\n"
	outcome, err := svc.Evaluate(context.Background(), EvaluationRequest{RubricID: r.ID, Submission: submission})
	require.NoError(t, err)

	require.Len(t, stub.messages, 2)
	require.Equal(t, ai.RoleDeveloper, stub.messages[0].Role)
	require.Equal(t, r.Instructions, stub.messages[0].Content)
	require.Equal(t, ai.RoleUser, stub.messages[1].Role)
	require.Equal(t, submission, stub.messages[1].Content)

	require.Equal(t, rubric.DefaultModel, outcome.Model)
	require.Equal(t, "chat_choice", outcome.Extractor)
	require.Equal(t, report.ModeStructured, outcome.Report.Mode)
	require.Equal(t, report.GradePass, outcome.Report.Grade.Status)
	require.True(t, outcome.Report.GradeConsistent)
}

func TestEvaluateUsesRequestedModel(t *testing.T) {
	stub := &evaluatorStub{response: ai.Response{Text: "{}"}}
	svc := newTestService(stub, nil, EvaluationConfig{EnvironmentKey: func() string { return "sk-env" }})

	outcome, err := svc.Evaluate(context.Background(), EvaluationRequest{RubricID: "ecosystem", Submission: "text", Model: " gpt-4.1-mini "})
	require.NoError(t, err)
	require.Equal(t, "gpt-4.1-mini", stub.session.Model)
	require.Equal(t, "gpt-4.1-mini", outcome.Model)
}

func TestEvaluateWrapsRemoteFailure(t *testing.T) {
	stub := &evaluatorStub{err: errors.New("connection reset by peer")}
	svc := newTestService(stub, nil, EvaluationConfig{EnvironmentKey: func() string { return "sk-env" }})

	_, err := svc.Evaluate(context.Background(), EvaluationRequest{RubricID: "platform", Submission: "text"})
	require.ErrorIs(t, err, ai.ErrEvaluationFailed)
	require.Contains(t, err.Error(), "connection reset by peer")

	var inputErr *InputError
	require.False(t, errors.As(err, &inputErr))
}

func TestEvaluateRawPayloadFallsBack(t *testing.T) {
	stub := &evaluatorStub{response: ai.Response{Text: "The submission looks fine overall."}}
	svc := newTestService(stub, nil, EvaluationConfig{EnvironmentKey: func() string { return "sk-env" }})

	outcome, err := svc.Evaluate(context.Background(), EvaluationRequest{RubricID: "platform", Submission: "text"})
	require.NoError(t, err)
	require.Equal(t, report.ModeRawText, outcome.Report.Mode)
	require.Equal(t, report.RawTextWarning, outcome.Report.Warning)
	require.Equal(t, "The submission looks fine overall.", outcome.Report.RawText)
}

func TestEvaluatePublishesEventWithoutSecrets(t *testing.T) {
	r := rubric.Ecosystem()
	stub := &evaluatorStub{response: ai.Response{Text: passingPayload(t, r)}}
	events := &publisherStub{err: errors.New("nats down")}
	svc := newTestService(stub, events, EvaluationConfig{EnvironmentKey: func() string { return "sk-secret-value" }})

	_, err := svc.Evaluate(context.Background(), EvaluationRequest{
		RubricID:      r.ID,
		Submission:    "very private submission",
		CorrelationID: "corr-1",
	})
	require.NoError(t, err)
	require.Len(t, events.events, 1)

	event := events.events[0]
	require.Equal(t, r.ID, event.RubricID)
	require.Equal(t, "pass", event.FinalGrade)
	require.Equal(t, "corr-1", event.CorrelationID)
	require.Equal(t, string(credential.SourceEnvironment), event.CredentialSource)

	encoded, err := json.Marshal(event)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(encoded), "very private submission"))
	require.False(t, strings.Contains(string(encoded), "sk-secret-value"))
}

func TestEvaluateWithoutEvaluator(t *testing.T) {
	svc := newTestService(nil, nil, EvaluationConfig{EnvironmentKey: func() string { return "sk-env" }})

	_, err := svc.Evaluate(context.Background(), EvaluationRequest{RubricID: "platform", Submission: "text"})
	require.ErrorIs(t, err, ErrEvaluatorUnavailable)
}

func TestFailureDetailStripsSentinel(t *testing.T) {
	err := fmt.Errorf("%w: %w", ai.ErrEvaluationFailed, errors.New("status code 500: upstream exploded"))
	require.Equal(t, "status code 500: upstream exploded", FailureDetail(err))
	require.Equal(t, "unknown error", FailureDetail(ai.ErrEvaluationFailed))
	require.Empty(t, FailureDetail(nil))
}

func TestWarningFromInputError(t *testing.T) {
	warning, ok := Warning(fmt.Errorf("wrapped: %w", &InputError{Err: ErrEmptySubmission, Warning: EmptySubmissionWarning}))
	require.True(t, ok)
	require.Equal(t, EmptySubmissionWarning, warning)

	_, ok = Warning(errors.New("other"))
	require.False(t, ok)
}
