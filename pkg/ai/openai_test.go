package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model          string    `json:"model"`
	Messages       []Message `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func newFakeOpenAI(t *testing.T, status int, body string, hits *int32, captured *capturedRequest, auth *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

const chatCompletionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1,
	"model": "gpt-5-nano",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"final_grade\":\"pass\"}"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`

func TestOpenAIEvaluatorSendsDeveloperAndUserMessages(t *testing.T) {
	var hits int32
	var captured capturedRequest
	var auth string
	server := newFakeOpenAI(t, http.StatusOK, chatCompletionBody, &hits, &captured, &auth)

	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{BaseURL: server.URL + "/v1", JSONMode: true, Logger: zerolog.Nop()})
	require.NoError(t, err)

	messages := []Message{
		{Role: RoleDeveloper, Content: "rubric"},
		{Role: RoleUser, Content: "  my submission\n"},
	}
	resp, err := evaluator.Evaluate(context.Background(), Session{APIKey: "sk-test", Model: "gpt-x"}, messages)
	require.NoError(t, err)

	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
	require.Equal(t, "Bearer sk-test", auth)
	require.Equal(t, "gpt-x", captured.Model)
	require.Equal(t, messages, captured.Messages)
	require.NotNil(t, captured.ResponseFormat)
	require.Equal(t, "json_object", captured.ResponseFormat.Type)

	require.Equal(t, `{"final_grade":"pass"}`, resp.Text)
	require.Equal(t, "chat_choice", resp.Extractor)
	require.Equal(t, "gpt-x", resp.Model)
	require.Equal(t, 17, resp.Usage.TotalTokens)
}

func TestOpenAIEvaluatorUsesDefaultModel(t *testing.T) {
	var hits int32
	var captured capturedRequest
	server := newFakeOpenAI(t, http.StatusOK, chatCompletionBody, &hits, &captured, nil)

	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), Session{APIKey: "sk-test"}, []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)
	require.Equal(t, DefaultModel, captured.Model)
	require.Nil(t, captured.ResponseFormat)
}

func TestOpenAIEvaluatorRequiresCredentialBeforeCalling(t *testing.T) {
	var hits int32
	server := newFakeOpenAI(t, http.StatusOK, chatCompletionBody, &hits, nil, nil)

	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), Session{APIKey: "  "}, []Message{{Role: RoleUser, Content: "x"}})
	require.True(t, errors.Is(err, ErrMissingCredential))
	require.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestOpenAIEvaluatorWrapsServiceErrors(t *testing.T) {
	var hits int32
	body := `{"error": {"message": "upstream exploded", "type": "server_error"}}`
	server := newFakeOpenAI(t, http.StatusInternalServerError, body, &hits, nil, nil)

	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), Session{APIKey: "sk-test"}, []Message{{Role: RoleUser, Content: "x"}})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEvaluationFailed))
	require.Contains(t, err.Error(), "upstream exploded")
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestOpenAIEvaluatorReturnsEnvelopeWhenNoText(t *testing.T) {
	var hits int32
	body := `{"id":"chatcmpl-2","object":"chat.completion","model":"gpt-5-nano","choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"length"}]}`
	server := newFakeOpenAI(t, http.StatusOK, body, &hits, nil, nil)

	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	resp, err := evaluator.Evaluate(context.Background(), Session{APIKey: "sk-test"}, []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)
	require.Equal(t, ExtractorRawEnvelope, resp.Extractor)
	require.Contains(t, resp.Text, "chatcmpl-2")
}
