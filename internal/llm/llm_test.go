package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/aiscore/internal/config"
	"github.com/signalnine/aiscore/internal/llm"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "whitespace", in: "\n  {\"a\": 1}\n", want: `{"a": 1}`},
		{name: "fenced", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "prose", in: `Here you go: {"a": {"b": 2}} hope it helps`, want: `{"a": {"b": 2}}`},
		{name: "no object", in: "I cannot help with that", wantErr: true},
		{name: "reversed braces", in: "} oops {", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := llm.ExtractJSON(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := llm.NewOpenAI(llm.Options{Model: "gpt-4"})
	require.Error(t, err)

	var cfgErr *config.Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "OPENAI_API_KEY", cfgErr.Field)
}

func TestOpenAIComplete(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4-0613",
			"choices": [{"message": {"role": "assistant", "content": "{\"ai_score\": 0.9}"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	c, err := llm.NewOpenAI(llm.Options{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "gpt-4"})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), &llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "gpt-4", gotBody["model"], "falls back to the client model")
	assert.Equal(t, `{"ai_score": 0.9}`, resp.Content)
	assert.Equal(t, "gpt-4-0613", resp.Model)
	assert.Equal(t, 17, resp.Usage.TotalTokens)
}

func TestOpenAICompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "api error", status: http.StatusTooManyRequests, body: `{"error": {"message": "slow down", "type": "rate_limit"}}`, want: "slow down"},
		{name: "opaque error", status: http.StatusBadGateway, body: `<html>`, want: "502"},
		{name: "no choices", status: http.StatusOK, body: `{"choices": []}`, want: "no choices"},
		{name: "bad json", status: http.StatusOK, body: `nope`, want: "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := llm.NewOpenAI(llm.Options{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)
			_, err = c.Complete(context.Background(), &llm.Request{Model: "m"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFake(t *testing.T) {
	f := &llm.Fake{Content: "{}"}
	resp, err := f.Complete(context.Background(), &llm.Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Content)
	assert.Equal(t, 1, f.Calls())

	f.Err = errors.New("boom")
	_, err = f.Complete(context.Background(), &llm.Request{})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 2, f.Calls())
}
