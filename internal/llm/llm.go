// Package llm talks to OpenAI-compatible chat completion endpoints.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Usage is the token accounting reported by the endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the first choice of a completion.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Completer issues one blocking completion call.
type Completer interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// ExtractJSON returns the JSON object inside a model reply. Bare objects are
// returned unchanged; otherwise markdown fences are stripped and the span
// from the first '{' to the last '}' is taken.
func ExtractJSON(content string) (string, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s, nil
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return s[start : end+1], nil
}
