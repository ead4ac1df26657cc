package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StartURLPrefix marks the line of a planner prompt carrying the start URL.
const StartURLPrefix = "Start URL:"

// MockClient answers every request with a small deterministic plan.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a plan that opens the start URL (when the
// prompt names one) and takes a screenshot.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	content := m.generatePlan(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      &ChatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{CompletionTokens: len(content) / 4, TotalTokens: len(content) / 4},
	}, nil
}

func (m *MockClient) generatePlan(req *ChatCompletionRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	var startURL string
	for _, line := range strings.Split(lastUserMessage, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), StartURLPrefix); ok {
			startURL = strings.TrimSpace(rest)
		}
	}

	actions := []map[string]any{}
	if startURL != "" {
		actions = append(actions, map[string]any{"type": "goto", "url": startURL})
	}
	actions = append(actions, map[string]any{"type": "screenshot", "name": "mock"})

	plan := map[string]any{
		"taskName": "[MOCK] " + truncate(firstLine(lastUserMessage), 60),
		"startUrl": startURL,
		"actions":  actions,
	}
	data, _ := json.Marshal(plan)
	return string(data)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
