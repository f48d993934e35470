package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient is a deterministic Client for tests. Responses are matched by
// prompt substring in registration order; unmatched prompts get the default.
type MockClient struct {
	mu       sync.Mutex
	rules    []mockRule
	Default  string
	Err      error
	Requests []Request
}

type mockRule struct {
	substring string
	response  string
}

// NewMockClient creates a mock with the given default response.
func NewMockClient(defaultResponse string) *MockClient {
	return &MockClient{Default: defaultResponse}
}

// Respond registers a canned response for prompts containing substring.
func (m *MockClient) Respond(substring, response string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{substring: substring, response: response})
	return m
}

// GenerateText implements Client.
func (m *MockClient) GenerateText(_ context.Context, req Request) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return Response{}, m.Err
	}
	for _, rule := range m.rules {
		if strings.Contains(req.Prompt, rule.substring) {
			return Response{Text: rule.response, PromptTokens: len(req.Prompt) / 4, CompletionTokens: len(rule.response) / 4}, nil
		}
	}
	if m.Default == "" {
		return Response{}, fmt.Errorf("mock llm: no rule matched and no default set")
	}
	return Response{Text: m.Default, PromptTokens: len(req.Prompt) / 4, CompletionTokens: len(m.Default) / 4}, nil
}

// CallCount returns the number of GenerateText invocations.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
