package llm

import (
	"context"
	"sync"
)

// MockClient implements Client for testing purposes.
// It allows configuring the response, simulating errors, and tracking calls
// for verification.
type MockClient struct {
	mu sync.Mutex

	response  string
	err       error
	available bool

	Calls []AnalyzeCall
}

// AnalyzeCall records a call to Analyze.
type AnalyzeCall struct {
	Prompt    string
	ImagePath string
}

// NewMockClient creates a new MockClient with default settings.
// By default, it is available and returns an empty response.
func NewMockClient() *MockClient {
	return &MockClient{
		available: true,
		Calls:     make([]AnalyzeCall, 0),
	}
}

// WithResponse configures the text returned by Analyze.
func (m *MockClient) WithResponse(resp string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = resp
	return m
}

// WithError configures the error returned by Analyze.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithAvailable configures whether Available() returns true or false.
func (m *MockClient) WithAvailable(available bool) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// Analyze implements Client.Analyze.
// It records the call and returns the configured response or error.
func (m *MockClient) Analyze(ctx context.Context, prompt, imagePath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, AnalyzeCall{Prompt: prompt, ImagePath: imagePath})
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// Available implements Client.Available.
func (m *MockClient) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// CallCount returns the number of times Analyze was called.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
