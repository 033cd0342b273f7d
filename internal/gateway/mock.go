package gateway

import (
	"context"
	"sync"
)

// MockCall records one Chat invocation against a Mock gateway.
type MockCall struct {
	ModelID  string
	Messages []Message
}

// Mock is a scriptable gateway for tests and for running without a
// provider configured. Responses are matched per model ID; the Default
// response answers anything unscripted.
type Mock struct {
	mu sync.Mutex

	// Responses maps model ID to the reply it returns.
	Responses map[string]string
	// Errors maps model ID to an error it fails with.
	Errors map[string]error
	// ReplyFn, when set, takes precedence over Responses.
	ReplyFn func(modelID string, messages []Message) (string, error)
	// Default is returned for model IDs missing from Responses.
	Default string

	calls []MockCall
}

// Chat returns the scripted response for the model.
func (m *Mock) Chat(ctx context.Context, modelID string, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{ModelID: modelID, Messages: messages})
	m.mu.Unlock()

	if m.ReplyFn != nil {
		return m.ReplyFn(modelID, messages)
	}
	if err, ok := m.Errors[modelID]; ok {
		return "", err
	}
	if resp, ok := m.Responses[modelID]; ok {
		return resp, nil
	}
	return m.Default, nil
}

// Calls returns a copy of every recorded invocation.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns how many calls were made to the given model.
func (m *Mock) CallsTo(modelID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.ModelID == modelID {
			n++
		}
	}
	return n
}
