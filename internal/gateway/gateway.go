// Package gateway abstracts the chat-completion capability the engine
// depends on. The orchestration core never touches a provider SDK directly.
package gateway

import (
	"context"
	"time"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Gateway is the single point of I/O the orchestration core depends on.
type Gateway interface {
	// Chat sends the messages to the named model and returns its text reply.
	Chat(ctx context.Context, modelID string, messages []Message) (string, error)
}

// Tokens optionally reports token usage of the most relevant call. Gateways
// that cannot report usage simply don't implement it.
type Tokens interface {
	LastTokens() int64
}

// timeoutGateway bounds every call with a per-request deadline.
type timeoutGateway struct {
	inner   Gateway
	timeout time.Duration
}

// WithTimeout wraps a gateway so every Chat call is bounded by d. A timeout
// surfaces as the context error and is treated as a stage failure by the
// pipeline. d <= 0 returns the gateway unchanged.
func WithTimeout(gw Gateway, d time.Duration) Gateway {
	if d <= 0 {
		return gw
	}
	return &timeoutGateway{inner: gw, timeout: d}
}

func (g *timeoutGateway) Chat(ctx context.Context, modelID string, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.inner.Chat(ctx, modelID, messages)
}
