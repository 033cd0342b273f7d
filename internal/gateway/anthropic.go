package gateway

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic implements Gateway against the Anthropic Messages API.
type Anthropic struct {
	client     anthropic.Client
	lastTokens atomic.Int64
}

// NewAnthropic creates the production gateway. apiKey falls back to the
// ANTHROPIC_API_KEY environment variable.
func NewAnthropic(apiKey string) (*Anthropic, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}
	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Chat sends the conversation to the model and returns the concatenated
// text blocks of the reply.
func (a *Anthropic) Chat(ctx context.Context, modelID string, messages []Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 4096,
	}

	for _, m := range messages {
		switch m.Role {
		case "system":
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic chat: %w", err)
	}

	a.lastTokens.Store(resp.Usage.InputTokens + resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	return text, nil
}

// LastTokens reports the token usage of the most recent call.
func (a *Anthropic) LastTokens() int64 {
	return a.lastTokens.Load()
}
