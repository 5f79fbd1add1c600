package ai

import (
	"context"
	"fmt"
	"time"
)

// Provider is the interface that all AI backends must implement.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string // "gemini" or "openai"
}

// Config holds the connection settings for a provider. Zero values fall
// back to each provider's defaults.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ChatRequest is a provider-agnostic request.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONMode    bool // request JSON-formatted output
}

// ChatResponse is a provider-agnostic response.
type ChatResponse struct {
	Content    string
	TokensUsed int
	Model      string // e.g. "gemini-2.5-flash" or "llama3.1"
	Provider   string
}

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// NewProvider builds the named provider.
func NewProvider(name string, cfg Config) (Provider, error) {
	switch name {
	case "gemini", "":
		return NewGeminiProvider(cfg), nil
	case "openai":
		return NewOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", name)
	}
}
