// Package llm abstracts the chat providers used to produce optional
// natural-language reviews of backtest results. The pipeline itself
// never depends on this; it is a post-run convenience.
package llm

import "context"

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

const reviewSystemPrompt = `You are a quantitative trading analyst. Review the backtest
summary you are given. Comment on the return profile, risk, and anything that looks
suspicious (e.g. implausibly high Sharpe, short sample). Be concise.`

// Review asks the provider for a short commentary on a backtest summary.
func Review(ctx context.Context, p Provider, summary string) (string, error) {
	resp, err := p.Chat(ctx, ChatRequest{
		SystemPrompt: reviewSystemPrompt,
		Messages:     []Message{{Role: "user", Content: summary}},
		MaxTokens:    512,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
