// Package llm defines the provider-agnostic chat contract consumed by the
// Pipeline (C8). Concrete backends live in llm/openai and llm/anthropic;
// callers never see SDK types. Adapted from the teacher's
// internal/llm/provider.go shape, trimmed of tool-calling and
// thought-signature fields that have no counterpart in this client's
// plain-chat contract.
package llm

import "context"

// ImagePart is one inline image attached to a user message.
type ImagePart struct {
	MimeType   string
	Base64Data string
}

// Message is one turn in a chat request. Only Images on "user" messages are
// meaningful; other roles ignore it.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
	Images  []ImagePart
}

// Usage reports token accounting for one completed request.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the result of a non-streaming chat_completion call.
type Response struct {
	Content string
	Usage   Usage
}

// StreamHandler receives incremental output from chat_completion_stream.
// OnDelta is called once per content fragment as it arrives.
type StreamHandler interface {
	OnDelta(content string)
}

// Provider is the contract a backend (openai, anthropic) must satisfy.
// model is the active LLMModel row's Model field (the provider's own model
// identifier, e.g. "gpt-4o" or "claude-sonnet-4-5").
type Provider interface {
	ChatCompletion(ctx context.Context, model string, msgs []Message) (Response, error)
	ChatCompletionStream(ctx context.Context, model string, msgs []Message, h StreamHandler) (Usage, error)
}
