// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to the
// llm.Provider contract. Grounded on the teacher's
// internal/llm/anthropic/client.go message-shaping and streaming-accumulator
// idiom, trimmed of tool-calling, extended-thinking, and prompt-cache
// control blocks that have no counterpart in this client's plain multimodal
// chat contract.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"chronicle/internal/llm"
	"chronicle/internal/model"
	"chronicle/internal/observability"
)

const defaultMaxTokens int64 = 4096

// Client implements llm.Provider against the Anthropic Messages API.
type Client struct {
	sdk anthropic.Client
}

// New builds a Client from one active LLMModel row. The SDK sets the
// x-api-key and anthropic-version headers internally from WithAPIKey.
func New(m model.LLMModel, httpClient *http.Client) llm.Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(m.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(m.APIURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	return &Client{sdk: anthropic.NewClient(opts...)}
}

func adaptMessages(msgs []llm.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam, error) {
	var system []anthropic.TextBlockParam
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			if strings.TrimSpace(m.Content) != "" {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case "assistant":
			if strings.TrimSpace(m.Content) != "" {
				out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			}
		default: // "user"
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Images)+1)
			for _, img := range m.Images {
				blocks = append(blocks, anthropic.NewImageBlockBase64(img.MimeType, img.Base64Data))
			}
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		}
	}
	return system, out, nil
}

// logRequestPayload writes the outgoing message payload at debug level with
// image bytes stripped and any stray secret-shaped fields in message content
// redacted via observability.RedactJSON before it ever reaches the log sink.
func logRequestPayload(log *zerolog.Logger, model string, msgs []llm.Message) {
	e := log.Debug()
	if !e.Enabled() {
		return
	}
	raw, err := json.Marshal(redactedMessagesForLog(msgs))
	if err != nil {
		return
	}
	e.Str("model", model).RawJSON("request", observability.RedactJSON(raw)).Msg("anthropic_chat_request")
}

func redactedMessagesForLog(msgs []llm.Message) []map[string]any {
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, map[string]any{
			"role":        m.Role,
			"content":     m.Content,
			"image_count": len(m.Images),
		})
	}
	return out
}

// ChatCompletion implements llm.Provider.
func (c *Client) ChatCompletion(ctx context.Context, model string, msgs []llm.Message) (llm.Response, error) {
	sys, converted, err := adaptMessages(msgs)
	if err != nil {
		return llm.Response{}, err
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  converted,
		System:    sys,
		MaxTokens: defaultMaxTokens,
	}
	log := observability.LoggerWithTrace(ctx)
	logRequestPayload(log, model, msgs)
	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, classifyError(err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	usage := llm.Usage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	log.Debug().Str("model", model).Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).Msg("anthropic_chat_completion_ok")
	return llm.Response{Content: sb.String(), Usage: usage}, nil
}

// ChatCompletionStream implements llm.Provider, terminating when the SDK's
// server-sent-event reader reaches its own end-of-stream (Anthropic signals
// this via a message_stop event; the SDK surfaces it as stream.Next()
// returning false).
func (c *Client) ChatCompletionStream(ctx context.Context, model string, msgs []llm.Message, h llm.StreamHandler) (llm.Usage, error) {
	sys, converted, err := adaptMessages(msgs)
	if err != nil {
		return llm.Usage{}, err
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  converted,
		System:    sys,
		MaxTokens: defaultMaxTokens,
	}
	logRequestPayload(observability.LoggerWithTrace(ctx), model, msgs)

	stream := c.sdk.Messages.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	var inputTokens, outputTokens int64
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if td, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && td.Text != "" {
				h.OnDelta(td.Text)
			}
		case anthropic.MessageStartEvent:
			inputTokens = ev.Message.Usage.InputTokens
		case anthropic.MessageDeltaEvent:
			outputTokens = ev.Usage.OutputTokens
		}
	}
	if err := stream.Err(); err != nil {
		return llm.Usage{}, classifyError(err)
	}
	return llm.Usage{
		PromptTokens:     int(inputTokens),
		CompletionTokens: int(outputTokens),
		TotalTokens:      int(inputTokens + outputTokens),
	}, nil
}

func classifyError(err error) error {
	var apiErr *anthropic.Error
	for e := err; e != nil; e = unwrap(e) {
		if ae, ok := e.(*anthropic.Error); ok {
			apiErr = ae
			break
		}
	}
	if apiErr != nil {
		return &llm.StatusError{StatusCode: apiErr.StatusCode, Err: err}
	}
	return err
}

func unwrap(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}
