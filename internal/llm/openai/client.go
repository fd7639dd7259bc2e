// Package openai adapts github.com/openai/openai-go/v2 to the llm.Provider
// contract. Grounded on the teacher's internal/llm/openai/client.go request
// shaping and SSE accumulation idiom, trimmed of tool-calling, Gemini raw-
// HTTP fallbacks, and self-hosted tokenizer probing — none of which this
// client's plain multimodal chat contract needs.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"chronicle/internal/llm"
	"chronicle/internal/model"
	"chronicle/internal/observability"
)

// Client implements llm.Provider against the OpenAI Chat Completions API.
type Client struct {
	sdk sdk.Client
}

// New builds a Client from one active LLMModel row.
func New(m model.LLMModel, httpClient *http.Client) llm.Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(m.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(m.APIURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &Client{sdk: sdk.NewClient(opts...)}
}

func adaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		default: // "user"
			if len(m.Images) == 0 {
				out = append(out, sdk.UserMessage(m.Content))
				continue
			}
			parts := make([]sdk.ChatCompletionContentPartUnionParam, 0, len(m.Images)+1)
			if strings.TrimSpace(m.Content) != "" {
				parts = append(parts, sdk.TextContentPart(m.Content))
			}
			for _, img := range m.Images {
				url := fmt.Sprintf("data:%s;base64,%s", img.MimeType, img.Base64Data)
				parts = append(parts, sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{URL: url}))
			}
			out = append(out, sdk.UserMessage(parts))
		}
	}
	return out
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
	e.Str("model", model).RawJSON("request", observability.RedactJSON(raw)).Msg("openai_chat_request")
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
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: adaptMessages(msgs),
	}
	log := observability.LoggerWithTrace(ctx)
	logRequestPayload(log, model, msgs)
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Response{}, classifyError(err)
	}
	var content string
	if len(comp.Choices) > 0 {
		content = comp.Choices[0].Message.Content
	}
	log.Debug().Str("model", model).Int("prompt_tokens", int(comp.Usage.PromptTokens)).
		Int("completion_tokens", int(comp.Usage.CompletionTokens)).Msg("openai_chat_completion_ok")
	return llm.Response{
		Content: content,
		Usage: llm.Usage{
			PromptTokens:     int(comp.Usage.PromptTokens),
			CompletionTokens: int(comp.Usage.CompletionTokens),
			TotalTokens:      int(comp.Usage.TotalTokens),
		},
	}, nil
}

// ChatCompletionStream implements llm.Provider, terminating on the stream's
// own end-of-data ([DONE], surfaced by the SDK as stream.Next() returning
// false) or a populated finish_reason on the final chunk.
func (c *Client) ChatCompletionStream(ctx context.Context, modelName string, msgs []llm.Message, h llm.StreamHandler) (llm.Usage, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(modelName),
		Messages: adaptMessages(msgs),
	}
	params.StreamOptions.IncludeUsage = sdk.Bool(true)
	logRequestPayload(observability.LoggerWithTrace(ctx), modelName, msgs)

	stream := c.sdk.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	var usage llm.Usage
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			if chunk.JSON.Usage.Valid() {
				usage = llm.Usage{
					PromptTokens:     int(chunk.Usage.PromptTokens),
					CompletionTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:      int(chunk.Usage.TotalTokens),
				}
			}
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			h.OnDelta(delta.Content)
		}
		// finish_reason marks the terminal chunk for this choice; the SDK's
		// stream.Next() will still return false once the server sends its
		// closing [DONE] line, which is the actual stop condition.
		_ = chunk.Choices[0].FinishReason
	}
	if err := stream.Err(); err != nil {
		return llm.Usage{}, classifyError(err)
	}
	return usage, nil
}

func classifyError(err error) error {
	var apiErr *sdk.Error
	if ok := asAPIError(err, &apiErr); ok {
		return &llm.StatusError{StatusCode: apiErr.StatusCode, Err: err}
	}
	return err
}

func asAPIError(err error, target **sdk.Error) bool {
	for e := err; e != nil; e = unwrap(e) {
		if ae, ok := e.(*sdk.Error); ok {
			*target = ae
			return true
		}
	}
	return false
}

func unwrap(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}
