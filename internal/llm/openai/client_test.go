package openai

import (
	"testing"

	"chronicle/internal/llm"
	sdk "github.com/openai/openai-go/v2"
	"github.com/stretchr/testify/require"
)

func TestAdaptMessagesTextOnlyUserMessage(t *testing.T) {
	out := adaptMessages([]llm.Message{{Role: "user", Content: "hello"}})
	require.Len(t, out, 1)
}

func TestAdaptMessagesIncludesSystemAndAssistant(t *testing.T) {
	out := adaptMessages([]llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	require.Len(t, out, 3)
}

func TestAdaptMessagesBuildsImageDataURL(t *testing.T) {
	out := adaptMessages([]llm.Message{{
		Role:    "user",
		Content: "what is this",
		Images:  []llm.ImagePart{{MimeType: "image/png", Base64Data: "Zm9v"}},
	}})
	require.Len(t, out, 1)
	_ = sdk.ChatModel("gpt-4o") // sanity: sdk types are reachable from this package
}
