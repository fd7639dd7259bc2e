package anthropic

import (
	"testing"

	"chronicle/internal/llm"
	"github.com/stretchr/testify/require"
)

func TestAdaptMessagesSeparatesSystemFromConversation(t *testing.T) {
	sys, msgs, err := adaptMessages([]llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	require.NoError(t, err)
	require.Len(t, sys, 1)
	require.Len(t, msgs, 2)
}

func TestAdaptMessagesDropsEmptyUserMessage(t *testing.T) {
	_, msgs, err := adaptMessages([]llm.Message{{Role: "user", Content: ""}})
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestAdaptMessagesIncludesImageBlocks(t *testing.T) {
	_, msgs, err := adaptMessages([]llm.Message{{
		Role:    "user",
		Content: "describe this",
		Images:  []llm.ImagePart{{MimeType: "image/jpeg", Base64Data: "Zm9v"}},
	}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}
