package pipeline

import (
	"testing"

	"chronicle/internal/llm"
	"github.com/stretchr/testify/require"
)

func TestInputUsageHintEnglish(t *testing.T) {
	require.Equal(t, "User has keyboard activity; User has no mouse activity", inputUsageHint("en", true, false))
	require.Equal(t, "User has no keyboard activity; User has mouse activity", inputUsageHint("en", false, true))
}

func TestInputUsageHintChinese(t *testing.T) {
	require.Equal(t, "用户有在使用键盘；用户没有在使用鼠标", inputUsageHint("zh", true, false))
}

func TestBuildMessagesSelectsLanguage(t *testing.T) {
	msgs := buildMessages("zh", "hint", nil)
	require.Len(t, msgs, 2)
	require.Equal(t, "system", msgs[0].Role)
	require.Contains(t, msgs[0].Content, "JSON")
	require.Equal(t, "user", msgs[1].Role)
	require.Equal(t, "hint", msgs[1].Content)
}

func TestBuildMessagesCarriesImages(t *testing.T) {
	imgs := []llm.ImagePart{{MimeType: "image/jpeg", Base64Data: "abc"}}
	msgs := buildMessages("en", "hint", imgs)
	require.Equal(t, imgs, msgs[1].Images)
}
