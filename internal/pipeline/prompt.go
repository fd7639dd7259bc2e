package pipeline

import "chronicle/internal/llm"

// extractionSystemPromptEN/ZH instruct the model to return the exact JSON
// shape parseExtraction expects. Grounded on
// original_source/backend/processing/summarizer_extensions.py's prompt
// construction, which also asks for a strict JSON object with the three
// arrays and forbids explanatory text around it.
const extractionSystemPromptEN = `You are reviewing a short sequence of screenshots from one user's computer, ` +
	`taken a few seconds apart, plus a note on their recent keyboard/mouse activity. ` +
	`Identify what the user was doing and respond with a single JSON object and nothing else, shaped as: ` +
	`{"events":[{"title":"","description":"","keywords":[]}],"knowledge":[{"title":"","description":"","keywords":[]}],"todos":[{"title":"","description":"","keywords":[]}]}. ` +
	`"events" describes what happened; "knowledge" captures standalone facts worth remembering; "todos" captures actionable items mentioned. ` +
	`Omit arrays that have nothing to report by leaving them empty, but always include all three keys.`

const extractionSystemPromptZH = `你正在查看用户电脑上几张间隔数秒的截图，以及一段关于其近期键鼠活动的提示。` +
	`请判断用户正在做什么，仅返回一个 JSON 对象，不要包含其他文字，格式为：` +
	`{"events":[{"title":"","description":"","keywords":[]}],"knowledge":[{"title":"","description":"","keywords":[]}],"todos":[{"title":"","description":"","keywords":[]}]}。` +
	`"events" 描述发生的事情；"knowledge" 记录值得保留的独立知识点；"todos" 记录提到的可执行事项。` +
	`没有内容的数组留空，但三个键都必须保留。`

// inputUsageHint renders the keyboard/mouse activity hint spec §4.8 step 2b
// prepends to the extraction prompt. Grounded on pipeline_new.py's
// _build_input_usage_hint, which produces the same two-clause sentence in
// either language.
func inputUsageHint(language string, hadKeyboard, hadMouse bool) string {
	if language == "zh" {
		kb := "用户没有在使用键盘"
		if hadKeyboard {
			kb = "用户有在使用键盘"
		}
		ms := "用户没有在使用鼠标"
		if hadMouse {
			ms = "用户有在使用鼠标"
		}
		return kb + "；" + ms
	}
	kb := "User has no keyboard activity"
	if hadKeyboard {
		kb = "User has keyboard activity"
	}
	ms := "User has no mouse activity"
	if hadMouse {
		ms = "User has mouse activity"
	}
	return kb + "; " + ms
}

// buildMessages assembles the multimodal extraction request: a system
// message carrying the JSON-shape instruction, and a user message carrying
// the input-usage hint followed by the accepted frames in timestamp order.
func buildMessages(language, hint string, images []llm.ImagePart) []llm.Message {
	system := extractionSystemPromptEN
	if language == "zh" {
		system = extractionSystemPromptZH
	}
	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: hint, Images: images},
	}
}
