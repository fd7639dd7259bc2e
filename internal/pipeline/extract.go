package pipeline

import (
	"strings"

	"github.com/tidwall/gjson"
)

// extractedItem is the common {title, description, keywords[]} shape spec
// §4.8 step 2c requires of every events/knowledge/todos element.
type extractedItem struct {
	Title       string
	Description string
	Keywords    []string
}

// extraction is the parsed form of the LLM's JSON response.
type extraction struct {
	Events    []extractedItem
	Knowledge []extractedItem
	Todos     []extractedItem
}

// parseExtraction parses the LLM's response content into an extraction,
// tolerating a markdown code fence around the JSON object (chat models
// routinely wrap JSON in ```json ... ``` even when instructed not to).
// ok is false when the content is not a valid JSON object, matching spec
// §4.8's "if parsing fails ... degrade" branch.
func parseExtraction(content string) (extraction, bool) {
	body := stripCodeFence(content)
	if !gjson.Valid(body) {
		return extraction{}, false
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return extraction{}, false
	}

	return extraction{
		Events:    parseItems(root.Get("events")),
		Knowledge: parseItems(root.Get("knowledge")),
		Todos:     parseItems(root.Get("todos")),
	}, true
}

func parseItems(arr gjson.Result) []extractedItem {
	if !arr.IsArray() {
		return nil
	}
	var out []extractedItem
	for _, el := range arr.Array() {
		title := el.Get("title").String()
		if title == "" {
			continue // an element with no title is not a usable extraction item
		}
		var keywords []string
		for _, k := range el.Get("keywords").Array() {
			keywords = append(keywords, k.String())
		}
		out = append(out, extractedItem{
			Title:       title,
			Description: el.Get("description").String(),
			Keywords:    keywords,
		})
	}
	return out
}

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ``` fence,
// if present, and trims whitespace. Content without a fence passes through
// unchanged.
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		first := strings.TrimSpace(s[:nl])
		if first == "" || strings.EqualFold(first, "json") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
