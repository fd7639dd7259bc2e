package aggregation

import (
	"strings"

	"github.com/tidwall/gjson"
)

// activityCandidate is one parsed element of an activity-summary response.
type activityCandidate struct {
	Title       string
	Description string
	EventIDs    []string
}

// parseActivities parses an activity-summary response into candidates. ok is
// false when the content is not a valid JSON object carrying an "activities"
// array.
func parseActivities(content string) ([]activityCandidate, bool) {
	body := stripCodeFence(content)
	if !gjson.Valid(body) {
		return nil, false
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return nil, false
	}
	arr := root.Get("activities")
	if !arr.IsArray() {
		return nil, false
	}

	var out []activityCandidate
	for _, el := range arr.Array() {
		title := el.Get("title").String()
		if title == "" {
			continue
		}
		var ids []string
		for _, id := range el.Get("event_ids").Array() {
			ids = append(ids, id.String())
		}
		out = append(out, activityCandidate{
			Title:       title,
			Description: el.Get("description").String(),
			EventIDs:    ids,
		})
	}
	return out, true
}

// mergeCandidate is one parsed element of a knowledge/todo merge response.
type mergeCandidate struct {
	Title       string
	Description string
	Keywords    []string
	SourceIDs   []string
}

// parseMerges parses a merge response into candidates. ok is false when the
// content is not a valid JSON object carrying a "merges" array.
func parseMerges(content string) ([]mergeCandidate, bool) {
	body := stripCodeFence(content)
	if !gjson.Valid(body) {
		return nil, false
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return nil, false
	}
	arr := root.Get("merges")
	if !arr.IsArray() {
		return nil, false
	}

	var out []mergeCandidate
	for _, el := range arr.Array() {
		title := el.Get("title").String()
		if title == "" {
			continue
		}
		var keywords []string
		for _, k := range el.Get("keywords").Array() {
			keywords = append(keywords, k.String())
		}
		var sourceIDs []string
		for _, id := range el.Get("source_ids").Array() {
			sourceIDs = append(sourceIDs, id.String())
		}
		out = append(out, mergeCandidate{
			Title:       title,
			Description: el.Get("description").String(),
			Keywords:    keywords,
			SourceIDs:   sourceIDs,
		})
	}
	return out, true
}

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ``` fence,
// if present, and trims whitespace. Mirrors internal/pipeline's helper of the
// same name; duplicated rather than shared because the two packages' only
// other coupling would be this one function.
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
