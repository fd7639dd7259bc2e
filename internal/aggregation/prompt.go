package aggregation

import (
	"strconv"
	"strings"

	"chronicle/internal/llm"
	"chronicle/internal/model"
)

// Grounded on summarizer_extensions.py's aggregate_events_to_activities and
// merge_knowledge/merge_todos prompt construction: a strict JSON-only
// response carrying the candidate objects and the ids of the rows each one
// subsumes, so this package never has to trust free text back into the
// source-id columns.
const activitySystemPromptEN = `You group a list of recorded events into coherent activities. ` +
	`Each event has an id, a title, a description and a timestamp. ` +
	`Respond with a single JSON object and nothing else, shaped as: ` +
	`{"activities":[{"title":"","description":"","event_ids":[]}]}. ` +
	`Every event id must appear in exactly one activity's "event_ids"; group temporally adjacent, topically related events together.`

const activitySystemPromptZH = `你需要把一组记录的事件归类为连贯的活动。` +
	`每个事件都有 id、标题、描述和时间戳。` +
	`仅返回一个 JSON 对象，不要包含其他文字，格式为：` +
	`{"activities":[{"title":"","description":"","event_ids":[]}]}。` +
	`每个事件 id 必须恰好出现在一个活动的 "event_ids" 中；请将时间相近、主题相关的事件归为一组。`

const mergeSystemPromptEN = `You merge related %s entries into combined entries. ` +
	`Each entry has an id, a title and a description. ` +
	`Respond with a single JSON object and nothing else, shaped as: ` +
	`{"merges":[{"title":"","description":"","keywords":[],"source_ids":[]}]}. ` +
	`Only group entries that are genuinely about the same topic; an entry with nothing to merge with may be omitted entirely.`

const mergeSystemPromptZH = `你需要把相关的%s条目合并为组合条目。` +
	`每个条目都有 id、标题和描述。` +
	`仅返回一个 JSON 对象，不要包含其他文字，格式为：` +
	`{"merges":[{"title":"","description":"","keywords":[],"source_ids":[]}]}。` +
	`只合并确实属于同一主题的条目；没有可合并对象的条目可以完全不出现在结果中。`

const diarySystemPromptEN = `You write a short first-person diary entry summarizing one day's activities. ` +
	`Each activity has a title, a description and a time range. ` +
	`Respond with plain prose only, no JSON, no headings.`

const diarySystemPromptZH = `你需要为一天的活动写一段简短的第一人称日记。` +
	`每个活动都有标题、描述和时间范围。` +
	`只返回一段纯文字，不要使用 JSON 或标题。`

func buildActivityMessages(language string, events []model.Event) []llm.Message {
	system := activitySystemPromptEN
	if language == "zh" {
		system = activitySystemPromptZH
	}
	var b strings.Builder
	for _, e := range events {
		b.WriteString("- id=")
		b.WriteString(e.ID)
		b.WriteString(" time=")
		b.WriteString(e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
		b.WriteString(" title=")
		b.WriteString(e.Title)
		b.WriteString(" description=")
		b.WriteString(e.Description)
		b.WriteString("\n")
	}
	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	}
}

func buildMergeMessages(language, kindLabel string, entries []mergeSourceEntry) []llm.Message {
	template := mergeSystemPromptEN
	if language == "zh" {
		template = mergeSystemPromptZH
	}
	system := strings.Replace(template, "%s", kindLabel, 1)
	var b strings.Builder
	for _, e := range entries {
		b.WriteString("- id=")
		b.WriteString(e.ID)
		b.WriteString(" title=")
		b.WriteString(e.Title)
		b.WriteString(" description=")
		b.WriteString(e.Description)
		b.WriteString("\n")
	}
	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	}
}

func buildDiaryMessages(language string, activities []model.Activity) []llm.Message {
	system := diarySystemPromptEN
	if language == "zh" {
		system = diarySystemPromptZH
	}
	var b strings.Builder
	for i, a := range activities {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". [")
		b.WriteString(a.StartTime.UTC().Format("15:04"))
		b.WriteString("-")
		b.WriteString(a.EndTime.UTC().Format("15:04"))
		b.WriteString("] ")
		b.WriteString(a.Title)
		b.WriteString(": ")
		b.WriteString(a.Description)
		b.WriteString("\n")
	}
	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	}
}

// mergeSourceEntry is the common {id, title, description} shape both
// Knowledge and Todo rows project into for the merge prompt.
type mergeSourceEntry struct {
	ID          string
	Title       string
	Description string
}
