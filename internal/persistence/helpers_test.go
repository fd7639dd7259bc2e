package persistence

import (
	"time"

	"chronicle/internal/model"
)

func sampleEvent(id string) model.Event {
	return model.Event{
		ID:          id,
		Title:       "Reviewed pull request",
		Description: "Looked over the diff and left comments",
		Keywords:    []string{"review", "github"},
		Timestamp:   time.Now().UTC(),
	}
}

func sampleActivity(id string) model.Activity {
	now := time.Now().UTC()
	return model.Activity{
		ID:            id,
		Title:         "Code review session",
		Description:   "Reviewed three pull requests",
		StartTime:     now.Add(-30 * time.Minute),
		EndTime:       now,
		SourceEventID: []string{"evt-1", "evt-2"},
	}
}

func sampleKnowledge(id string) model.Knowledge {
	return model.Knowledge{
		ID:          id,
		Title:       "Project uses Go 1.24",
		Description: "go.mod declares go 1.24.5",
		Keywords:    []string{"go", "version"},
	}
}

func sampleTodo(id string) model.Todo {
	return model.Todo{
		ID:          id,
		Title:       "Follow up on review comments",
		Description: "Address reviewer feedback on the PR",
		Keywords:    []string{"followup"},
	}
}

func sampleModel(id, name string) model.LLMModel {
	return model.LLMModel{
		ID:               id,
		Name:             name,
		Provider:         "openai",
		APIURL:           "https://api.openai.com/v1",
		Model:            "gpt-4o",
		APIKey:           "sk-test",
		InputTokenPrice:  2.5,
		OutputTokenPrice: 10,
		Currency:         "USD",
	}
}
