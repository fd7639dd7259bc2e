package aggregation

import (
	"context"
	"fmt"

	"chronicle/internal/model"

	"github.com/google/uuid"
)

// runKnowledgeMerge reads knowledge not yet subsumed by any non-deleted
// CombinedKnowledge and, when at least two exist, asks the LLM which ones
// belong together. Grounded on pipeline_new.py's _merge_knowledge, including
// its "fewer than two, skip" guard.
func (sch *Scheduler) runKnowledgeMerge(ctx context.Context) error {
	items, err := sch.store.ListUnmergedKnowledge()
	if err != nil {
		return fmt.Errorf("aggregation: list unmerged knowledge: %w", err)
	}
	if len(items) < 2 {
		return nil
	}

	byID := make(map[string]model.Knowledge, len(items))
	entries := make([]mergeSourceEntry, 0, len(items))
	for _, k := range items {
		byID[k.ID] = k
		entries = append(entries, mergeSourceEntry{ID: k.ID, Title: k.Title, Description: k.Description})
	}

	resp, err := sch.llmc.ChatCompletion(ctx, buildMergeMessages(sch.opts.Language, "knowledge", entries))
	if err != nil {
		return fmt.Errorf("aggregation: merge knowledge: %w", err)
	}
	candidates, ok := parseMerges(resp.Content)
	if !ok {
		return fmt.Errorf("aggregation: could not parse knowledge merge response")
	}

	for _, c := range candidates {
		sourceIDs := filterKnownIDs(c.SourceIDs, byID)
		if len(sourceIDs) < 2 {
			continue // a merge needs at least two real sources
		}
		if err := sch.store.CreateCombinedKnowledge(model.CombinedKnowledge{
			ID:            uuid.NewString(),
			Title:         c.Title,
			Description:   c.Description,
			Keywords:      c.Keywords,
			MergedFromIDs: sourceIDs,
		}); err != nil {
			return fmt.Errorf("aggregation: create combined knowledge: %w", err)
		}
	}
	return nil
}

// runTodoMerge is symmetric to runKnowledgeMerge, additionally computing the
// combined row's Completed flag itself rather than trusting the LLM with it:
// a combined todo is complete only once every todo it subsumes is.
func (sch *Scheduler) runTodoMerge(ctx context.Context) error {
	items, err := sch.store.ListUnmergedTodos()
	if err != nil {
		return fmt.Errorf("aggregation: list unmerged todos: %w", err)
	}
	if len(items) < 2 {
		return nil
	}

	byID := make(map[string]model.Todo, len(items))
	entries := make([]mergeSourceEntry, 0, len(items))
	for _, td := range items {
		byID[td.ID] = td
		entries = append(entries, mergeSourceEntry{ID: td.ID, Title: td.Title, Description: td.Description})
	}

	resp, err := sch.llmc.ChatCompletion(ctx, buildMergeMessages(sch.opts.Language, "todo", entries))
	if err != nil {
		return fmt.Errorf("aggregation: merge todos: %w", err)
	}
	candidates, ok := parseMerges(resp.Content)
	if !ok {
		return fmt.Errorf("aggregation: could not parse todo merge response")
	}

	for _, c := range candidates {
		sourceIDs := filterKnownIDs(c.SourceIDs, byID)
		if len(sourceIDs) < 2 {
			continue
		}
		completed := true
		for _, id := range sourceIDs {
			if !byID[id].Completed {
				completed = false
				break
			}
		}
		if err := sch.store.CreateCombinedTodo(model.CombinedTodo{
			ID:            uuid.NewString(),
			Title:         c.Title,
			Description:   c.Description,
			Keywords:      c.Keywords,
			MergedFromIDs: sourceIDs,
			Completed:     completed,
		}); err != nil {
			return fmt.Errorf("aggregation: create combined todo: %w", err)
		}
	}
	return nil
}

// filterKnownIDs drops any id not present in by, guarding against the LLM
// echoing an id it was never given.
func filterKnownIDs[T any](ids []string, by map[string]T) []string {
	var out []string
	for _, id := range ids {
		if _, ok := by[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
