package aggregation

import (
	"context"
	"fmt"
	"time"

	"chronicle/internal/model"

	"github.com/google/uuid"
)

// runActivitySummary reads events not referenced by any non-deleted
// Activity and, if at least one exists, asks the LLM to group them into
// activities. Grounded on pipeline_new.py's _summarize_activities.
func (sch *Scheduler) runActivitySummary(ctx context.Context) error {
	events, err := sch.store.ListUnsummarizedEvents()
	if err != nil {
		return fmt.Errorf("aggregation: list unsummarized events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	byID := make(map[string]model.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	resp, err := sch.llmc.ChatCompletion(ctx, buildActivityMessages(sch.opts.Language, events))
	if err != nil {
		return fmt.Errorf("aggregation: summarize activities: %w", err)
	}

	candidates, ok := parseActivities(resp.Content)
	if !ok {
		return fmt.Errorf("aggregation: could not parse activity summary response")
	}

	for _, c := range candidates {
		sourceIDs, start, end, found := resolveEventSpan(c.EventIDs, byID)
		if !found {
			continue // none of the referenced event ids are in this batch
		}
		if err := sch.store.CreateActivity(model.Activity{
			ID:            uuid.NewString(),
			Title:         c.Title,
			Description:   c.Description,
			StartTime:     start,
			EndTime:       end,
			SourceEventID: sourceIDs,
		}); err != nil {
			return fmt.Errorf("aggregation: create activity: %w", err)
		}
	}
	return nil
}

// resolveEventSpan keeps only the ids the scheduler actually fetched (the
// LLM should only ever echo ids it was given, but trusting that without
// checking would let a hallucinated id corrupt source_event_ids), and
// returns the timestamp span those events cover.
func resolveEventSpan(ids []string, byID map[string]model.Event) (kept []string, start, end time.Time, ok bool) {
	first := true
	for _, id := range ids {
		e, known := byID[id]
		if !known {
			continue
		}
		kept = append(kept, id)
		if first || e.Timestamp.Before(start) {
			start = e.Timestamp
		}
		if first || e.Timestamp.After(end) {
			end = e.Timestamp
		}
		first = false
	}
	if len(kept) == 0 {
		return nil, time.Time{}, time.Time{}, false
	}
	return kept, start, end, true
}
