package aggregation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chronicle/internal/model"

	"github.com/google/uuid"
)

// ErrNoActivity is returned by GenerateDiary when no Activity's start_time
// falls within the requested UTC day.
var ErrNoActivity = fmt.Errorf("aggregation: no activities for that date")

// GenerateDiary fetches the Activities whose start_time falls in the UTC day
// named by date (YYYY-MM-DD), asks the LLM for a narrative summary, and
// persists one Diary row for that date, replacing any prior one. Grounded on
// spec's "Diary generation is on-demand ... given a date, fetch Activities
// whose start_time falls in the UTC day; if none, return 'no data';
// otherwise call the LLM with a diary prompt and persist one Diary row."
func (sch *Scheduler) GenerateDiary(ctx context.Context, date string) (model.Diary, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return model.Diary{}, fmt.Errorf("aggregation: invalid date %q: %w", date, err)
	}
	start := day.UTC()
	end := start.Add(24 * time.Hour)

	activities, err := sch.store.ListActivities(start, end, 0)
	if err != nil {
		return model.Diary{}, fmt.Errorf("aggregation: list activities for %s: %w", date, err)
	}
	if len(activities) == 0 {
		return model.Diary{}, ErrNoActivity
	}

	resp, err := sch.llmc.ChatCompletion(ctx, buildDiaryMessages(sch.opts.Language, activities))
	if err != nil {
		return model.Diary{}, fmt.Errorf("aggregation: generate diary: %w", err)
	}
	content := strings.TrimSpace(resp.Content)

	ids := make([]string, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}

	d := model.Diary{
		ID:               uuid.NewString(),
		Date:             date,
		Content:          content,
		SourceActivityID: ids,
	}
	if err := sch.store.UpsertDiary(d); err != nil {
		return model.Diary{}, fmt.Errorf("aggregation: upsert diary: %w", err)
	}
	return d, nil
}
