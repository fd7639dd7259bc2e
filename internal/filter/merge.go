package filter

import "chronicle/internal/model"

// mergeConsecutive implements spec §4.4 step 5: consecutive same-kind
// records are merged when the kind-specific adjacency rule holds. Grounded
// on filter_rules.py's merge_consecutive_events/_can_merge_events.
func mergeConsecutive(records []model.RawRecord) []model.RawRecord {
	if len(records) == 0 {
		return nil
	}
	out := make([]model.RawRecord, 0, len(records))
	group := []model.RawRecord{records[0]}

	flush := func() {
		out = append(out, mergeGroup(group))
	}

	for i := 1; i < len(records); i++ {
		prev := records[i-1]
		cur := records[i]
		if canMerge(prev, cur) {
			group = append(group, cur)
			continue
		}
		flush()
		group = []model.RawRecord{cur}
	}
	flush()
	return out
}

func canMerge(prev, cur model.RawRecord) bool {
	if prev.Kind != cur.Kind {
		return false
	}
	diff := cur.Timestamp.Sub(prev.Timestamp)

	switch prev.Kind {
	case model.KindKeyboard:
		if prev.Keyboard == nil || cur.Keyboard == nil {
			return false
		}
		return diff <= keyboardMergeWindow && prev.Keyboard.Key == cur.Keyboard.Key
	case model.KindMouse:
		if prev.Mouse == nil || cur.Mouse == nil {
			return false
		}
		if prev.Mouse.Action == model.MouseActionScroll && cur.Mouse.Action == model.MouseActionScroll {
			return diff <= scrollMergeWindow
		}
		if prev.Mouse.Action == model.MouseActionPress && cur.Mouse.Action == model.MouseActionRelease {
			return diff <= clickMergeWindow
		}
		return false
	case model.KindScreenshot:
		return diff < screenshotMergeWindow
	default:
		return false
	}
}

func mergeGroup(group []model.RawRecord) model.RawRecord {
	if len(group) == 1 {
		return group[0]
	}
	first := group[0]
	last := group[len(group)-1]

	switch first.Kind {
	case model.KindKeyboard:
		merged := *first.Keyboard
		merged.SequenceCount = len(group)
		merged.SequenceStart = first.Timestamp
		merged.SequenceEnd = last.Timestamp
		merged.Action = model.KeyActionPress // "sequence" collapses to the representative press
		return model.RawRecord{Timestamp: first.Timestamp, Kind: model.KindKeyboard, Keyboard: &merged}

	case model.KindMouse:
		return mergeMouseGroup(group, first, last)

	case model.KindScreenshot:
		merged := *first.Screenshot
		merged.SequenceCount = len(group)
		merged.SequenceDuration = last.Timestamp.Sub(first.Timestamp)
		merged.SequenceStart = first.Timestamp
		merged.SequenceEnd = last.Timestamp
		// Spec §4.4 step 5: merge keeps the first record's hash/path as a
		// unit — ContentHash and ScreenshotBytes must come from the same
		// record, or the Image Store ends up keyed under a hash that
		// doesn't match the bytes it stores.
		return model.RawRecord{
			Timestamp:       first.Timestamp,
			Kind:            model.KindScreenshot,
			Screenshot:      &merged,
			ScreenshotBytes: first.ScreenshotBytes,
		}

	default:
		return first
	}
}

func mergeMouseGroup(group []model.RawRecord, first, last model.RawRecord) model.RawRecord {
	switch {
	case first.Mouse.Action == model.MouseActionScroll:
		var dx, dy float64
		for _, r := range group {
			if r.Mouse.ScrollDelta != nil {
				dx += r.Mouse.ScrollDelta.X
				dy += r.Mouse.ScrollDelta.Y
			}
		}
		merged := model.MousePayload{
			Action:      model.MouseActionScroll,
			Position:    last.Mouse.Position,
			ScrollDelta: &model.Point{X: dx, Y: dy},
			Duration:    last.Timestamp.Sub(first.Timestamp),
		}
		return model.RawRecord{Timestamp: first.Timestamp, Kind: model.KindMouse, Mouse: &merged}

	case first.Mouse.Action == model.MouseActionPress && last.Mouse.Action == model.MouseActionRelease:
		endPos := last.Mouse.Position
		merged := model.MousePayload{
			Action:      model.MouseActionClick,
			Button:      first.Mouse.Button,
			Position:    first.Mouse.Position,
			EndPosition: &endPos,
			Duration:    last.Timestamp.Sub(first.Timestamp),
		}
		return model.RawRecord{Timestamp: first.Timestamp, Kind: model.KindMouse, Mouse: &merged}

	default:
		return first
	}
}
