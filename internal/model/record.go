// Package model defines the data types shared across the perception-to-
// knowledge pipeline: raw captured input, the artifacts extracted from it,
// and the rows persisted for each.
package model

import "time"

// RecordKind identifies the shape of a RawRecord's payload. Values are the
// canonical "new" form; ParseRecordKind also accepts the legacy forms still
// found in old stored rows.
type RecordKind string

const (
	KindKeyboard   RecordKind = "keyboard_record"
	KindMouse      RecordKind = "mouse_record"
	KindScreenshot RecordKind = "screenshot_record"
)

// ParseRecordKind normalizes both canonical and legacy serializations of a
// record kind. Legacy rows were written as "keyboard_event", "mouse_event",
// and "screenshot_event"; new rows use the *_record suffix.
func ParseRecordKind(s string) (RecordKind, bool) {
	switch s {
	case string(KindKeyboard), "keyboard_event":
		return KindKeyboard, true
	case string(KindMouse), "mouse_event":
		return KindMouse, true
	case string(KindScreenshot), "screenshot_event":
		return KindScreenshot, true
	default:
		return "", false
	}
}

type KeyType string

const (
	KeyChar     KeyType = "Char"
	KeySpecial  KeyType = "Special"
	KeyModifier KeyType = "Modifier"
)

type KeyAction string

const (
	KeyActionPress    KeyAction = "Press"
	KeyActionRelease  KeyAction = "Release"
	KeyActionModifier KeyAction = "Modifier"
)

type Modifier string

const (
	ModCmd   Modifier = "Cmd"
	ModCtrl  Modifier = "Ctrl"
	ModAlt   Modifier = "Alt"
	ModShift Modifier = "Shift"
	ModSuper Modifier = "Super"
)

// KeyboardPayload is the payload of a Keyboard RawRecord.
type KeyboardPayload struct {
	Key       string     `json:"key"`
	KeyType   KeyType    `json:"keyType"`
	Action    KeyAction  `json:"action"`
	Modifiers []Modifier `json:"modifiers,omitempty"`

	// Sequence fields are set only on records produced by the merging pass
	// (see internal/filter); zero otherwise.
	SequenceCount int       `json:"sequenceCount,omitempty"`
	SequenceStart time.Time `json:"sequenceStart,omitempty"`
	SequenceEnd   time.Time `json:"sequenceEnd,omitempty"`
}

// IsSpecial reports the "significant" keyboard flag from spec §4.2: non-empty
// modifiers, Special key type, or an explicit modifier action.
func (k KeyboardPayload) IsSpecial() bool {
	return len(k.Modifiers) > 0 || k.KeyType == KeySpecial || k.Action == KeyActionModifier
}

type MouseAction string

const (
	MouseActionPress    MouseAction = "Press"
	MouseActionRelease  MouseAction = "Release"
	MouseActionClick    MouseAction = "Click"
	MouseActionDrag     MouseAction = "Drag"
	MouseActionDragEnd  MouseAction = "DragEnd"
	MouseActionScroll   MouseAction = "Scroll"
	MouseActionMove     MouseAction = "Move"
)

// importantMouseActions mirrors filter_rules.py's mouse_important_actions.
var importantMouseActions = map[MouseAction]bool{
	MouseActionPress:   true,
	MouseActionRelease: true,
	MouseActionClick:   true,
	MouseActionDrag:    true,
	MouseActionDragEnd: true,
	MouseActionScroll:  true,
}

// Point is an (x, y) pixel position.
type Point struct {
	X, Y float64
}

// MousePayload is the payload of a Mouse RawRecord.
type MousePayload struct {
	Action      MouseAction `json:"action"`
	Button      string      `json:"button,omitempty"`
	Position    Point       `json:"position"`
	EndPosition *Point      `json:"endPosition,omitempty"`
	ScrollDelta *Point      `json:"scrollDelta,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// IsImportant reports the mouse significance filter from spec §4.2.
func (m MousePayload) IsImportant() bool {
	return importantMouseActions[m.Action]
}

type ScreenshotFormat string

const FormatJPEG ScreenshotFormat = "JPEG"

// ScreenshotPayload is the payload of a Screenshot RawRecord; the encoded
// bytes themselves live in the Image Store, addressed by ContentHash.
type ScreenshotPayload struct {
	MonitorIndex int              `json:"monitorIndex"`
	Width        int              `json:"width"`
	Height       int              `json:"height"`
	Format       ScreenshotFormat `json:"format"`
	ContentHash  string           `json:"contentHash"`

	// Sequence fields are set only on records produced by the merging pass;
	// zero otherwise.
	SequenceCount    int           `json:"sequenceCount,omitempty"`
	SequenceDuration time.Duration `json:"sequenceDuration,omitempty"`
	SequenceStart    time.Time     `json:"sequenceStart,omitempty"`
	SequenceEnd      time.Time     `json:"sequenceEnd,omitempty"`
}

// RawRecord is one captured input or screen sample, pre-aggregation.
// Exactly one of Keyboard, Mouse, Screenshot is set, matching Kind.
type RawRecord struct {
	Timestamp time.Time  `json:"timestamp"`
	Kind      RecordKind `json:"kind"`

	Keyboard   *KeyboardPayload   `json:"keyboard,omitempty"`
	Mouse      *MousePayload      `json:"mouse,omitempty"`
	Screenshot *ScreenshotPayload `json:"screenshot,omitempty"`

	// ScreenshotBytes carries the encoded JPEG for a Screenshot record
	// in-flight between capture and the Image Store; it is never persisted
	// directly (only ContentHash is).
	ScreenshotBytes []byte `json:"-"`
}
