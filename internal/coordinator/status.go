package coordinator

import (
	"time"

	"chronicle/internal/capture"
	"chronicle/internal/model"
)

// State is the coordinator's lifecycle state (spec §4.11).
type State string

const (
	StateStopped       State = "stopped"
	StateStarting      State = "starting"
	StateRunning       State = "running"
	StateRequiresModel State = "requires_model"
	StateError         State = "error"
)

// Status is the coordinator's public status report. ActiveModel is always
// the sanitized form (model.LLMModel.Sanitized) — api_key/api_url never
// leave this package, grounded on the original coordinator.py's
// _sanitize_active_model.
//
// StartTime, ProcessingCycles and LastProcessingTime mirror the original's
// stats dict (coordinator.py's start_time/total_processing_cycles/
// last_processing_time), spec §4.11's named status counters.
type Status struct {
	Mode            State           `json:"mode"`
	LastError       string          `json:"last_error,omitempty"`
	ActiveModel     *model.LLMModel `json:"active_model,omitempty"`
	Capture         *capture.Stats  `json:"capture,omitempty"`
	WindowLen       int             `json:"window_len"`
	BufferLen       int             `json:"buffer_len"`
	PipelinePending int             `json:"pipeline_pending"`

	StartTime          time.Time `json:"start_time,omitempty"`
	ProcessingCycles   int64     `json:"processing_cycles"`
	LastProcessingTime time.Time `json:"last_processing_time,omitempty"`
}
