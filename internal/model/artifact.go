package model

import "time"

// Event is an atomic extracted unit from a batch of screenshots plus an
// input-activity hint. Immutable once written.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	Timestamp   time.Time `json:"timestamp"`
	Deleted     bool      `json:"deleted"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Knowledge is a standalone fact or note extracted alongside an Event.
type Knowledge struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	CreatedAt   time.Time `json:"createdAt"`
	Deleted     bool      `json:"deleted"`
}

// CombinedKnowledge supersedes a set of Knowledge rows it subsumes.
type CombinedKnowledge struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Keywords      []string  `json:"keywords"`
	MergedFromIDs []string  `json:"mergedFromIds"`
	CreatedAt     time.Time `json:"createdAt"`
	Deleted       bool      `json:"deleted"`
}

// Todo is an actionable item extracted alongside an Event.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	Deleted     bool      `json:"deleted"`
}

// CombinedTodo supersedes a set of Todo rows; Completed is true only when
// every subsumed Todo is completed.
type CombinedTodo struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Keywords      []string  `json:"keywords"`
	MergedFromIDs []string  `json:"mergedFromIds"`
	Completed     bool      `json:"completed"`
	CreatedAt     time.Time `json:"createdAt"`
	Deleted       bool      `json:"deleted"`
}

// Activity is a user-facing cluster of temporally adjacent Events describing
// one coherent session. Version is monotonically assigned at commit time so
// clients can do incremental pulls (activities_incremental).
type Activity struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	SourceEventID []string  `json:"sourceEventIds"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	Deleted       bool      `json:"deleted"`
}

// Diary is a narrative summary of one UTC day's Activities. At most one
// non-deleted Diary exists per Date.
type Diary struct {
	ID               string    `json:"id"`
	Date             string    `json:"date"` // YYYY-MM-DD, UTC day
	Content          string    `json:"content"`
	SourceActivityID []string  `json:"sourceActivityIds"`
	CreatedAt        time.Time `json:"createdAt"`
	Deleted          bool      `json:"deleted"`
}

// LLMModel is one configured provider/model endpoint. At most one row has
// IsActive=true; all LLM calls use that row.
type LLMModel struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Provider         string     `json:"provider"` // "openai" | "anthropic"
	APIURL           string     `json:"apiUrl"`
	Model            string     `json:"model"`
	APIKey           string     `json:"apiKey"`
	InputTokenPrice  float64    `json:"inputTokenPrice"`
	OutputTokenPrice float64    `json:"outputTokenPrice"`
	Currency         string     `json:"currency"`
	IsActive         bool       `json:"isActive"`
	LastTestStatus   string     `json:"lastTestStatus"`
	LastTestedAt     *time.Time `json:"lastTestedAt,omitempty"`
	LastTestError    string     `json:"lastTestError,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Sanitized returns a copy with secret-bearing fields dropped, suitable for
// status reports and logs (see coordinator._sanitize_active_model grounding
// in DESIGN.md).
func (m LLMModel) Sanitized() LLMModel {
	m.APIKey = ""
	m.APIURL = ""
	return m
}

// LLMUsage is one accounting row written after every successful LLM call.
type LLMUsage struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	Cost             float64   `json:"cost"`
	RequestType      string    `json:"requestType"`
}

// EventImage links a persisted Event to a screenshot hash retained in the
// Image Store.
type EventImage struct {
	EventID string `json:"eventId"`
	Hash    string `json:"hash"`
}
