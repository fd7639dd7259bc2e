package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"chronicle/internal/model"
	"chronicle/internal/observability"
)

// ModelStore is the slice of persistence.Store the manager needs: reading
// the active model row and writing usage accounting. Kept narrow so this
// package doesn't import internal/persistence directly.
type ModelStore interface {
	GetActiveModel() (model.LLMModel, error)
	InsertUsage(u model.LLMUsage) error
}

// BackendFactory builds a Provider for one LLMModel row. The coordinator
// supplies one factory per known provider name ("openai", "anthropic").
type BackendFactory func(m model.LLMModel, httpClient *http.Client) Provider

// Manager is the process-wide LLM entry point the Pipeline (C8) and
// Aggregation Scheduler (C9) call through. It lazily (re)builds its backend
// client the first time it's asked for one, and again whenever the active
// model row changes (ReloadOnNextRequest), rather than holding a
// package-level singleton — grounded on the teacher's singleton-avoidance
// guidance for provider clients (see _examples/original_source's
// coordinator re-architecture note, mirrored in SPEC_FULL.md §4.7).
type Manager struct {
	store      ModelStore
	httpClient *http.Client
	factories  map[string]BackendFactory

	mu          sync.Mutex
	cachedID    string
	cached      Provider
	cachedModel string
	needReload  bool
}

// NewManager wires a Manager against store and the given per-provider
// backend factories.
func NewManager(store ModelStore, httpClient *http.Client, factories map[string]BackendFactory) *Manager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Manager{store: store, httpClient: httpClient, factories: factories}
}

// ReloadOnNextRequest invalidates the cached client. Call this after a
// models.update/select/delete operation changes the active model.
func (m *Manager) ReloadOnNextRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.needReload = true
}

func (m *Manager) activeProvider() (Provider, model.LLMModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.store.GetActiveModel()
	if err != nil {
		return nil, model.LLMModel{}, err
	}
	if !m.needReload && m.cached != nil && m.cachedID == active.ID && m.cachedModel == active.Model {
		return m.cached, active, nil
	}
	factory, ok := m.factories[active.Provider]
	if !ok {
		return nil, model.LLMModel{}, fmt.Errorf("llm: no backend registered for provider %q", active.Provider)
	}
	provider := factory(active, m.httpClient)
	m.cached = provider
	m.cachedID = active.ID
	m.cachedModel = active.Model
	m.needReload = false
	return provider, active, nil
}

// ChatCompletion runs a non-streaming request against the active model and
// writes a usage accounting row. A usage-write failure is logged by the
// caller's choosing but never fails the request — usage.go's InsertUsage
// error is simply swallowed here per spec §4.7.
func (m *Manager) ChatCompletion(ctx context.Context, msgs []Message) (Response, error) {
	provider, active, err := m.activeProvider()
	if err != nil {
		return Response{}, err
	}
	msgs = capImages(ctx, msgs)

	var resp Response
	err = withRetry(ctx, DefaultMaxRetries, DefaultRetryBackoff, func() error {
		var callErr error
		resp, callErr = provider.ChatCompletion(ctx, active.Model, msgs)
		return callErr
	})
	if err != nil {
		return Response{}, err
	}
	m.recordUsage(active, resp.Usage, "chat_completion")
	return resp, nil
}

// ChatCompletionStream runs a streaming request against the active model.
// Streaming requests are not retried: a partial stream already delivered to
// h cannot be safely replayed.
func (m *Manager) ChatCompletionStream(ctx context.Context, msgs []Message, h StreamHandler) error {
	provider, active, err := m.activeProvider()
	if err != nil {
		return err
	}
	msgs = capImages(ctx, msgs)

	usage, err := provider.ChatCompletionStream(ctx, active.Model, msgs, h)
	if err != nil {
		return err
	}
	m.recordUsage(active, usage, "chat_completion_stream")
	return nil
}

func (m *Manager) recordUsage(active model.LLMModel, u Usage, requestType string) {
	_ = m.store.InsertUsage(model.LLMUsage{
		Timestamp:        time.Now().UTC(),
		Model:            active.Model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		Cost:             estimateCost(active, u),
		RequestType:      requestType,
	})
}

func estimateCost(active model.LLMModel, u Usage) float64 {
	const perMillion = 1_000_000.0
	return float64(u.PromptTokens)*active.InputTokenPrice/perMillion +
		float64(u.CompletionTokens)*active.OutputTokenPrice/perMillion
}

// maxImagesPerRequest caps the number of images attached to a single
// request; screenshots beyond the cap are dropped, oldest first.
const maxImagesPerRequest = 20

// capImages enforces the 20-image request cap across all user messages
// combined, dropping the oldest images first so the most recent screenshots
// (closest to the triggering event) survive truncation.
func capImages(ctx context.Context, msgs []Message) []Message {
	total := 0
	for _, m := range msgs {
		total += len(m.Images)
	}
	if total <= maxImagesPerRequest {
		return msgs
	}
	toDrop := total - maxImagesPerRequest
	observability.LoggerWithTrace(ctx).Warn().
		Int("total_images", total).
		Int("dropped", toDrop).
		Int("cap", maxImagesPerRequest).
		Msg("llm_request_image_cap_truncated")
	out := make([]Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		if toDrop == 0 {
			break
		}
		if len(out[i].Images) == 0 {
			continue
		}
		if len(out[i].Images) <= toDrop {
			toDrop -= len(out[i].Images)
			out[i].Images = nil
		} else {
			out[i].Images = out[i].Images[toDrop:]
			toDrop = 0
		}
	}
	return out
}
