// Package aggregation implements the Aggregation Scheduler (C9): three
// independent periodic passes that roll Events up into Activities and merge
// related Knowledge/Todo rows, plus on-demand Diary generation. Grounded on
// original_source/backend/processing/pipeline_new.py's
// _periodic_activity_summary/_periodic_knowledge_merge/_periodic_todo_merge
// sleep-tick-catch-log-continue loops, restructured from one asyncio task
// per timer into one goroutine per timer coordinated by an errgroup.Group.
package aggregation

import (
	"context"
	"time"

	"chronicle/internal/llm"
	"chronicle/internal/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultActivityInterval  = 600 * time.Second
	DefaultKnowledgeInterval = 1200 * time.Second
	DefaultTodoInterval      = 1200 * time.Second
)

// Store is the persistence surface the Scheduler reads and writes. Satisfied
// structurally by *persistence.Store.
type Store interface {
	ListUnsummarizedEvents() ([]model.Event, error)
	CreateActivity(a model.Activity) error

	ListUnmergedKnowledge() ([]model.Knowledge, error)
	CreateCombinedKnowledge(ck model.CombinedKnowledge) error

	ListUnmergedTodos() ([]model.Todo, error)
	CreateCombinedTodo(ct model.CombinedTodo) error

	ListActivities(start, end time.Time, limit int) ([]model.Activity, error)
	UpsertDiary(d model.Diary) error
}

// LLMClient is the narrow completion surface the Scheduler drives; satisfied
// structurally by *llm.Manager.
type LLMClient interface {
	ChatCompletion(ctx context.Context, msgs []llm.Message) (llm.Response, error)
}

// Options configures the three timers' intervals and the prompt language.
type Options struct {
	ActivityInterval  time.Duration
	KnowledgeInterval time.Duration
	TodoInterval      time.Duration
	Language          string
}

func (o Options) withDefaults() Options {
	if o.ActivityInterval <= 0 {
		o.ActivityInterval = DefaultActivityInterval
	}
	if o.KnowledgeInterval <= 0 {
		o.KnowledgeInterval = DefaultKnowledgeInterval
	}
	if o.TodoInterval <= 0 {
		o.TodoInterval = DefaultTodoInterval
	}
	if o.Language == "" {
		o.Language = "en"
	}
	return o
}

// Scheduler owns the three periodic passes. Zero value is not usable; build
// with New.
type Scheduler struct {
	opts  Options
	llmc  LLMClient
	store Store
}

func New(store Store, llmc LLMClient, opts Options) *Scheduler {
	return &Scheduler{opts: opts.withDefaults(), llmc: llmc, store: store}
}

// Run blocks, driving all three timers until ctx is cancelled, returning once
// every timer has observed cancellation at its next sleep boundary. Grounded
// on pipeline_new.py's start(): three independent asyncio.Tasks, none able to
// fail the others.
func (sch *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sch.loop(ctx, "activity_summary", sch.opts.ActivityInterval, sch.runActivitySummary)
		return nil
	})
	g.Go(func() error {
		sch.loop(ctx, "knowledge_merge", sch.opts.KnowledgeInterval, sch.runKnowledgeMerge)
		return nil
	})
	g.Go(func() error {
		sch.loop(ctx, "todo_merge", sch.opts.TodoInterval, sch.runTodoMerge)
		return nil
	})
	return g.Wait()
}

// loop sleeps for interval, then runs fn, logging (never propagating) any
// error so one failing pass never stops future ticks — the "sleep → tick →
// on exception log and continue" contract.
func (sch *Scheduler) loop(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		if err := fn(ctx); err != nil {
			log.Error().Err(err).Str("task", name).Msg("aggregation pass failed")
		}
	}
}

// ForceFinalize runs one pass of all three tasks in sequence, backing the
// coordinator's finalize_current_activity operation ("a manual force_finalize
// triggers one pass of all three in sequence").
func (sch *Scheduler) ForceFinalize(ctx context.Context) error {
	if err := sch.runActivitySummary(ctx); err != nil {
		return err
	}
	if err := sch.runKnowledgeMerge(ctx); err != nil {
		return err
	}
	return sch.runTodoMerge(ctx)
}
