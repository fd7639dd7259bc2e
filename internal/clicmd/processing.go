package clicmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chronicle/internal/aggregation"
	"chronicle/internal/llm"
	"chronicle/internal/llm/anthropic"
	"chronicle/internal/llm/openai"
	"chronicle/internal/observability"
	"chronicle/internal/persistence"

	"github.com/spf13/cobra"
)

var processingCmd = &cobra.Command{
	Use:     "processing",
	GroupID: GroupProcessing,
	Short:   "Inspect and run the extraction/aggregation pipeline",
}

var (
	listLimit int
	listSince string
	listUntil string
)

var processingEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List extracted events",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		start, end, err := parseRange(listSince, listUntil)
		if err != nil {
			return err
		}
		events, err := store.ListEvents(start, end, listLimit)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		return printJSON(events)
	},
}

var processingActivitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		start, end, err := parseRange(listSince, listUntil)
		if err != nil {
			return err
		}
		activities, err := store.ListActivities(start, end, listLimit)
		if err != nil {
			return fmt.Errorf("list activities: %w", err)
		}
		return printJSON(activities)
	},
}

var sinceVersion int64

var processingActivitiesIncrementalCmd = &cobra.Command{
	Use:   "activities-incremental",
	Short: "List activities committed after a given version (incremental pull)",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		activities, err := store.ListActivitiesSince(sinceVersion)
		if err != nil {
			return fmt.Errorf("list activities since %d: %w", sinceVersion, err)
		}
		return printJSON(activities)
	},
}

var processingActivityCountByDateCmd = &cobra.Command{
	Use:   "activity-count-by-date",
	Short: "Report activity counts grouped by UTC day",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := store.ActivityCountByDate()
		if err != nil {
			return fmt.Errorf("activity count by date: %w", err)
		}
		return printJSON(counts)
	},
}

var cleanupDays int

var processingCleanupOldDataCmd = &cobra.Command{
	Use:   "cleanup-old-data",
	Short: "Purge soft-deleted rows and diagnostic records older than --days",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.CleanupOldData(cleanupDays)
		if err != nil {
			return fmt.Errorf("cleanup old data: %w", err)
		}
		fmt.Printf("removed %d rows\n", removed)
		return nil
	},
}

var processingFinalizeCmd = &cobra.Command{
	Use:   "finalize-current-activity",
	Short: "Run one activity/knowledge/todo aggregation pass immediately",
	Long: `Aggregation reads straight from persistence, so this runs a real
ForceFinalize pass in this CLI process against the active model — it does
not require a live chronicled to be running.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		httpClient := observability.NewHTTPClient(&http.Client{Timeout: 60 * time.Second})
		llmMgr := newManager(store, httpClient)

		sched := aggregation.New(store, llmMgr, aggregation.Options{
			ActivityInterval:  time.Duration(cfg.Processing.ActivitySummaryInterval) * time.Second,
			KnowledgeInterval: time.Duration(cfg.Processing.KnowledgeMergeInterval) * time.Second,
			TodoInterval:      time.Duration(cfg.Processing.TodoMergeInterval) * time.Second,
			Language:          cfg.Language.DefaultLanguage,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := sched.ForceFinalize(ctx); err != nil {
			return fmt.Errorf("finalize current activity: %w", err)
		}
		fmt.Println("ok")
		return nil
	},
}

// newManager builds an llm.Manager against both known backend factories,
// mirroring coordinator.New's wiring for the one-shot CLI case.
func newManager(store *persistence.Store, httpClient *http.Client) *llm.Manager {
	return llm.NewManager(store, httpClient, map[string]llm.BackendFactory{
		"openai":    openai.New,
		"anthropic": anthropic.New,
	})
}

func init() {
	processingEventsCmd.Flags().IntVar(&listLimit, "limit", 100, "max rows to return")
	processingEventsCmd.Flags().StringVar(&listSince, "since", "", "RFC3339 range start")
	processingEventsCmd.Flags().StringVar(&listUntil, "until", "", "RFC3339 range end")

	processingActivitiesCmd.Flags().IntVar(&listLimit, "limit", 100, "max rows to return")
	processingActivitiesCmd.Flags().StringVar(&listSince, "since", "", "RFC3339 range start")
	processingActivitiesCmd.Flags().StringVar(&listUntil, "until", "", "RFC3339 range end")

	processingActivitiesIncrementalCmd.Flags().Int64Var(&sinceVersion, "since-version", 0, "return activities committed after this version")

	processingCleanupOldDataCmd.Flags().IntVar(&cleanupDays, "days", 90, "purge rows older than this many days")

	processingCmd.AddCommand(
		processingEventsCmd,
		processingActivitiesCmd,
		processingActivitiesIncrementalCmd,
		processingActivityCountByDateCmd,
		processingCleanupOldDataCmd,
		processingFinalizeCmd,
	)
	rootCmd.AddCommand(processingCmd)
}
