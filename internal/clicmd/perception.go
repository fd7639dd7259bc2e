package clicmd

import (
	"fmt"
	"time"

	"chronicle/internal/capture"

	"github.com/spf13/cobra"
)

var perceptionCmd = &cobra.Command{
	Use:     "perception",
	GroupID: GroupPerception,
	Short:   "Inspect the capture layer",
	Long: `perception reads the diagnostic raw_records table a running
chronicled writes to. Starting/stopping capture itself is chronicled's job
(this CLI talks to the database and image store directly, not to a live
daemon — the spec treats any RPC/IPC transport between them as an external
concern); use 'chronicled' (or your service manager) to start or stop
capture.`,
}

var perceptionStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report this process's resource usage as a capture process would",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := capture.PollStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("poll stats: %w", err)
		}
		return printJSON(stats)
	},
}

var (
	recordsLimit int
	recordsType  string
	recordsSince string
	recordsUntil string
)

var perceptionRecordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List diagnostic raw capture records",
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

		start, end, err := parseRange(recordsSince, recordsUntil)
		if err != nil {
			return err
		}
		records, err := store.ListRawRecords(recordsType, start, end, recordsLimit)
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		return printJSON(records)
	},
}

var bufferedEventsLimit int

var perceptionBufferedEventsCmd = &cobra.Command{
	Use:   "buffered-events",
	Short: "Approximate a live daemon's capacity-bound event buffer from the diagnostic log",
	Long: `A live chronicled process keeps a capacity-bound in-memory buffer
of the most recent raw records (spec §6's buffered_events). This CLI process
has no access to that daemon's memory, so it approximates the same read by
returning the most recent raw_records rows instead.`,
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

		records, err := store.ListRawRecords("", time.Time{}, time.Time{}, bufferedEventsLimit)
		if err != nil {
			return fmt.Errorf("list buffered events: %w", err)
		}
		return printJSON(records)
	},
}

var perceptionClearRecordsCmd = &cobra.Command{
	Use:   "clear-records",
	Short: "Delete every diagnostic raw_records row",
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

		return store.ClearRawRecords()
	},
}

func parseRange(since, until string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if since != "" {
		start, err = time.Parse(time.RFC3339, since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --since: %w", err)
		}
	}
	if until != "" {
		end, err = time.Parse(time.RFC3339, until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --until: %w", err)
		}
	}
	return start, end, nil
}

func init() {
	perceptionRecordsCmd.Flags().IntVar(&recordsLimit, "limit", 100, "max rows to return")
	perceptionRecordsCmd.Flags().StringVar(&recordsType, "type", "", "filter by record kind (screenshot|keyboard|mouse)")
	perceptionRecordsCmd.Flags().StringVar(&recordsSince, "since", "", "RFC3339 range start")
	perceptionRecordsCmd.Flags().StringVar(&recordsUntil, "until", "", "RFC3339 range end")

	perceptionBufferedEventsCmd.Flags().IntVar(&bufferedEventsLimit, "limit", 256, "max rows to return")

	perceptionCmd.AddCommand(perceptionStatsCmd, perceptionRecordsCmd, perceptionBufferedEventsCmd, perceptionClearRecordsCmd)
	rootCmd.AddCommand(perceptionCmd)
}
