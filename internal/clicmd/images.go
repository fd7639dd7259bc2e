package clicmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var imageCmd = &cobra.Command{
	Use:     "image",
	GroupID: GroupImages,
	Short:   "Inspect and manage the image store",
}

var imageStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report image cache occupancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, images, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()
		return printJSON(images.StatsSnapshot())
	},
}

var imageGetCachedCmd = &cobra.Command{
	Use:   "get-cached <hash> [hash...]",
	Short: "Fetch cached image bytes by content hash, reporting sizes only",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, images, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		found := images.GetMany(args)
		sizes := make(map[string]int, len(found))
		for hash, data := range found {
			sizes[hash] = len(data)
		}
		return printJSON(sizes)
	},
}

var imageCleanupMaxAgeHours float64

var imageCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove thumbnails older than max-age-hours",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, images, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := images.GC(time.Duration(imageCleanupMaxAgeHours * float64(time.Hour)))
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		fmt.Printf("removed %d files\n", removed)
		return nil
	},
}

var imageClearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Remove every thumbnail from the on-disk store",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, images, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		// maxAge=0 removes every thumbnail file regardless of age, per GC's contract.
		removed, err := images.GC(0)
		if err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Printf("removed %d files\n", removed)
		return nil
	},
}

var optimizationCmd = &cobra.Command{
	Use:   "optimization",
	Short: "Inspect or change the Image Optimizer / Sampler configuration",
}

var optimizationConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the current [image_optimization] section",
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
		return printJSON(cfg.ImageOptimization)
	},
}

var (
	optEnableCropping     bool
	optCompressionLevel   string
	optEnableContentCheck bool
	optPHashThreshold     float64
	optMinIntervalSeconds float64
	optMaxImagesPerEvent  int
)

var optimizationConfigSetCmd = &cobra.Command{
	Use:   "config-set",
	Short: "Update fields of the [image_optimization] section and persist them",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		store.Close()

		if cmd.Flags().Changed("enable-cropping") {
			cfg.ImageOptimization.EnableCropping = optEnableCropping
		}
		if cmd.Flags().Changed("compression-level") {
			cfg.ImageOptimization.CompressionLevel = optCompressionLevel
		}
		if cmd.Flags().Changed("enable-content-check") {
			cfg.ImageOptimization.EnableContentCheck = optEnableContentCheck
		}
		if cmd.Flags().Changed("phash-threshold") {
			cfg.ImageOptimization.PHashThreshold = optPHashThreshold
		}
		if cmd.Flags().Changed("min-interval-seconds") {
			cfg.ImageOptimization.MinIntervalSeconds = optMinIntervalSeconds
		}
		if cmd.Flags().Changed("max-images-per-event") {
			v := optMaxImagesPerEvent
			cfg.ImageOptimization.MaxImagesPerEvent = &v
		}
		return saveConfig(path, cfg)
	},
}

var optimizationStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report image-store occupancy (the Optimizer/Sampler keep no state of their own)",
	RunE:  imageStatsCmd.RunE,
}

func init() {
	optimizationConfigSetCmd.Flags().BoolVar(&optEnableCropping, "enable-cropping", false, "enable content-aware cropping")
	optimizationConfigSetCmd.Flags().StringVar(&optCompressionLevel, "compression-level", "", "Ultra|Aggressive|Balanced|Quality")
	optimizationConfigSetCmd.Flags().BoolVar(&optEnableContentCheck, "enable-content-check", false, "enable perceptual content-change check")
	optimizationConfigSetCmd.Flags().Float64Var(&optPHashThreshold, "phash-threshold", 0, "fraction of 64 bits, e.g. 0.10")
	optimizationConfigSetCmd.Flags().Float64Var(&optMinIntervalSeconds, "min-interval-seconds", 0, "minimum seconds between accepted frames")
	optimizationConfigSetCmd.Flags().IntVar(&optMaxImagesPerEvent, "max-images-per-event", 0, "per-event image quota")

	imageCleanupCmd.Flags().Float64Var(&imageCleanupMaxAgeHours, "max-age-hours", 24, "remove files older than this many hours")

	optimizationCmd.AddCommand(optimizationConfigCmd, optimizationConfigSetCmd, optimizationStatsCmd)
	imageCmd.AddCommand(imageStatsCmd, imageGetCachedCmd, imageCleanupCmd, imageClearCacheCmd, optimizationCmd)
	rootCmd.AddCommand(imageCmd)
}
