package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/smazurov/qaspar/internal/archive"
	"github.com/smazurov/qaspar/internal/logging"
	"github.com/smazurov/qaspar/internal/pipeline"
	"github.com/spf13/cobra"
)

// CreatePruneCmd creates the prune command. The configured pipeline is read
// when the command runs, so flags, env and config file of the root command
// apply; the prune flags override them.
func CreatePruneCmd(configured func() pipeline.Config) *cobra.Command {
	var dir string
	var keepDays float64
	var splitTime int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove aged archive files once",
		Long: `Runs a single retention pass over the archive directory and exits. ` +
			`Files older than the retention plus one split interval are removed.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := configured()
			if cmd.Flags().Changed("dir") {
				cfg.StorePath = dir
			}
			if cmd.Flags().Changed("keep") {
				cfg.KeepDays = keepDays
			}
			if cmd.Flags().Changed("split-time") {
				cfg.SplitTime = splitTime
			}

			if err := prune(cfg.CleanupConfig(), dryRun, cmd.OutOrStdout()); err != nil {
				logging.GetLogger("archive").Error("Prune failed", "error", err)
				os.Exit(1)
			}
		},
	}

	defaults := pipeline.DefaultConfig()
	cmd.Flags().StringVar(&dir, "dir", defaults.StorePath, "Archive directory")
	cmd.Flags().Float64Var(&keepDays, "keep", defaults.KeepDays, "Days to keep archive files (fractions allowed)")
	cmd.Flags().IntVar(&splitTime, "split-time", defaults.SplitTime, "Seconds per archive file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the files that would be removed without removing them")

	return cmd
}

// prune runs one cleanup pass and prints the affected files to out.
func prune(cfg archive.Config, dryRun bool, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	cleaner := archive.NewCleaner(logging.GetLogger("archive"), archive.WithDryRun(dryRun))
	result, err := cleaner.Prune(cfg)
	if err != nil {
		return err
	}

	verb := "removed"
	if dryRun {
		verb = "would remove"
	}
	for _, path := range result.Removed {
		fmt.Fprintf(out, "%s %s\n", verb, path)
	}
	fmt.Fprintf(out, "%d of %d files %s (limit %s, %d failed)\n",
		len(result.Removed), result.Scanned, verb, result.Limit.Format(time.RFC3339), result.Failed)

	if result.Failed > 0 {
		return fmt.Errorf("failed to remove %d files", result.Failed)
	}
	return nil
}
