package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/smazurov/qaspar/internal/logging"
	"github.com/smazurov/qaspar/internal/updater"
	"github.com/spf13/cobra"
)

const updateTimeout = 5 * time.Minute

// CreateUpdateCmd creates the update command. repository returns the
// configured GitHub slug when the command runs.
func CreateUpdateCmd(repository func() string) *cobra.Command {
	var check bool
	var rollback bool
	var prerelease bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update qaspar to the latest release",
		Long: `Checks GitHub releases for a newer version and replaces the running binary with it. ` +
			`The replaced binary is backed up and can be restored with --rollback.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			logger := logging.GetLogger("updater")

			svc, err := updater.NewService(&updater.Options{
				Repository: repository(),
				Prerelease: prerelease,
			})
			if err != nil {
				logger.Error("Failed to create update service", "error", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), updateTimeout)
			defer cancel()

			if err := runUpdate(ctx, svc, check, rollback, cmd.OutOrStdout()); err != nil {
				logger.Error("Update failed", "error", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Only check whether an update is available")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the binary replaced by the last update")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	cmd.MarkFlagsMutuallyExclusive("check", "rollback")

	return cmd
}

func runUpdate(ctx context.Context, svc updater.Service, check, rollback bool, out io.Writer) error {
	if !svc.IsEnabled() {
		return fmt.Errorf("update disabled: %s", svc.DisabledReason())
	}

	if rollback {
		if err := svc.Rollback(ctx); err != nil {
			return err
		}
		status := svc.GetStatus(ctx)
		fmt.Fprintf(out, "Restored %s, restart qaspar to use it\n", status.BackupVersion)
		return nil
	}

	info, err := svc.CheckForUpdate(ctx)
	if err != nil {
		return err
	}
	if !info.UpdateAvailable {
		fmt.Fprintf(out, "qaspar %s is up to date (latest %s)\n", info.CurrentVersion, info.LatestVersion)
		return nil
	}
	fmt.Fprintf(out, "Update available: %s -> %s\n", info.CurrentVersion, info.LatestVersion)
	if info.ReleaseURL != "" {
		fmt.Fprintln(out, info.ReleaseURL)
	}
	if check {
		return nil
	}

	if err := svc.ApplyUpdate(ctx); err != nil {
		if updater.CodeOf(err) == updater.ErrCodeNoUpdate {
			fmt.Fprintln(out, "Nothing to update")
			return nil
		}
		return err
	}
	fmt.Fprintf(out, "Updated to %s, restart qaspar to use it\n", info.LatestVersion)
	return nil
}
