package main

import (
	"github.com/spf13/cobra"
)

var quiet bool

var syncCmd = &cobra.Command{
	Use:   "sync [REMOTE]",
	Short: "Push local branches and fetch the mirrors of your other hosts",
	Long: `Sync pushes every local branch to REMOTE under refs/nomad/<user>/<host>/,
fetches the mirrors of all your hosts into refs/nomad/<host>/ and prunes
mirrors of branches that no longer exist.

REMOTE defaults to the configured remote (origin). Unless --quiet is given
the resulting mirrors are listed afterwards.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not list mirrors after syncing")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}

	cfg, err := a.identity(ctx)
	if err != nil {
		return err
	}

	if err := a.engine.Sync(ctx, cfg, a.remote(args)); err != nil {
		a.logger.Error("sync failed", "error", err)
		return err
	}

	if quiet {
		return nil
	}
	return a.engine.List(ctx, cfg.User, cmd.OutOrStdout())
}
