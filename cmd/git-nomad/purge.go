package main

import (
	"github.com/schaermu/gitnomad/internal/sync"
	"github.com/spf13/cobra"
)

var (
	purgeAll    bool
	purgeHosts  []string
	purgeDryRun bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge [REMOTE] (--all | --host HOST...)",
	Short: "Delete mirrors from the remote and this clone",
	Long: `Purge deletes nomad mirrors of the current user, first from REMOTE and then
from the local clone. Use --all to remove every host's mirrors or --host to
remove selected hosts only.

Branches themselves are never touched. A later sync from a purged host
recreates its mirrors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeAll, "all", false, "purge the mirrors of every host")
	purgeCmd.Flags().StringSliceVar(&purgeHosts, "host", nil, "purge the mirrors of this host (repeatable)")
	purgeCmd.Flags().BoolVar(&purgeDryRun, "dry-run", false, "show what would be deleted without making changes")
	purgeCmd.MarkFlagsMutuallyExclusive("all", "host")
	purgeCmd.MarkFlagsOneRequired("all", "host")
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	a, err := newApp(ctx, cmd, purgeDryRun)
	if err != nil {
		return err
	}

	cfg, err := a.identity(ctx)
	if err != nil {
		return err
	}

	selector := sync.All()
	if !purgeAll {
		selector = sync.ByHosts(purgeHosts...)
	}

	if err := a.engine.Purge(ctx, cfg.User, a.remote(args), selector); err != nil {
		a.logger.Error("purge failed", "error", err)
		return err
	}
	return nil
}
