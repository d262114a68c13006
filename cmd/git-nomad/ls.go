package main

import (
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the mirrors known to this clone",
	Long: `Ls prints the local mirrors of your hosts as they were at the last sync,
grouped by host. It does not contact the remote.`,
	Args: cobra.NoArgs,
	RunE: runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
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

	return a.engine.List(ctx, cfg.User, cmd.OutOrStdout())
}
