package main

import (
	"fmt"
	"os"
	"os/user"

	"github.com/schaermu/gitnomad/internal/nomad"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Store the user and host this clone syncs as",
	Long: `Init records the nomad identity of this clone in the repository's local git
config (nomad.user and nomad.host).

Without flags the user defaults to your login name and the host to the
machine's hostname. Running init again replaces the stored identity.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("user", "", "user to sync as (default is the login name)")
	initCmd.Flags().String("host", "", "host name of this clone (default is the hostname)")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}

	cfg := nomad.Config{
		User: a.settings.GetString("user"),
		Host: a.settings.GetString("host"),
	}
	if cfg.User == "" {
		if cfg.User, err = defaultUser(); err != nil {
			return err
		}
	}
	if cfg.Host == "" {
		if cfg.Host, err = os.Hostname(); err != nil {
			return fmt.Errorf("failed to determine hostname: %w", err)
		}
	}

	return a.engine.Init(ctx, cfg)
}

func defaultUser() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to determine login name: %w", err)
	}
	return u.Username, nil
}
