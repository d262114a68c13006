package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schaermu/gitnomad/internal/config"
	"github.com/schaermu/gitnomad/internal/git"
	"github.com/schaermu/gitnomad/internal/nomad"
	"github.com/schaermu/gitnomad/internal/sync"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile string
	workDir string
)

// flagKeys maps settings keys to the flags that override them.
var flagKeys = map[string]string{
	"git":        "git",
	"log.level":  "log-level",
	"log.format": "log-format",
	"user":       "user",
	"host":       "host",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "git-nomad",
	Short: "Synchronize work-in-progress branches between your clones",
	Long: `git-nomad mirrors the local branches of every clone you work in to a shared
remote under refs/nomad/<user>/<host>/, and brings the mirrors of your other
clones back as refs/nomad/<host>/<branch>.

Deleting a branch locally and syncing removes its mirror everywhere on the
next sync of each clone.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "git-nomad %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/git-nomad/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "log format (text, json)")
	rootCmd.PersistentFlags().String("git", config.DefaultGit, "git binary to invoke")
	rootCmd.PersistentFlags().StringVarP(&workDir, "directory", "C", ".", "run as if started in this directory")

	// Add commands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(versionCmd)
}

// app bundles what every repository command needs.
type app struct {
	settings *viper.Viper
	logger   *slog.Logger
	engine   *sync.Engine
}

func newApp(ctx context.Context, cmd *cobra.Command, dryRun bool) (*app, error) {
	settings, err := loadSettings(cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cmd.ErrOrStderr(), settings.GetString("log.level"), settings.GetString("log.format"))

	client, err := git.NewShellClient(ctx, settings.GetString("git"), workDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	logger.Debug("opened repository", "git_dir", client.GitDir())

	return &app{
		settings: settings,
		logger:   logger,
		engine:   sync.NewEngine(client, logger, dryRun),
	}, nil
}

// identity returns the user and host stored in the repository.
func (a *app) identity(ctx context.Context) (nomad.Config, error) {
	cfg, err := a.engine.ResolveConfig(ctx)
	if err != nil {
		return nomad.Config{}, err
	}
	a.logger.Debug("resolved identity", "user", cfg.User, "host", cfg.Host)
	return cfg, nil
}

// remote picks the remote named on the command line, falling back to the
// configured default.
func (a *app) remote(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.settings.GetString("remote")
}

// loadSettings layers the settings file, GIT_NOMAD_* environment variables
// and command line flags, in increasing order of precedence.
func loadSettings(flags *pflag.FlagSet) (*viper.Viper, error) {
	var (
		file *config.Config
		err  error
	)
	if cfgFile != "" {
		file, err = config.Load(cfgFile)
	} else {
		file, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	v := viper.New()
	v.SetDefault("remote", file.Remote)
	v.SetDefault("git", file.Git)
	v.SetDefault("user", file.User)
	v.SetDefault("host", file.Host)
	v.SetDefault("log.level", file.Log.Level)
	v.SetDefault("log.format", file.Log.Format)

	// Environment variables override
	v.SetEnvPrefix("GIT_NOMAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	return v, nil
}

func setupLogger(w io.Writer, logLevel, logFormat string) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
