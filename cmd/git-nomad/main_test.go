package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/schaermu/gitnomad/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs the root command with args and returns what it wrote to stdout.
// Flag values are reset first since the commands are package level.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	origCfgFile, origWorkDir := cfgFile, workDir
	t.Cleanup(func() {
		cfgFile, workDir = origCfgFile, origWorkDir
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	t.Logf("git-nomad %s\n%s", strings.Join(args, " "), stderr.String())
	return stdout.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace([]string{})
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// isolate points the default settings file at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestSetupLogger(t *testing.T) {
	for _, tc := range []struct {
		name      string
		logLevel  string
		logFormat string
		debug     bool
	}{
		{name: "debug/text", logLevel: "debug", logFormat: "text", debug: true},
		{name: "info/json", logLevel: "info", logFormat: "json"},
		{name: "warn/text", logLevel: "warn", logFormat: "text"},
		{name: "error/text", logLevel: "error", logFormat: "text"},
		{name: "unknown/text", logLevel: "unknown", logFormat: "text"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := setupLogger(&buf, tc.logLevel, tc.logFormat)
			if logger == nil {
				t.Fatal("setupLogger returned nil")
			}

			logger.Debug("probe")
			if got := buf.Len() > 0; got != tc.debug {
				t.Errorf("debug output written = %v, want %v", got, tc.debug)
			}
		})
	}
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	setupLogger(&buf, "info", "json").Info("hello", "host", "laptop")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"host":"laptop"`) {
		t.Errorf("expected json output, got %q", buf.String())
	}
}

func TestLoadSettings(t *testing.T) {
	origCfgFile := cfgFile
	t.Cleanup(func() { cfgFile = origCfgFile })

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("remote: upstream\nuser: file-user\nhost: file-host\nlog:\n  level: warn\n")
	if err := os.WriteFile(cfgPath, content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	cfgFile = cfgPath

	t.Run("file", func(t *testing.T) {
		v, err := loadSettings(pflag.NewFlagSet("test", pflag.ContinueOnError))
		if err != nil {
			t.Fatalf("loadSettings: %v", err)
		}
		got := map[string]string{
			"remote":     v.GetString("remote"),
			"git":        v.GetString("git"),
			"user":       v.GetString("user"),
			"log.level":  v.GetString("log.level"),
			"log.format": v.GetString("log.format"),
		}
		want := map[string]string{
			"remote":     "upstream",
			"git":        "git",
			"user":       "file-user",
			"log.level":  "warn",
			"log.format": "text",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("settings mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("GIT_NOMAD_REMOTE", "env-remote")
		t.Setenv("GIT_NOMAD_LOG_LEVEL", "debug")
		v, err := loadSettings(pflag.NewFlagSet("test", pflag.ContinueOnError))
		if err != nil {
			t.Fatalf("loadSettings: %v", err)
		}
		if got := v.GetString("remote"); got != "env-remote" {
			t.Errorf("remote = %q, want env-remote", got)
		}
		if got := v.GetString("log.level"); got != "debug" {
			t.Errorf("log.level = %q, want debug", got)
		}
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("GIT_NOMAD_USER", "env-user")
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("user", "", "")
		flags.String("host", "", "")
		if err := flags.Parse([]string{"--user", "flag-user"}); err != nil {
			t.Fatal(err)
		}

		v, err := loadSettings(flags)
		if err != nil {
			t.Fatalf("loadSettings: %v", err)
		}
		if got := v.GetString("user"); got != "flag-user" {
			t.Errorf("user = %q, want flag-user", got)
		}
		// An unset flag does not shadow the file.
		if got := v.GetString("host"); got != "file-host" {
			t.Errorf("host = %q, want file-host", got)
		}
	})
}

func TestLoadSettings_MissingFile(t *testing.T) {
	origCfgFile := cfgFile
	t.Cleanup(func() { cfgFile = origCfgFile })

	cfgFile = filepath.Join(t.TempDir(), "nonexistent.yaml")

	if _, err := loadSettings(pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestLoadSettings_DefaultPath(t *testing.T) {
	origCfgFile := cfgFile
	defer func() { cfgFile = origCfgFile }()
	cfgFile = ""
	isolate(t)

	v, err := loadSettings(pflag.NewFlagSet("test", pflag.ContinueOnError))
	if err != nil {
		t.Fatalf("a missing default config file should not be an error: %v", err)
	}
	if got := v.GetString("remote"); got != "origin" {
		t.Errorf("remote = %q, want origin", got)
	}
}

func TestSetupSignalHandler(t *testing.T) {
	ctx, cancel := setupSignalHandler()
	if ctx == nil {
		t.Fatal("setupSignalHandler returned nil context")
	}

	cancel()

	<-ctx.Done()
	if err := ctx.Err(); err == nil {
		t.Fatal("expected context error after cancel, got nil")
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "git-nomad "+version) {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestPurgeRequiresSelection(t *testing.T) {
	isolate(t)
	remote := testutil.NewRemote(t)
	clone := remote.Clone("alice", "laptop")

	if _, err := execute(t, "-C", clone.Dir, "purge"); err == nil {
		t.Error("purge without --all or --host should fail")
	}
	if _, err := execute(t, "-C", clone.Dir, "purge", "--all", "--host", "laptop"); err == nil {
		t.Error("purge with both --all and --host should fail")
	}
}

func TestSyncWithoutInit(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	testutil.InitRepo(t, dir)

	_, err := execute(t, "-C", dir, "sync")
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}

func TestNotARepository(t *testing.T) {
	isolate(t)
	testutil.RequireGit(t)

	if _, err := execute(t, "-C", t.TempDir(), "ls"); err == nil {
		t.Fatal("expected error outside a repository")
	}
}

func TestCommands_EndToEnd(t *testing.T) {
	isolate(t)
	remote := testutil.NewRemote(t)
	laptop := remote.Clone("alice", "laptop")
	desktop := remote.Clone("alice", "desktop")

	// Re-initialize through the CLI; the identity is replaced.
	if _, err := execute(t, "-C", laptop.Dir, "init", "--user", "alice", "--host", "notebook"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := testutil.Git(t, laptop.Dir, "config", "--local", "nomad.host"); got != "notebook" {
		t.Fatalf("nomad.host = %q, want notebook", got)
	}

	laptop.CreateBranch("feature")
	out, err := execute(t, "-C", laptop.Dir, "sync")
	if err != nil {
		t.Fatalf("sync laptop: %v", err)
	}
	want := "notebook\n  refs/nomad/notebook/feature\n  refs/nomad/notebook/main\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("sync listing mismatch (-want +got):\n%s", diff)
	}

	out, err = execute(t, "-C", desktop.Dir, "sync", "--quiet", testutil.RemoteName)
	if err != nil {
		t.Fatalf("sync desktop: %v", err)
	}
	if out != "" {
		t.Errorf("quiet sync printed %q", out)
	}

	out, err = execute(t, "-C", desktop.Dir, "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	want = "desktop\n  refs/nomad/desktop/main\nnotebook\n  refs/nomad/notebook/feature\n  refs/nomad/notebook/main\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("ls mismatch (-want +got):\n%s", diff)
	}

	if _, err := execute(t, "-C", desktop.Dir, "purge", "--host", "notebook", "--dry-run"); err != nil {
		t.Fatalf("purge dry run: %v", err)
	}
	if got := len(remote.NomadRefs()); got != 3 {
		t.Fatalf("dry run changed the remote: %v", remote.NomadRefs())
	}

	if _, err := execute(t, "-C", desktop.Dir, "purge", "--host", "notebook"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if diff := cmp.Diff(testutil.Sorted("refs/nomad/alice/desktop/main"), remote.NomadRefs()); diff != "" {
		t.Errorf("remote refs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(testutil.Sorted("refs/nomad/desktop/main"), desktop.NomadRefs()); diff != "" {
		t.Errorf("desktop refs mismatch (-want +got):\n%s", diff)
	}
}
