//go:build integration

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/schaermu/gitnomad/internal/git"
)

const (
	binaryName     = "git-nomad"
	defaultTimeout = 2 * time.Minute
)

// Harness builds the git-nomad binary once and runs it as a git subcommand,
// the way users invoke it.
type Harness struct {
	t      *testing.T
	binDir string
}

// NewHarness creates a new test harness
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	return &Harness{
		t:      t,
		binDir: t.TempDir(),
	}
}

// BuildBinary compiles cmd/git-nomad into the harness bin directory
func (h *Harness) BuildBinary(ctx context.Context) error {
	h.t.Helper()

	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("get project root: %w", err)
	}

	out := filepath.Join(h.binDir, binaryName)
	h.t.Logf("Building %s", out)

	cmd := exec.CommandContext(ctx, "go", "build", "-o", out, "./cmd/git-nomad")
	cmd.Dir = projectRoot
	cmd.Stdout = &testWriter{t: h.t, prefix: "[build] "}
	cmd.Stderr = &testWriter{t: h.t, prefix: "[build] "}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	return nil
}

// env returns the hermetic git environment with the bin directory first on
// PATH so that git finds the nomad subcommand.
func (h *Harness) env() []string {
	env := git.HermeticEnv()
	env = append(env, "PATH="+h.binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	env = append(env, "XDG_CONFIG_HOME="+h.binDir)
	return env
}

// Nomad runs `git nomad args...` in dir
func (h *Harness) Nomad(ctx context.Context, dir string, args ...string) (string, string, int, error) {
	h.t.Helper()

	cmd := exec.CommandContext(ctx, "git", append([]string{"nomad"}, args...)...)
	cmd.Dir = dir
	cmd.Env = h.env()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return "", "", 0, fmt.Errorf("exec failed: %w", err)
		}
	}

	return stdout.String(), stderr.String(), exitCode, nil
}

// MustNomad runs git nomad and fails the test if it returns non-zero
func (h *Harness) MustNomad(ctx context.Context, dir string, args ...string) string {
	h.t.Helper()
	stdout, stderr, exitCode, err := h.Nomad(ctx, dir, args...)
	if err != nil {
		h.t.Fatalf("exec failed: %v", err)
	}
	if exitCode != 0 {
		h.t.Fatalf("git nomad %s failed with exit code %d\nstdout: %s\nstderr: %s",
			strings.Join(args, " "), exitCode, stdout, stderr)
	}
	return stdout
}

// testWriter wraps test logging for command output
type testWriter struct {
	t      *testing.T
	prefix string
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if line != "" {
			w.t.Log(w.prefix + line)
		}
	}
	return len(p), nil
}

var _ io.Writer = (*testWriter)(nil)

// findProjectRoot walks up the directory tree from the current file to find go.mod
func findProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to get caller information")
	}

	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}
