package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/schaermu/gitnomad/internal/nomad"
)

// Backend is everything nomad needs from a repository. The default
// implementation shells out to a git binary; the interface keeps workflows
// testable without one.
type Backend interface {
	// ReadConfig returns the stored identity, nil when none is stored.
	ReadConfig(ctx context.Context) (*nomad.Config, error)
	// WriteConfig replaces any stored identity.
	WriteConfig(ctx context.Context, cfg nomad.Config) error
	// ListRefs lists every local ref except HEAD.
	ListRefs(ctx context.Context) ([]nomad.Ref, error)
	// Fetch fetches refspecs from remote. refspecs must not be empty.
	Fetch(ctx context.Context, remote string, refspecs []string) error
	// Push pushes refspecs to remote. refspecs must not be empty.
	Push(ctx context.Context, remote string, refspecs []string) error
	// ListRemoteRefs lists refs on remote matching refspecs, which must not be empty.
	ListRemoteRefs(ctx context.Context, remote string, refspecs []string) ([]nomad.Ref, error)
	// DeleteLocalRef deletes ref only if it still points at ref.CommitID.
	DeleteLocalRef(ctx context.Context, ref nomad.Ref) error
}

// run classifies invocations for logging.
type run int

const (
	// trivial runs are local reads that the user rarely cares about.
	trivial run = iota
	// notable runs touch the network or mutate refs.
	notable
)

// ShellClient implements Backend by invoking a git binary with a hermetic
// environment and an explicit --git-dir.
type ShellClient struct {
	name   string
	gitDir string
	logger *slog.Logger
}

// NewShellClient resolves the repository containing dir (searching parent
// directories the way git does) and returns a client bound to its absolute
// git directory. name is the git binary, looked up on PATH when not absolute.
func NewShellClient(ctx context.Context, name, dir string, logger *slog.Logger) (*ShellClient, error) {
	if name == "" {
		name = "git"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &ShellClient{name: name, logger: logger}

	cmd := exec.CommandContext(ctx, name, "rev-parse", "--absolute-git-dir")
	cmd.Env = HermeticEnv()
	cmd.Dir = dir
	out, err := c.runCommand(trivial, "resolving .git directory", cmd)
	if err != nil {
		return nil, err
	}
	gitDir, err := LinesOf(out).One()
	if err != nil {
		return nil, fmt.Errorf("git rev-parse --absolute-git-dir: %w", err)
	}
	c.gitDir = gitDir
	return c, nil
}

// GitDir returns the absolute path of the repository storage directory.
func (c *ShellClient) GitDir() string {
	return c.gitDir
}

// command builds a git invocation that does not depend on the working
// directory of the current process.
func (c *ShellClient) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.name, insertGitFlags(args, "--git-dir", c.gitDir)...)
	cmd.Env = HermeticEnv()
	return cmd
}

// insertGitFlags puts global flags ahead of the subcommand.
func insertGitFlags(args []string, flags ...string) []string {
	result := make([]string, 0, len(args)+len(flags))
	result = append(result, flags...)
	result = append(result, args...)
	return result
}

func (c *ShellClient) run(ctx context.Context, kind run, description string, args ...string) (string, error) {
	return c.runCommand(kind, description, c.command(ctx, args...))
}

// runCommand executes cmd and returns its stdout. On failure the error
// carries the exit code and stderr verbatim.
func (c *ShellClient) runCommand(kind run, description string, cmd *exec.Cmd) (string, error) {
	if kind == notable {
		c.logger.Info(description)
	} else {
		c.logger.Debug(description)
	}
	c.logger.Debug("running git", "args", cmd.Args[1:])

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cerr := &CommandError{
			Args:     cmd.Args,
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cerr.ExitCode = exitErr.ExitCode()
		}
		return "", cerr
	}

	if stdout.Len() > 0 {
		c.logger.Debug("git output", "stdout", stdout.String())
	}
	return stdout.String(), nil
}

// getConfig reads a single value from the repository's local config. User and
// system config are never consulted.
func (c *ShellClient) getConfig(ctx context.Context, key string) (string, bool, error) {
	// --default keeps git from exiting non-zero when the key is missing.
	out, err := c.run(ctx, trivial, "get config "+key,
		"config", "--local", "--default", "", "--get", key)
	if err != nil {
		return "", false, err
	}
	return LinesOf(out).ZeroOrOne()
}

func (c *ShellClient) setConfig(ctx context.Context, key, value string) error {
	_, err := c.run(ctx, trivial, fmt.Sprintf("set config %s = %s", key, value),
		"config", "--local", "--replace-all", key, value)
	return err
}

// ReadConfig implements Backend.
func (c *ShellClient) ReadConfig(ctx context.Context) (*nomad.Config, error) {
	user, hasUser, err := c.getConfig(ctx, nomad.ConfigKey("user"))
	if err != nil {
		return nil, err
	}
	host, hasHost, err := c.getConfig(ctx, nomad.ConfigKey("host"))
	if err != nil {
		return nil, err
	}

	switch {
	case hasUser && hasHost:
		return &nomad.Config{User: user, Host: host}, nil
	case !hasUser && !hasHost:
		return nil, nil
	default:
		return nil, &PartialConfigError{User: user, Host: host}
	}
}

// WriteConfig implements Backend.
func (c *ShellClient) WriteConfig(ctx context.Context, cfg nomad.Config) error {
	if err := c.setConfig(ctx, nomad.ConfigKey("user"), cfg.User); err != nil {
		return err
	}
	return c.setConfig(ctx, nomad.ConfigKey("host"), cfg.Host)
}

// ListRefs implements Backend.
func (c *ShellClient) ListRefs(ctx context.Context) ([]nomad.Ref, error) {
	out, err := c.run(ctx, trivial, "listing local refs", "show-ref")
	if err != nil {
		// show-ref exits 1 without output when the repository has no refs.
		var cerr *CommandError
		if errors.As(err, &cerr) && cerr.ExitCode == 1 && cerr.Stdout == "" && cerr.Stderr == "" {
			return nil, nil
		}
		return nil, err
	}
	return parseLines(out, ParseShowRefLine)
}

// GetRef looks up a single local ref by its full name.
func (c *ShellClient) GetRef(ctx context.Context, name string) (nomad.Ref, error) {
	out, err := c.run(ctx, trivial, "get ref "+name, "show-ref", "--verify", name)
	if err != nil {
		return nomad.Ref{}, err
	}
	line, err := LinesOf(out).One()
	if err != nil {
		return nomad.Ref{}, err
	}
	return ParseShowRefLine(line)
}

// Fetch implements Backend.
func (c *ShellClient) Fetch(ctx context.Context, remote string, refspecs []string) error {
	mustHaveRefspecs("fetch", refspecs)
	args := append([]string{"fetch", remote}, refspecs...)
	_, err := c.run(ctx, notable, "fetching from "+remote, args...)
	return err
}

// Push implements Backend. Client side hooks are bypassed.
func (c *ShellClient) Push(ctx context.Context, remote string, refspecs []string) error {
	mustHaveRefspecs("push", refspecs)
	args := append([]string{"push", "--no-verify", remote}, refspecs...)
	_, err := c.run(ctx, notable, "pushing to "+remote, args...)
	return err
}

// ListRemoteRefs implements Backend.
func (c *ShellClient) ListRemoteRefs(ctx context.Context, remote string, refspecs []string) ([]nomad.Ref, error) {
	mustHaveRefspecs("ls-remote", refspecs)
	args := append([]string{"ls-remote", remote}, refspecs...)
	out, err := c.run(ctx, notable, "listing refs at "+remote, args...)
	if err != nil {
		return nil, err
	}
	return parseLines(out, ParseLsRemoteLine)
}

// DeleteLocalRef implements Backend. Remote refs are deleted by pushing
// delete refspecs instead.
func (c *ShellClient) DeleteLocalRef(ctx context.Context, ref nomad.Ref) error {
	_, err := c.run(ctx, notable, fmt.Sprintf("deleting %s (was %s)", ref.Name, ref.CommitID),
		"update-ref", "-d", ref.Name, ref.CommitID)
	return err
}

// mustHaveRefspecs guards against git falling back to the user's configured
// default refspecs, which would reach far outside the nomad namespace.
func mustHaveRefspecs(op string, refspecs []string) {
	if len(refspecs) == 0 {
		panic(fmt.Sprintf("git %s called without refspecs", op))
	}
}

func parseLines(out string, parse func(string) (nomad.Ref, error)) ([]nomad.Ref, error) {
	var refs []nomad.Ref
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		ref, err := parse(line)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
