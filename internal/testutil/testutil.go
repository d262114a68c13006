// Package testutil builds throwaway repositories for tests: a bare remote and
// any number of clones, each configured as a nomad host.
package testutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/schaermu/gitnomad/internal/git"
	"github.com/schaermu/gitnomad/internal/nomad"
)

// InitialBranch is the branch every fixture remote starts with.
const InitialBranch = "main"

// RemoteName is what clones call the fixture remote.
const RemoteName = "origin"

// RequireGit skips the test when no git binary is available.
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not found on PATH")
	}
}

// DiscardLogger is a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Git runs git in dir with the same hermetic environment nomad uses and
// returns trimmed stdout.
func Git(t testing.TB, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = git.HermeticEnv()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(stdout.String())
}

// InitRepo creates a non-bare repository with a single empty commit on
// InitialBranch.
func InitRepo(t testing.TB, dir string) {
	t.Helper()
	Git(t, "", "init", "--initial-branch", InitialBranch, dir)
	Git(t, dir, "commit", "--allow-empty", "-m", "initial commit")
}

// Remote is a bare repository shared by clones.
type Remote struct {
	t   testing.TB
	Dir string
}

// NewRemote creates a bare remote seeded with one commit on InitialBranch.
func NewRemote(t testing.TB) *Remote {
	t.Helper()
	RequireGit(t)

	root := t.TempDir()
	dir := filepath.Join(root, "remote.git")
	Git(t, "", "init", "--bare", "--initial-branch", InitialBranch, dir)

	seed := filepath.Join(root, "seed")
	InitRepo(t, seed)
	Git(t, seed, "push", dir, InitialBranch)

	return &Remote{t: t, Dir: dir}
}

// NomadRefs lists every ref under refs/nomad in the remote, sorted.
func (r *Remote) NomadRefs() []string {
	r.t.Helper()
	return listRefs(r.t, r.Dir, "refs/"+nomad.Prefix+"/")
}

// Clone is a working clone of a Remote configured as one nomad host.
type Clone struct {
	t      testing.TB
	Dir    string
	Config nomad.Config
	Client *git.ShellClient
}

// Clone creates a new clone with the given identity written to its config.
func (r *Remote) Clone(user, host string) *Clone {
	r.t.Helper()

	dir := filepath.Join(r.t.TempDir(), host)
	Git(r.t, "", "clone", r.Dir, dir)

	client, err := git.NewShellClient(context.Background(), "git", dir, DiscardLogger())
	if err != nil {
		r.t.Fatalf("NewShellClient(%s): %v", dir, err)
	}

	cfg := nomad.Config{User: user, Host: host}
	if err := client.WriteConfig(context.Background(), cfg); err != nil {
		r.t.Fatalf("WriteConfig(%+v): %v", cfg, err)
	}

	return &Clone{t: r.t, Dir: dir, Config: cfg, Client: client}
}

// CreateBranch creates a branch at HEAD without checking it out.
func (c *Clone) CreateBranch(name string) {
	c.t.Helper()
	Git(c.t, c.Dir, "branch", name)
}

// DeleteBranch force deletes a branch.
func (c *Clone) DeleteBranch(name string) {
	c.t.Helper()
	Git(c.t, c.Dir, "branch", "-D", name)
}

// Commit adds an empty commit to the current branch.
func (c *Clone) Commit(msg string) {
	c.t.Helper()
	Git(c.t, c.Dir, "commit", "--allow-empty", "-m", msg)
}

// NomadRefs lists every ref under refs/nomad in the clone, sorted.
func (c *Clone) NomadRefs() []string {
	c.t.Helper()
	return listRefs(c.t, c.Dir, "refs/"+nomad.Prefix+"/")
}

// LocalRef is the name the mirror of branch on this host has in any clone.
func (c *Clone) LocalRef(branch string) string {
	return nomad.LocalRefName(c.Config.Host, branch)
}

// RemoteRef is the name the mirror of branch on this host has in the remote.
func (c *Clone) RemoteRef(branch string) string {
	return nomad.RemoteRefName(c.Config.User, c.Config.Host, branch)
}

func listRefs(t testing.TB, dir, prefix string) []string {
	t.Helper()
	out := Git(t, dir, "for-each-ref", "--format=%(refname)", prefix)
	if out == "" {
		return []string{}
	}
	refs := strings.Split(out, "\n")
	sort.Strings(refs)
	return refs
}

// Sorted returns a sorted copy of names, for comparing against NomadRefs.
func Sorted(names ...string) []string {
	result := append([]string{}, names...)
	sort.Strings(result)
	return result
}
