package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/schaermu/gitnomad/internal/git"
	"github.com/schaermu/gitnomad/internal/nomad"
	"github.com/schaermu/gitnomad/internal/snapshot"
)

// ErrNotInitialized is returned when a repository has no nomad identity.
var ErrNotInitialized = errors.New("nomad is not initialized in this repository (run `git nomad init`)")

// Engine runs the user facing workflows against a backend
type Engine struct {
	backend git.Backend
	logger  *slog.Logger
	dryRun  bool
}

// NewEngine creates a new engine. In dry-run mode prune decisions are logged
// instead of applied.
func NewEngine(backend git.Backend, logger *slog.Logger, dryRun bool) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		backend: backend,
		logger:  logger,
		dryRun:  dryRun,
	}
}

// Init stores the identity of this clone.
func (e *Engine) Init(ctx context.Context, cfg nomad.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid identity: %w", err)
	}
	if err := e.backend.WriteConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	e.logger.Info("initialized", "user", cfg.User, "host", cfg.Host)
	return nil
}

// ResolveConfig reads the identity stored in the repository.
func (e *Engine) ResolveConfig(ctx context.Context) (nomad.Config, error) {
	cfg, err := e.backend.ReadConfig(ctx)
	if err != nil {
		return nomad.Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if cfg == nil {
		return nomad.Config{}, ErrNotInitialized
	}
	return *cfg, nil
}

// Sync mirrors local branches to the remote, pulls in the mirrors of the
// user's other hosts and prunes mirrors whose source is gone. The steps run
// in a fixed order; each one depends on the state the previous one left.
func (e *Engine) Sync(ctx context.Context, cfg nomad.Config, remote string) error {
	e.logger.Info("starting sync", "user", cfg.User, "host", cfg.Host, "remote", remote)

	e.logger.Info("pushing local branches", "remote", remote)
	if err := e.backend.Push(ctx, remote, []string{nomad.PushRefspec(cfg.User, cfg.Host)}); err != nil {
		return fmt.Errorf("failed to push branches: %w", err)
	}

	if err := e.fetch(ctx, cfg.User, remote); err != nil {
		return err
	}

	// The output of fetch is porcelain, so list the remote separately.
	remoteSet, err := e.remoteMirrors(ctx, cfg.User, remote)
	if err != nil {
		return err
	}

	snap, err := e.snapshot(ctx, cfg.User)
	if err != nil {
		return err
	}

	prune := reconcile(snap.PruneDeletedBranches(cfg.Host, remoteSet), remoteSet)
	if err := e.ApplyPrune(ctx, remote, prune); err != nil {
		return err
	}

	e.logger.Info("sync completed successfully")
	return nil
}

// reconcile downgrades LocalAndRemote decisions whose remote ref is already
// gone, since git refuses to delete a ref the remote does not have. This is
// what lets a sync interrupted between the remote and local deletes converge.
func reconcile(prune []snapshot.Prune, remote nomad.RemoteSet) []snapshot.Prune {
	result := make([]snapshot.Prune, 0, len(prune))
	for _, p := range prune {
		if p.Kind == snapshot.LocalAndRemote && !remote.Contains(p.Mirror.Triple()) {
			p.Kind = snapshot.LocalOnly
		}
		result = append(result, p)
	}
	return result
}

// List writes every local mirror grouped by host:
//
//	host0
//	  refs/nomad/host0/main
func (e *Engine) List(ctx context.Context, user string, w io.Writer) error {
	snap, err := e.snapshot(ctx, user)
	if err != nil {
		return err
	}

	for _, group := range snap.SortedHostsAndBranches() {
		if _, err := fmt.Fprintln(w, group.Host); err != nil {
			return err
		}
		for _, m := range group.Mirrors {
			if _, err := fmt.Fprintf(w, "  %s\n", m.Ref.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Purge deletes the mirrors chosen by selector from the remote and the local
// clone. It fetches first so that mirrors this clone has not seen yet are
// purged too. Selected mirrors already gone from the remote are only
// deleted locally.
func (e *Engine) Purge(ctx context.Context, user, remote string, selector Selector) error {
	e.logger.Info("starting purge", "user", user, "remote", remote, "dry_run", e.dryRun)

	if err := e.fetch(ctx, user, remote); err != nil {
		return err
	}

	remoteSet, err := e.remoteMirrors(ctx, user, remote)
	if err != nil {
		return err
	}

	snap, err := e.snapshot(ctx, user)
	if err != nil {
		return err
	}

	if err := e.ApplyPrune(ctx, remote, reconcile(selector(snap), remoteSet)); err != nil {
		return err
	}

	e.logger.Info("purge completed successfully")
	return nil
}

// ApplyPrune deletes mirrors from the remote with a single push, then
// deletes the local refs one at a time. An interruption between the two
// leaves local refs whose remote is gone, which the next sync prunes.
// Deleting locally first would let the next fetch resurrect them.
func (e *Engine) ApplyPrune(ctx context.Context, remote string, prune []snapshot.Prune) error {
	plan := buildPlan(prune)

	e.logger.Info("prune plan",
		"remote", len(plan.RemoteDeletes),
		"local", len(plan.LocalDeletes))

	if e.dryRun {
		e.logPlanDetails(plan)
		e.logger.Info("dry-run complete, no changes applied")
		return nil
	}

	if len(plan.RemoteDeletes) > 0 {
		e.logger.Info("pruning remote refs", "remote", remote, "count", len(plan.RemoteDeletes))
		if err := e.backend.Push(ctx, remote, plan.RemoteDeletes); err != nil {
			return fmt.Errorf("failed to prune remote refs: %w", err)
		}
	}

	for _, ref := range plan.LocalDeletes {
		e.logger.Info("deleting local ref", "ref", ref.Name, "was", ref.CommitID)
		if err := e.backend.DeleteLocalRef(ctx, ref); err != nil {
			return fmt.Errorf("failed to delete %s: %w", ref.Name, err)
		}
	}

	return nil
}

func (e *Engine) fetch(ctx context.Context, user, remote string) error {
	e.logger.Info("fetching mirrors", "remote", remote)
	if err := e.backend.Fetch(ctx, remote, []string{nomad.FetchRefspec(user)}); err != nil {
		return fmt.Errorf("failed to fetch mirrors: %w", err)
	}
	return nil
}

// remoteMirrors lists the mirrors of user currently on the remote.
func (e *Engine) remoteMirrors(ctx context.Context, user, remote string) (nomad.RemoteSet, error) {
	refs, err := e.backend.ListRemoteRefs(ctx, remote, []string{nomad.ListRefspec(user)})
	if err != nil {
		return nil, fmt.Errorf("failed to list remote mirrors: %w", err)
	}

	set := nomad.RemoteSet{}
	for _, ref := range refs {
		m, ok := nomad.FromRemoteRef(ref)
		if !ok {
			e.logger.Debug("ignoring remote ref outside the nomad layout", "ref", ref.Name)
			continue
		}
		set.Add(m.Triple())
	}
	e.logger.Debug("remote mirrors", "count", len(set))
	return set, nil
}

func (e *Engine) snapshot(ctx context.Context, user string) (*snapshot.Snapshot, error) {
	refs, err := e.backend.ListRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list local refs: %w", err)
	}
	snap := snapshot.FromRefs(user, refs)
	e.logger.Debug("snapshot",
		"branches", len(snap.LocalBranches()),
		"mirrors", len(snap.Mirrors()))
	return snap, nil
}

// logPlanDetails logs detailed plan information for dry-run
func (e *Engine) logPlanDetails(plan *Plan) {
	for _, refspec := range plan.RemoteDeletes {
		e.logger.Info("[dry-run] would push", "refspec", refspec)
	}
	for _, ref := range plan.LocalDeletes {
		e.logger.Info("[dry-run] would delete", "ref", ref.Name, "was", ref.CommitID)
	}
}
