package sync

import (
	"github.com/schaermu/gitnomad/internal/nomad"
	"github.com/schaermu/gitnomad/internal/snapshot"
)

// Selector chooses which mirrors a purge removes.
type Selector func(*snapshot.Snapshot) []snapshot.Prune

// All selects every mirror of the user.
func All() Selector {
	return (*snapshot.Snapshot).PruneAll
}

// ByHosts selects every mirror of the given hosts.
func ByHosts(hosts ...string) Selector {
	return func(s *snapshot.Snapshot) []snapshot.Prune {
		return s.PruneAllByHosts(hosts...)
	}
}

// Plan is the set of deletions a prune turns into
type Plan struct {
	RemoteDeletes []string    // delete refspecs, pushed together
	LocalDeletes  []nomad.Ref // conditional local deletes, in order
}

// buildPlan sorts prune decisions and splits them into the two sides.
func buildPlan(prune []snapshot.Prune) *Plan {
	sorted := append([]snapshot.Prune(nil), prune...)
	snapshot.Sort(sorted)

	plan := &Plan{
		RemoteDeletes: make([]string, 0),
		LocalDeletes:  make([]nomad.Ref, 0, len(sorted)),
	}
	for _, p := range sorted {
		if p.Kind == snapshot.LocalAndRemote {
			plan.RemoteDeletes = append(plan.RemoteDeletes, nomad.DeleteRefspec(p.Mirror))
		}
		plan.LocalDeletes = append(plan.LocalDeletes, p.Mirror.Ref)
	}
	return plan
}
