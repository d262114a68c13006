// Package snapshot holds a point in time view of the refs nomad cares about
// in a local clone, and decides which mirrors should be pruned.
package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schaermu/gitnomad/internal/nomad"
)

// Snapshot is scoped to a single user: every mirror it holds belongs to that
// user. It is immutable once built.
type Snapshot struct {
	user          string
	localBranches map[string]struct{}
	mirrors       []nomad.Mirror
}

// New builds a snapshot. It panics if any mirror belongs to a user other
// than user.
func New(user string, localBranches []string, mirrors []nomad.Mirror) *Snapshot {
	for _, m := range mirrors {
		if m.User != user {
			panic(fmt.Sprintf("snapshot for user %q given mirror of user %q: %s", user, m.User, m.Ref.Name))
		}
	}

	branches := make(map[string]struct{}, len(localBranches))
	for _, b := range localBranches {
		branches[b] = struct{}{}
	}

	return &Snapshot{
		user:          user,
		localBranches: branches,
		mirrors:       append([]nomad.Mirror(nil), mirrors...),
	}
}

// FromRefs builds a snapshot from a single listing of local refs. Branches
// and local mirrors are picked out; everything else is ignored.
func FromRefs(user string, refs []nomad.Ref) *Snapshot {
	var branches []string
	var mirrors []nomad.Mirror

	for _, r := range refs {
		if name, ok := strings.CutPrefix(r.Name, nomad.BranchPrefix); ok {
			branches = append(branches, name)
			continue
		}
		if m, ok := nomad.FromLocalRef(user, r); ok {
			mirrors = append(mirrors, m)
		}
	}

	return New(user, branches, mirrors)
}

// User is the user this snapshot is scoped to.
func (s *Snapshot) User() string {
	return s.user
}

// HasBranch reports whether branch exists locally.
func (s *Snapshot) HasBranch(branch string) bool {
	_, ok := s.localBranches[branch]
	return ok
}

// LocalBranches returns the local branch names, sorted.
func (s *Snapshot) LocalBranches() []string {
	result := make([]string, 0, len(s.localBranches))
	for b := range s.localBranches {
		result = append(result, b)
	}
	sort.Strings(result)
	return result
}

// Mirrors returns the local mirrors in listing order.
func (s *Snapshot) Mirrors() []nomad.Mirror {
	return append([]nomad.Mirror(nil), s.mirrors...)
}

// PruneDeletedBranches finds mirrors that no longer have a source:
//
//   - mirrors owned by host whose local branch is gone are pruned locally
//     and remotely;
//   - mirrors of other hosts whose remote ref is gone are pruned locally.
//
// Results follow listing order.
func (s *Snapshot) PruneDeletedBranches(host string, remote nomad.RemoteSet) []Prune {
	var prune []Prune
	for _, m := range s.mirrors {
		if m.Host == host {
			if !s.HasBranch(m.Branch) {
				prune = append(prune, Prune{Kind: LocalAndRemote, Mirror: m})
			}
		} else if !remote.Contains(m.Triple()) {
			prune = append(prune, Prune{Kind: LocalOnly, Mirror: m})
		}
	}
	return prune
}

// PruneAll prunes every mirror from both sides.
func (s *Snapshot) PruneAll() []Prune {
	prune := make([]Prune, 0, len(s.mirrors))
	for _, m := range s.mirrors {
		prune = append(prune, Prune{Kind: LocalAndRemote, Mirror: m})
	}
	return prune
}

// PruneAllByHosts prunes every mirror of the given hosts from both sides.
func (s *Snapshot) PruneAllByHosts(hosts ...string) []Prune {
	wanted := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		wanted[h] = struct{}{}
	}

	var prune []Prune
	for _, m := range s.mirrors {
		if _, ok := wanted[m.Host]; ok {
			prune = append(prune, Prune{Kind: LocalAndRemote, Mirror: m})
		}
	}
	return prune
}

// HostMirrors is one group of the sorted listing.
type HostMirrors struct {
	Host    string
	Mirrors []nomad.Mirror
}

// SortedHostsAndBranches groups mirrors by host, sorted by host and then by
// branch within each host.
func (s *Snapshot) SortedHostsAndBranches() []HostMirrors {
	byHost := make(map[string][]nomad.Mirror)
	for _, m := range s.mirrors {
		byHost[m.Host] = append(byHost[m.Host], m)
	}

	result := make([]HostMirrors, 0, len(byHost))
	for host, mirrors := range byHost {
		sort.Slice(mirrors, func(i, j int) bool {
			return mirrors[i].Branch < mirrors[j].Branch
		})
		result = append(result, HostMirrors{Host: host, Mirrors: mirrors})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Host < result[j].Host
	})
	return result
}
