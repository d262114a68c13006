package snapshot

import (
	"sort"

	"github.com/schaermu/gitnomad/internal/nomad"
)

// PruneKind says where a mirror has to be removed from.
type PruneKind int

const (
	// LocalOnly removes the local ref; the remote ref is already gone.
	LocalOnly PruneKind = iota
	// LocalAndRemote removes the remote ref and then the local ref.
	LocalAndRemote
)

func (k PruneKind) String() string {
	switch k {
	case LocalOnly:
		return "local"
	case LocalAndRemote:
		return "local+remote"
	default:
		return "unknown"
	}
}

// Prune is a decision to delete one mirror.
type Prune struct {
	Kind   PruneKind
	Mirror nomad.Mirror
}

// Sort orders prune decisions by local ref name.
func Sort(prune []Prune) {
	sort.SliceStable(prune, func(i, j int) bool {
		return prune[i].Mirror.Ref.Name < prune[j].Mirror.Ref.Name
	})
}
