// Package nomad defines the identifiers nomad works with and the naming scheme
// that carves a private namespace out of the git reference hierarchy.
//
// Remote repositories hold one subtree per user and host:
//
//	refs/nomad/{user}/{host}/{branch}
//
// Local clones belong to a single user, so the user segment is elided:
//
//	refs/nomad/{host}/{branch}
package nomad

import (
	"fmt"
	"strings"
)

// Prefix is the name nomad claims for itself, both as the `refs/{Prefix}`
// hierarchy and as the `{Prefix}.*` section in git config.
const Prefix = "nomad"

// BranchPrefix is where git keeps local branches.
const BranchPrefix = "refs/heads/"

// Config is the identity of a clone: the user owning the namespace and the
// host disambiguating workstations within it.
type Config struct {
	User string
	Host string
}

// Validate rejects identities that cannot be encoded as a single ref segment.
func (c Config) Validate() error {
	if err := validateSegment("user", c.User); err != nil {
		return err
	}
	return validateSegment("host", c.Host)
}

func validateSegment(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", kind)
	}
	if strings.Contains(value, "/") {
		return fmt.Errorf("%s %q must not contain '/'", kind, value)
	}
	if strings.TrimSpace(value) != value {
		return fmt.Errorf("%s %q must not have leading or trailing whitespace", kind, value)
	}
	return nil
}

// Ref is a git reference as reported by a listing command.
type Ref struct {
	Name     string
	CommitID string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s (%s)", r.Name, r.CommitID)
}

// Triple identifies a mirror independently of where it lives.
type Triple struct {
	User   string
	Host   string
	Branch string
}

// Mirror is a ref inside the nomad namespace tracking the tip of Branch on
// Host for User. Ref.Name is the local or remote encoding of the triple,
// depending on where the mirror was read from.
type Mirror struct {
	User   string
	Host   string
	Branch string
	Ref    Ref
}

// Triple drops the ref and keeps the identifying fields.
func (m Mirror) Triple() Triple {
	return Triple{User: m.User, Host: m.Host, Branch: m.Branch}
}

// LocalRefName is the name this mirror has in a local clone.
func (m Mirror) LocalRefName() string {
	return LocalRefName(m.Host, m.Branch)
}

// RemoteRefName is the name this mirror has in the remote.
func (m Mirror) RemoteRefName() string {
	return RemoteRefName(m.User, m.Host, m.Branch)
}

// RemoteSet is the set of mirrors known to exist on a remote.
type RemoteSet map[Triple]struct{}

// NewRemoteSet collects the triples of the given mirrors.
func NewRemoteSet(mirrors ...Mirror) RemoteSet {
	set := make(RemoteSet, len(mirrors))
	for _, m := range mirrors {
		set.Add(m.Triple())
	}
	return set
}

// Add inserts a triple.
func (s RemoteSet) Add(t Triple) {
	s[t] = struct{}{}
}

// Contains reports whether the triple is present.
func (s RemoteSet) Contains(t Triple) bool {
	_, ok := s[t]
	return ok
}

// ConfigKey is where a nomad setting lives in git config, e.g. `nomad.user`.
func ConfigKey(key string) string {
	return Prefix + "." + key
}

// LocalRefName encodes a mirror for a local clone.
func LocalRefName(host, branch string) string {
	return fmt.Sprintf("refs/%s/%s/%s", Prefix, host, branch)
}

// RemoteRefName encodes a mirror for the remote.
func RemoteRefName(user, host, branch string) string {
	return fmt.Sprintf("refs/%s/%s/%s/%s", Prefix, user, host, branch)
}

// ListRefspec matches every mirror of user on the remote.
func ListRefspec(user string) string {
	return fmt.Sprintf("refs/%s/%s/*", Prefix, user)
}

// FetchRefspec force-fetches every remote mirror of user into the local
// namespace, eliding the user segment:
//
//	refs/nomad/rraval/apollo/main -> refs/nomad/apollo/main
func FetchRefspec(user string) string {
	return fmt.Sprintf("+%s:refs/%s/*", ListRefspec(user), Prefix)
}

// PushRefspec force-pushes every local branch into the subtree owned by
// user and host:
//
//	refs/heads/feature -> refs/nomad/rraval/boreas/feature
func PushRefspec(user, host string) string {
	return fmt.Sprintf("+%s*:refs/%s/%s/%s/*", BranchPrefix, Prefix, user, host)
}

// DeleteRefspec removes the remote copy of a mirror when pushed.
func DeleteRefspec(m Mirror) string {
	return ":" + m.RemoteRefName()
}

// FromLocalRef decodes a ref from a local clone. The user is not part of the
// local encoding and is taken from the caller. ok is false when ref is not a
// local mirror, in which case the caller still owns ref untouched.
func FromLocalRef(user string, ref Ref) (m Mirror, ok bool) {
	parts := strings.Split(ref.Name, "/")
	if len(parts) != 4 || parts[0] != "refs" || parts[1] != Prefix {
		return Mirror{}, false
	}
	return Mirror{
		User:   user,
		Host:   parts[2],
		Branch: parts[3],
		Ref:    ref,
	}, true
}

// FromRemoteRef decodes a ref listed on the remote.
func FromRemoteRef(ref Ref) (m Mirror, ok bool) {
	parts := strings.Split(ref.Name, "/")
	if len(parts) != 5 || parts[0] != "refs" || parts[1] != Prefix {
		return Mirror{}, false
	}
	return Mirror{
		User:   parts[2],
		Host:   parts[3],
		Branch: parts[4],
		Ref:    ref,
	}, true
}
