package testutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRemoteAndClone(t *testing.T) {
	remote := NewRemote(t)

	if got := remote.NomadRefs(); len(got) != 0 {
		t.Fatalf("fresh remote has nomad refs: %v", got)
	}

	clone := remote.Clone("user0", "host0")
	if clone.Client.GitDir() == "" {
		t.Fatal("clone client has no git dir")
	}

	clone.CreateBranch("feature")
	branches := Git(t, clone.Dir, "for-each-ref", "--format=%(refname)", "refs/heads/")
	if diff := cmp.Diff("refs/heads/feature\nrefs/heads/main", branches); diff != "" {
		t.Errorf("branches mismatch (-want +got):\n%s", diff)
	}

	clone.DeleteBranch("feature")
	branches = Git(t, clone.Dir, "for-each-ref", "--format=%(refname)", "refs/heads/")
	if branches != "refs/heads/main" {
		t.Errorf("expected only main after delete, got %q", branches)
	}
}

func TestRefNames(t *testing.T) {
	c := &Clone{}
	c.Config.User = "user0"
	c.Config.Host = "host0"

	if got := c.LocalRef("main"); got != "refs/nomad/host0/main" {
		t.Errorf("LocalRef() = %q", got)
	}
	if got := c.RemoteRef("main"); got != "refs/nomad/user0/host0/main" {
		t.Errorf("RemoteRef() = %q", got)
	}
}
