// Package gitworker reads ref snapshots out of local git repositories and
// their remotes, feeding the branch-update review flow.
package gitworker

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Snapshot is a point-in-time view of a repository's refs.
type Snapshot struct {
	Refs map[string]string `json:"refs"`
	HEAD string            `json:"head,omitempty"`
}

// ListLocalHeads reads branch and tag refs plus the symbolic HEAD target out
// of a local repository (bare or not).
func ListLocalHeads(repoPath string) (Snapshot, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open repo: %w", err)
	}

	snap := Snapshot{Refs: make(map[string]string)}

	iter, err := repo.References()
	if err != nil {
		return Snapshot{}, fmt.Errorf("list refs: %w", err)
	}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		if name.IsBranch() || name.IsTag() {
			snap.Refs[name.String()] = ref.Hash().String()
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("walk refs: %w", err)
	}

	if head, err := repo.Reference(plumbing.HEAD, false); err == nil && head.Type() == plumbing.SymbolicReference {
		snap.HEAD = head.Target().String()
	}

	return snap, nil
}

// ListRemoteHeads lists the refs a remote currently advertises, without
// fetching any objects.
func ListRemoteHeads(remoteURL string) (Snapshot, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteURL},
	})
	refs, err := remote.List(&git.ListOptions{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("ls-remote %s: %w", remoteURL, err)
	}

	snap := Snapshot{Refs: make(map[string]string)}
	for _, ref := range refs {
		switch ref.Type() {
		case plumbing.HashReference:
			name := ref.Name()
			if name.IsBranch() || name.IsTag() {
				snap.Refs[name.String()] = ref.Hash().String()
			}
		case plumbing.SymbolicReference:
			if ref.Name() == plumbing.HEAD {
				snap.HEAD = ref.Target().String()
			}
		}
	}
	return snap, nil
}
