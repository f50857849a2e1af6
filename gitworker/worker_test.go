package gitworker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/Pleb5/flotilla-budabit-sub002/refdiff"
)

func initRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("README"); err != nil {
		t.Fatal(err)
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(1700000000, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return dir, hash.String()
}

func TestListLocalHeads(t *testing.T) {
	dir, commit := initRepo(t)

	snap, err := ListLocalHeads(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Refs) != 1 {
		t.Fatalf("got %d refs, want 1: %v", len(snap.Refs), snap.Refs)
	}
	if snap.HEAD == "" {
		t.Fatal("symbolic HEAD not captured")
	}
	if got := snap.Refs[snap.HEAD]; got != commit {
		t.Fatalf("HEAD branch = %q, want %q", got, commit)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.json")

	// Missing cache reads as an empty snapshot.
	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Refs) != 0 {
		t.Fatalf("fresh snapshot has refs: %v", snap.Refs)
	}

	snap.Refs["refs/heads/main"] = "aaa111"
	snap.HEAD = "refs/heads/main"
	if err := SaveSnapshot(path, snap); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Refs["refs/heads/main"] != "aaa111" || loaded.HEAD != "refs/heads/main" {
		t.Fatalf("round trip lost data: %+v", loaded)
	}
}

func TestUpdateKeyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.last-update")

	// Missing key reads as empty, which matches no real key.
	key, err := LoadUpdateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		t.Fatalf("fresh key = %q, want empty", key)
	}

	if err := SaveUpdateKey(path, "repo:main:updated:aaa:bbb"); err != nil {
		t.Fatal(err)
	}
	key, err = LoadUpdateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	if key != "repo:main:updated:aaa:bbb" {
		t.Fatalf("key = %q", key)
	}

	// Overwrite replaces the whole key, no partial content survives.
	if err := SaveUpdateKey(path, "x"); err != nil {
		t.Fatal(err)
	}
	if key, _ = LoadUpdateKey(path); key != "x" {
		t.Fatalf("key after overwrite = %q", key)
	}
}

func TestReviewUpdate(t *testing.T) {
	dir, commit := initRepo(t)
	cachePath := filepath.Join(t.TempDir(), "repo.json")

	// First review: everything is an addition.
	update, current, err := ReviewUpdate("my-repo", cachePath, dir)
	if err != nil {
		t.Fatal(err)
	}
	if update.RepoID != "my-repo" {
		t.Fatalf("repo id = %q", update.RepoID)
	}
	if len(update.Updates) != 1 || update.Updates[0].Change != refdiff.ChangeAdded {
		t.Fatalf("first review = %+v, want one addition", update.Updates)
	}
	if update.Updates[0].NewOid != commit {
		t.Fatalf("new oid = %q, want %q", update.Updates[0].NewOid, commit)
	}

	// After caching the current snapshot the repo reads as unchanged.
	if err := SaveSnapshot(cachePath, current); err != nil {
		t.Fatal(err)
	}
	update, _, err = ReviewUpdate("my-repo", cachePath, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(update.Updates) != 0 {
		t.Fatalf("unchanged repo produced updates: %+v", update.Updates)
	}
}
