package gitworker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/Pleb5/flotilla-budabit-sub002/refdiff"
)

// LoadSnapshot reads a cached ref snapshot. A missing file is an empty
// snapshot, not an error: the first review of a repo diffs against nothing.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{Refs: make(map[string]string)}, nil
		}
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Refs == nil {
		snap.Refs = make(map[string]string)
	}
	return snap, nil
}

// SaveSnapshot writes a snapshot atomically so a crash mid-write never
// leaves a truncated cache behind.
func SaveSnapshot(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadUpdateKey reads the dedupe key of the last published update. A missing
// file reads as "", which never matches a real key.
func LoadUpdateKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read update key: %w", err)
	}
	return string(data), nil
}

// SaveUpdateKey records the dedupe key atomically; a crash mid-write must not
// leave a key claiming an update was published when it was not.
func SaveUpdateKey(path, key string) error {
	if err := atomic.WriteFile(path, strings.NewReader(key)); err != nil {
		return fmt.Errorf("write update key: %w", err)
	}
	return nil
}

// ReviewUpdate diffs the cached snapshot against the repository's current
// local refs, producing the changeset shown for confirmation before a new
// state event is published.
func ReviewUpdate(repoID, cachePath, repoPath string) (refdiff.RepoUpdate, Snapshot, error) {
	cached, err := LoadSnapshot(cachePath)
	if err != nil {
		return refdiff.RepoUpdate{}, Snapshot{}, err
	}
	current, err := ListLocalHeads(repoPath)
	if err != nil {
		return refdiff.RepoUpdate{}, Snapshot{}, err
	}
	return refdiff.RepoUpdate{
		RepoID:  repoID,
		Updates: refdiff.DiffBranchHeads(cached.Refs, current.Refs),
	}, current, nil
}
