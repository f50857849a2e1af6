package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/Pleb5/flotilla-budabit-sub002/daemon"
	"github.com/Pleb5/flotilla-budabit-sub002/gitworker"
	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
	"github.com/Pleb5/flotilla-budabit-sub002/refdiff"
)

func cmdAnnounce(ctx *daemon.Context, args []string) {
	flags := pflag.NewFlagSet("announce", pflag.ExitOnError)
	name := flags.String("name", "", "human-readable project name")
	description := flags.String("description", "", "project description")
	cloneURLs := flags.StringSlice("clone", nil, "clone URL (repeatable)")
	maintainers := flags.StringSlice("maintainer", nil, "maintainer pubkey (repeatable)")
	euc := flags.String("euc", "", "earliest-unique-commit fingerprint")
	flags.Parse(args)

	if flags.NArg() < 1 {
		log.Fatal("announce: missing repository identifier")
	}
	identifier := flags.Arg(0)

	event := protocol.BuildAnnouncementEvent(
		identifier, *name, *description,
		ctx.Cfg.Relays, *cloneURLs, *maintainers, *euc,
	)

	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctx.Pool.Publish(pubCtx, event); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("announced repository %q\n", identifier)
}

func cmdState(ctx *daemon.Context, args []string) {
	flags := pflag.NewFlagSet("state", pflag.ExitOnError)
	yes := flags.Bool("yes", false, "publish without confirmation")
	flags.Parse(args)

	if flags.NArg() < 2 {
		log.Fatal("state: need <identifier> <repo-path>")
	}
	identifier := flags.Arg(0)
	repoPath := flags.Arg(1)

	if err := os.MkdirAll(ctx.Cfg.SnapshotDir, 0o700); err != nil {
		log.Fatal(err)
	}
	cachePath := filepath.Join(ctx.Cfg.SnapshotDir, identifier+".json")

	update, current, err := gitworker.ReviewUpdate(identifier, cachePath, repoPath)
	if err != nil {
		log.Fatal(err)
	}
	if len(update.Updates) == 0 {
		fmt.Println("refs unchanged, nothing to publish")
		return
	}

	// Identical change batches collapse to one publish attempt.
	dedupeKey := refdiff.BuildUpdateDedupeKey([]refdiff.RepoUpdate{update})
	keyPath := filepath.Join(ctx.Cfg.SnapshotDir, identifier+".last-update")
	previous, err := gitworker.LoadUpdateKey(keyPath)
	if err != nil {
		log.Fatal(err)
	}
	if previous == dedupeKey {
		fmt.Println("this exact update was already published, skipping")
		return
	}

	printUpdate(update)
	if !*yes && !confirm("publish this state event?") {
		fmt.Println("aborted")
		return
	}

	event := protocol.BuildStateEvent(identifier, current.Refs, current.HEAD)
	addr := protocol.Address{
		Kind:       protocol.KindRepoState,
		PubKey:     ctx.Cfg.PubKey,
		Identifier: identifier,
	}
	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctx.PublishState(pubCtx, addr, event); err != nil {
		log.Fatal(err)
	}
	if err := gitworker.SaveSnapshot(cachePath, current); err != nil {
		log.Fatal(err)
	}
	if err := gitworker.SaveUpdateKey(keyPath, dedupeKey); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("published state for %q (%d changes)\n", identifier, len(update.Updates))
}

func cmdRefs(ctx *daemon.Context, args []string) {
	if len(args) < 1 {
		log.Fatal("refs: missing repository address")
	}
	addr, ok := protocol.ParseAddress(args[0])
	if !ok {
		log.Fatalf("refs: invalid repository address %q", args[0])
	}

	merged, maintainers := ctx.MergedRefs(addr)
	fmt.Printf("maintainers: %s\n", strings.Join(maintainers, ", "))
	if merged.HEAD != "" {
		fmt.Printf("HEAD -> %s\n", merged.HEAD)
	}

	names := make([]string, 0, len(merged.Refs))
	for name := range merged.Refs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		source := merged.Sources[name]
		fmt.Printf("%s  %s  (from %s at %d)\n",
			merged.Refs[name], name, shortKey(source.PubKey), source.CreatedAt.Unix())
	}
}

func printUpdate(update refdiff.RepoUpdate) {
	changes := make([]refdiff.BranchChange, len(update.Updates))
	copy(changes, update.Updates)
	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	for _, change := range changes {
		switch change.Change {
		case refdiff.ChangeAdded:
			fmt.Printf("  + %s  %s\n", change.Name, change.NewOid)
		case refdiff.ChangeRemoved:
			fmt.Printf("  - %s  %s\n", change.Name, change.OldOid)
		case refdiff.ChangeUpdated:
			fmt.Printf("  ~ %s  %s -> %s\n", change.Name, change.OldOid, change.NewOid)
		}
	}
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func shortKey(pubkey string) string {
	if len(pubkey) > 8 {
		return pubkey[:8]
	}
	return pubkey
}
