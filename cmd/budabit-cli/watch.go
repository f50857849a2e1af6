package main

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/Pleb5/flotilla-budabit-sub002/daemon"
	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
	"github.com/Pleb5/flotilla-budabit-sub002/watch"
)

func cmdWatch(ctx *daemon.Context, args []string) {
	flags := pflag.NewFlagSet("watch", pflag.ExitOnError)
	off := flags.Bool("off", false, "stop watching instead of starting")
	comments := flags.Bool("comments", false, "also watch issue/patch comments")
	flags.Parse(args)

	if flags.NArg() < 1 {
		log.Fatal("watch: missing repository address")
	}
	if _, ok := protocol.ParseAddress(flags.Arg(0)); !ok {
		log.Fatalf("watch: invalid repository address %q", flags.Arg(0))
	}
	if ctx.Cipher == nil {
		log.Fatal("watch: a secret key is required to persist preferences")
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ctx.Bootstrap(loadCtx); err != nil {
		log.Fatal(err)
	}

	prefs := ctx.Prefs()
	if prefs.Repos == nil {
		prefs.Repos = make(map[string]watch.Options)
	}
	if *off {
		delete(prefs.Repos, flags.Arg(0))
	} else {
		opts := watch.DefaultOptions()
		opts.IssueComments = *comments
		opts.PatchComments = *comments
		prefs.Repos[flags.Arg(0)] = opts
	}

	event, err := watch.BuildPrefsEvent(prefs, ctx.Cipher)
	if err != nil {
		log.Fatal(err)
	}
	pubCtx, cancelPub := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPub()
	if err := ctx.Pool.Publish(pubCtx, event); err != nil {
		log.Fatal(err)
	}
	if err := ctx.SetPrefs(prefs); err != nil {
		log.Fatal(err)
	}

	if *off {
		fmt.Printf("stopped watching %s\n", flags.Arg(0))
	} else {
		fmt.Printf("watching %s\n", flags.Arg(0))
	}
}

func cmdWatchShow(ctx *daemon.Context) {
	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ctx.Bootstrap(loadCtx); err != nil {
		log.Fatal(err)
	}

	prefs := ctx.Prefs()
	if len(prefs.Repos) == 0 {
		fmt.Println("not watching any repositories")
		return
	}
	addrs := make([]string, 0, len(prefs.Repos))
	for addr := range prefs.Repos {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		opts := prefs.Repos[addr]
		fmt.Printf("%s\n  issues=%v patches=%v patch-updates=%v comments=%v/%v\n",
			addr, opts.NewIssues, opts.NewPatches, opts.PatchUpdates,
			opts.IssueComments, opts.PatchComments)
	}
}

var statusKinds = map[string]int{
	"open":    protocol.KindStatusOpen,
	"applied": protocol.KindStatusApplied,
	"closed":  protocol.KindStatusClosed,
	"draft":   protocol.KindStatusDraft,
}

func cmdStatus(ctx *daemon.Context, args []string) {
	flags := pflag.NewFlagSet("status", pflag.ExitOnError)
	message := flags.String("message", "", "status comment")
	flags.Parse(args)

	if flags.NArg() < 3 {
		log.Fatal("status: need <root-id> <repo-address> <open|applied|closed|draft>")
	}
	rootID := flags.Arg(0)
	addr, ok := protocol.ParseAddress(flags.Arg(1))
	if !ok {
		log.Fatalf("status: invalid repository address %q", flags.Arg(1))
	}
	kind, ok := statusKinds[flags.Arg(2)]
	if !ok {
		log.Fatalf("status: unknown status %q", flags.Arg(2))
	}

	relayHint := ""
	if len(ctx.Cfg.Relays) > 0 {
		relayHint = ctx.Cfg.Relays[0]
	}
	event := protocol.BuildStatusEvent(kind, rootID, addr, relayHint, *message)

	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctx.Pool.Publish(pubCtx, event); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("published %s status for %s\n", flags.Arg(2), shortKey(rootID))
}
