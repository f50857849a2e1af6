package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Pleb5/flotilla-budabit-sub002/daemon"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: budabit-cli [--config <dir>] <command> [args]

commands:
  announce <identifier>                 publish a repository announcement
  state <identifier> <repo-path>        review and publish a repo state event
  refs <repo-address>                   show the merged authoritative ref map
  watch <repo-address> [--off]          toggle watching a repository
  watch-show                            print current watch preferences
  status <root-id> <repo-address> <open|applied|closed|draft>
                                        publish a status event`)
	os.Exit(1)
}

func main() {
	args := os.Args[1:]
	configDir := daemon.DefaultConfigDir
	if len(args) >= 2 && args[0] == "--config" {
		configDir = args[1]
		args = args[2:]
	}
	if len(args) == 0 {
		usage()
	}

	cfg, err := daemon.LoadConfig(configDir)
	if err != nil {
		log.Fatal(err)
	}
	ctx, err := daemon.Init(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer ctx.Close()

	switch args[0] {
	case "announce":
		cmdAnnounce(ctx, args[1:])
	case "state":
		cmdState(ctx, args[1:])
	case "refs":
		cmdRefs(ctx, args[1:])
	case "watch":
		cmdWatch(ctx, args[1:])
	case "watch-show":
		cmdWatchShow(ctx)
	case "status":
		cmdStatus(ctx, args[1:])
	default:
		usage()
	}
}
