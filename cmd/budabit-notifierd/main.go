package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Pleb5/flotilla-budabit-sub002/daemon"
)

func main() {
	configDir := pflag.String("config", daemon.DefaultConfigDir, "config directory")
	interval := pflag.Duration("interval", 30*time.Second, "recompute interval")
	pflag.Parse()

	cfg, err := daemon.LoadConfig(*configDir)
	if err != nil {
		log.Fatal(err)
	}

	ctx, err := daemon.Init(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer ctx.Close()

	if err := ctx.Bootstrap(context.Background()); err != nil {
		log.Fatal(err)
	}

	// Changes to the store mark the derived views dirty; the ticker below
	// recomputes at most once per interval instead of once per event.
	dirty := make(chan struct{}, 1)
	cancelWatch := ctx.Store.Subscribe(func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	defer cancelWatch()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	report(ctx)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			log.Println("[Notifierd] shutting down")
			return
		case <-ticker.C:
			select {
			case <-dirty:
				// Re-resolve preferences too: a newer encrypted prefs
				// event may have arrived alongside the activity.
				if err := ctx.RefreshPrefs(); err != nil {
					log.Printf("[Notifierd] refresh preferences: %v\n", err)
				}
				report(ctx)
			default:
			}
		}
	}
}

func report(ctx *daemon.Context) {
	candidates := ctx.Candidates()
	if len(candidates) == 0 {
		log.Println("[Notifierd] no notification candidates")
		return
	}
	for _, c := range candidates {
		log.Printf("[Notifierd] %s <- %s %s (event %s)\n",
			c.Path, c.Category, c.Repo.Identifier, c.Latest.ID)
	}
}
