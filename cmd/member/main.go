// Command member runs a netring member: the probing agent described in
// spec.md §4.2.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"netring/internal/config"
	"netring/internal/member"
	"netring/internal/tracer"
)

const version = "dev"

func main() {
	configPath := flag.String("config", "", "path to member config YAML")
	statePath := flag.String("state-file", ".netring_instance_id", "path to the persisted instance id file")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadMemberConfig(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	absState, err := filepath.Abs(*statePath)
	if err != nil {
		log.Error("failed to resolve state file path", "error", err)
		os.Exit(1)
	}
	instanceID, err := member.LoadOrCreateInstanceID(absState, cfg.InstanceID)
	if err != nil {
		log.Error("failed to load instance id", "error", err)
		os.Exit(1)
	}

	m := member.New(log, cfg, instanceID, tracer.NewExec(), version)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		log.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	if err := m.Run(ctx); err != nil {
		log.Error("member exited with error", "error", err)
		os.Exit(1)
	}
}
