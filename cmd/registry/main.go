// Command registry runs the netring registry: the authoritative membership
// directory and metrics aggregator described in spec.md §4.1.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netring/internal/config"
	"netring/internal/registry"
	"netring/internal/store"
	"netring/internal/supervisor"
)

func main() {
	configPath := flag.String("config", "", "path to registry config YAML")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadRegistryConfig(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	redisStore := store.NewRedis(store.RedisOptions{
		Host:     cfg.Store.Host,
		Port:     cfg.Store.Port,
		DB:       cfg.Store.DB,
		Password: cfg.Store.Password,
	})
	defer redisStore.Close()

	if err := redisStore.Client().Ping(context.Background()).Err(); err != nil {
		log.Error("failed to connect to store", "error", err)
		os.Exit(1)
	}

	var expectedSpec config.ExpectedLocationsSpec
	if cfg.ExpectedMembers.EnableMissingDetection {
		expectedSpec, err = config.LoadExpectedLocationsSpec(cfg.ExpectedMembers.ConfigFile)
		if err != nil {
			log.Error("failed to load expected-locations spec", "error", err)
			os.Exit(1)
		}
	}

	manager := registry.NewManager(redisStore, cfg.MemberTTL, cfg.CleanupInterval, cfg.DeregisteredGrace)
	analyzer := registry.NewAnalyzer(expectedSpec)
	sup := supervisor.New(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Start(ctx)

	sup.Go("cleanup_sweep", func(taskCtx context.Context) error {
		sweepCtx, sweepCancel := context.WithTimeout(taskCtx, cfg.CleanupInterval)
		defer sweepCancel()
		if err := manager.CleanupSweep(sweepCtx); err != nil {
			log.Warn("cleanup sweep failed", "error", err)
		}
		select {
		case <-taskCtx.Done():
			return taskCtx.Err()
		case <-time.After(cfg.CleanupInterval):
			return nil
		}
	})

	server := registry.NewServer(log, cfg.Server.Addr(), manager, analyzer, sup, cfg.ExpectedMembers)

	errCh := make(chan error, 1)
	go func() {
		log.Info("registry listening", "addr", cfg.Server.Addr())
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("registry server error", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	if err := server.Shutdown(10 * time.Second); err != nil {
		log.Warn("graceful shutdown did not complete cleanly", "error", err)
	}
	cancel()
	sup.Stop()
}
