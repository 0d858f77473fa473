// Command capstand is the Capstan coordinator daemon.
// It polls every agent mailbox under the data dir, arbitrates task
// ownership, and maintains the shared state documents until stopped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoCodeAlone/capstan/config"
	"github.com/GoCodeAlone/capstan/coordinator"
	"github.com/GoCodeAlone/capstan/internal/version"
	"github.com/GoCodeAlone/capstan/store"
)

var (
	configPath = flag.String("config", "", "path to capstan config file")
	dataDir    = flag.String("data-dir", "", "coordination data directory (overrides config)")
)

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	logger.Info("starting capstand",
		"version", version.Version,
		"commit", version.Commit,
		"data_dir", cfg.DataDir,
	)

	st, err := store.Open(cfg.StateDir())
	if err != nil {
		log.Fatalf("Failed to open state dir %s: %v", cfg.StateDir(), err)
	}

	coord := coordinator.New(st, coordinator.Options{
		MailboxDir:    cfg.MailboxDir(),
		LogDir:        cfg.LogsDir(),
		LeaseDuration: cfg.Coordinator.LeaseDuration(),
		PollInterval:  cfg.Coordinator.PollInterval(),
		Logger:        logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("Shutting down...")
		cancel()
	}()

	fmt.Printf("Capstan coordinator watching %s\n", cfg.DataDir)
	fmt.Printf("Version: %s (%s)\n", version.Version, version.Commit)

	if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("coordinator stopped", "error", err)
		os.Exit(1)
	}
	fmt.Println("Shutdown complete")
}

// parseLevel maps a config log level string onto a slog level,
// defaulting to info.
func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
