package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonesrussell/north-cloud/sentiment/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := bootstrap.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	comps, err := bootstrap.NewComponents(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize components", logger.Error(err))
		return 1
	}
	defer func() {
		if closeErr := comps.Close(); closeErr != nil {
			log.Warn("Failed to close components", logger.Error(closeErr))
		}
	}()

	server := bootstrap.SetupHTTPServer(cfg, comps, log)
	if err := server.Run(ctx); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}
	return 0
}
