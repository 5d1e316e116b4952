package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/prescription-ai-portal/cmd/mainconfig"
	"github.com/wolfman30/prescription-ai-portal/internal/app/bootstrap"
	appconfig "github.com/wolfman30/prescription-ai-portal/internal/config"
	"github.com/wolfman30/prescription-ai-portal/internal/documents"
	"github.com/wolfman30/prescription-ai-portal/internal/portal"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

// Usage: seed [--overwrite]
//
// Loads the sample doctor directory into the configured DOCUMENT_STORE.
func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	overwrite := len(os.Args) > 1 && os.Args[1] == "--overwrite"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		fatal(logger, "load aws config", err)
	}
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		fatal(logger, "connect postgres", err)
	}
	if pool != nil {
		defer pool.Close()
	}
	store, err := bootstrap.BuildDocumentStore(cfg, awsCfg, pool, logger)
	if err != nil {
		fatal(logger, "build document store", err)
	}

	written, err := portal.SeedDoctors(ctx, store, overwrite)
	if err != nil {
		if documents.IsMissingTable(err) {
			logger.Error("dynamodb table missing; create it before seeding",
				"table", cfg.DynamoTablePrefix+documents.CollectionDoctors)
		}
		fatal(logger, "seed doctors", err)
	}
	logger.Info("seed complete", "store", cfg.DocumentStore, "doctors_written", written)
}

func fatal(logger *logging.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, "error", err)
	} else {
		logger.Error(msg)
	}
	os.Exit(1)
}
