// Command sync runs a single reconciliation job to completion and exits.
// Exit code 0 means the run finished (including an empty keyspace); 1 means
// the run failed or required configuration is missing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/config"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/database"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/tasks/syncjobs"
	pkgredis "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/redis"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	job := flag.String("job", "", "Job to run: sync-views | sync-likes | sync-wallet-views")
	flag.Parse()

	if err := run(*configPath, *job); err != nil {
		fmt.Fprintln(os.Stderr, "sync:", err)
		os.Exit(1)
	}
}

func run(configPath, job string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var logger *zap.Logger
	if cfg.IsDev() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Connect(cfg, false)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	svc := syncjobs.NewService(db, rc, logger.Named("SyncJobs"))
	ctx := context.Background()

	var res syncjobs.Result
	switch job {
	case syncjobs.JobSyncViews:
		res, err = svc.SyncViews(ctx)
	case syncjobs.JobSyncLikes:
		res, err = svc.SyncLikes(ctx)
	case syncjobs.JobSyncWalletViews:
		res, err = svc.SyncWallets(ctx, cfg.WalletPricePerView)
	default:
		return fmt.Errorf("unknown job %q, expected sync-views, sync-likes or sync-wallet-views", job)
	}
	if err != nil {
		return err
	}

	logger.Info("job finished",
		zap.String("job", job),
		zap.Int("scanned", res.Scanned),
		zap.Int("corrected", res.Corrected),
		zap.Int("failed", res.Failed),
	)
	return nil
}
