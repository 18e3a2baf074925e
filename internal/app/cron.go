package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/config"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/tasks/syncjobs"
	pkgcron "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/cron"
	pkgredis "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/redis"
)

// registerCronJobs registers the reconciliation jobs. The counter syncs run
// on a short interval; the wallet accrual fires once a day at the configured
// local time.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, rc *pkgredis.Client, cfg *config.AppConfig, logger *zap.Logger) error {
	svc := syncjobs.NewService(db, rc, logger.Named("SyncJobs"))
	cronLogger := logger.Named("CronService")

	hour, minute, err := cfg.WalletSyncTime()
	if err != nil {
		return fmt.Errorf("wallet sync schedule: %w", err)
	}

	sched.Register(pkgcron.Job{
		Name:        syncjobs.JobSyncViews,
		Description: "Reconcile cached view counters into the threads table",
		Interval:    cfg.SyncInterval(),
		Fn: func(ctx context.Context) error {
			res, err := svc.SyncViews(ctx)
			if err != nil {
				return err
			}
			cronLogger.Info("views reconciled",
				zap.Int("scanned", res.Scanned),
				zap.Int("corrected", res.Corrected),
				zap.Int("failed", res.Failed),
			)
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        syncjobs.JobSyncLikes,
		Description: "Reconcile cached like counters into the threads table",
		Interval:    cfg.SyncInterval(),
		Fn: func(ctx context.Context) error {
			res, err := svc.SyncLikes(ctx)
			if err != nil {
				return err
			}
			cronLogger.Info("likes reconciled",
				zap.Int("scanned", res.Scanned),
				zap.Int("corrected", res.Corrected),
				zap.Int("failed", res.Failed),
			)
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        syncjobs.JobSyncWalletViews,
		Description: "Recompute bidan ad revenue from durable view totals",
		Daily:       true,
		Hour:        hour,
		Minute:      minute,
		Fn: func(ctx context.Context) error {
			res, err := svc.SyncWallets(ctx, cfg.WalletPricePerView)
			if err != nil {
				return err
			}
			cronLogger.Info("wallets recomputed",
				zap.Int("wallets", res.Corrected),
				zap.Int("failed", res.Failed),
			)
			return nil
		},
	})

	return nil
}
