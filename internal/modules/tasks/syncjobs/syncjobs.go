// Package syncjobs contains the batch jobs that reconcile the Redis counters
// with their durable mirrors, and the daily wallet accrual. Every job is
// stateless across runs and idempotent: rerunning with no intervening
// activity changes nothing.
package syncjobs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/models"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/community/counter"
	redispkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/redis"
)

// Job names, shared by the scheduler registration and the sync CLI.
const (
	JobSyncViews       = "sync-views"
	JobSyncLikes       = "sync-likes"
	JobSyncWalletViews = "sync-wallet-views"
)

// ErrMissingPriceConfig aborts a wallet run when the pricing parameter is
// absent. Fatal for that run only.
var ErrMissingPriceConfig = errors.New("wallet_price_per_view is not configured")

// Result summarizes one reconciliation run.
type Result struct {
	Scanned   int `json:"scanned"`
	Corrected int `json:"corrected"`
	Failed    int `json:"failed"`
}

type Service struct {
	db     *gorm.DB
	rc     *redispkg.Client
	logger *zap.Logger
}

func NewService(db *gorm.DB, rc *redispkg.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, rc: rc, logger: logger}
}

// SyncViews walks every cached view aggregate and repairs the durable mirror
// where the cache is ahead. Views are monotonic: a cache value behind the
// durable one is left alone, the durable count never regresses. Per-key
// failures are logged and skipped; the run itself only fails when the
// keyspace cannot be scanned at all.
func (s *Service) SyncViews(ctx context.Context) (Result, error) {
	var res Result

	keys, err := s.rc.ScanKeys(ctx, counter.ViewKeyPrefix+"*")
	if err != nil {
		return res, fmt.Errorf("scan view keys: %w", err)
	}

	for _, key := range keys {
		threadID, ok := counter.ThreadIDFromKey(key, counter.ViewKeyPrefix)
		if !ok {
			continue
		}
		res.Scanned++

		cached, exists, err := s.rc.GetInt64(ctx, key)
		if err != nil || !exists {
			if err != nil {
				s.logger.Warn("failed to read cached views", zap.String("key", key), zap.Error(err))
				res.Failed++
			}
			continue
		}

		durable, found, err := s.durableViews(threadID)
		if err != nil {
			s.logger.Warn("failed to read durable views",
				zap.Uint("thread_id", threadID), zap.Error(err))
			res.Failed++
			continue
		}
		if !found || cached <= durable {
			continue
		}

		if err := s.db.Model(&models.ThreadModel{}).
			Where("id = ?", threadID).
			Update("views", cached).Error; err != nil {
			s.logger.Warn("failed to write back views",
				zap.Uint("thread_id", threadID), zap.Error(err))
			res.Failed++
			continue
		}
		res.Corrected++
		s.logger.Info("corrected thread views",
			zap.Uint("thread_id", threadID),
			zap.Int64("from", durable),
			zap.Int64("to", cached),
		)
	}
	return res, nil
}

// SyncLikes overwrites the durable like count with the cached tally whenever
// they differ. Likes can legitimately decrease, and the cache is the source
// of truth for the current tally.
func (s *Service) SyncLikes(ctx context.Context) (Result, error) {
	var res Result

	keys, err := s.rc.ScanKeys(ctx, counter.LikeKeyPrefix+"*")
	if err != nil {
		return res, fmt.Errorf("scan like keys: %w", err)
	}

	for _, key := range keys {
		threadID, ok := counter.ThreadIDFromKey(key, counter.LikeKeyPrefix)
		if !ok {
			continue
		}
		res.Scanned++

		cached, exists, err := s.rc.GetInt64(ctx, key)
		if err != nil || !exists {
			if err != nil {
				s.logger.Warn("failed to read cached likes", zap.String("key", key), zap.Error(err))
				res.Failed++
			}
			continue
		}

		durable, found, err := s.durableLikes(threadID)
		if err != nil {
			s.logger.Warn("failed to read durable likes",
				zap.Uint("thread_id", threadID), zap.Error(err))
			res.Failed++
			continue
		}
		if !found || cached == durable {
			continue
		}

		if err := s.db.Model(&models.ThreadModel{}).
			Where("id = ?", threadID).
			Update("likes_count", cached).Error; err != nil {
			s.logger.Warn("failed to write back likes",
				zap.Uint("thread_id", threadID), zap.Error(err))
			res.Failed++
			continue
		}
		res.Corrected++
		s.logger.Info("corrected thread likes",
			zap.Uint("thread_id", threadID),
			zap.Int64("from", durable),
			zap.Int64("to", cached),
		)
	}
	return res, nil
}

// SyncWallets recomputes every bidan's ad revenue from the durable view
// totals. The balance is overwritten with an absolute value, never
// incremented, so the job is safe to rerun for the same day.
func (s *Service) SyncWallets(ctx context.Context, pricePerView float64) (Result, error) {
	var res Result

	if pricePerView <= 0 {
		return res, ErrMissingPriceConfig
	}

	var totals []struct {
		UserID uint
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&models.ThreadModel{}).
		Select("threads.user_id AS user_id, COALESCE(SUM(threads.views), 0) AS total").
		Joins("JOIN users ON users.id = threads.user_id AND users.role = ?", "bidan").
		Group("threads.user_id").
		Scan(&totals).Error
	if err != nil {
		return res, fmt.Errorf("aggregate view totals: %w", err)
	}

	seen := make([]uint, 0, len(totals))
	for _, t := range totals {
		res.Scanned++
		seen = append(seen, t.UserID)
		revenue := float64(t.Total) * pricePerView

		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"ad_revenue": revenue}),
		}).Create(&models.WalletModel{UserID: t.UserID, AdRevenue: revenue}).Error
		if err != nil {
			s.logger.Warn("failed to upsert wallet",
				zap.Uint("user_id", t.UserID), zap.Error(err))
			res.Failed++
			continue
		}
		res.Corrected++
		s.logger.Info("wallet ad revenue recomputed",
			zap.Uint("user_id", t.UserID),
			zap.Int64("views", t.Total),
			zap.Float64("ad_revenue", revenue),
		)
	}

	// The overwrite is absolute for every wallet, including owners whose
	// threads have all been deleted: anyone missing from the aggregate is
	// recomputed to zero.
	zeroed := s.db.WithContext(ctx).Model(&models.WalletModel{}).
		Where("ad_revenue <> 0")
	if len(seen) > 0 {
		zeroed = zeroed.Where("user_id NOT IN ?", seen)
	}
	zeroRes := zeroed.Update("ad_revenue", float64(0))
	if zeroRes.Error != nil {
		s.logger.Warn("failed to zero stale wallets", zap.Error(zeroRes.Error))
		res.Failed++
		return res, nil
	}
	if n := zeroRes.RowsAffected; n > 0 {
		res.Corrected += int(n)
		s.logger.Info("stale wallets zeroed", zap.Int64("wallets", n))
	}
	return res, nil
}

func (s *Service) durableViews(threadID uint) (int64, bool, error) {
	var t models.ThreadModel
	err := s.db.Select("id, views").First(&t, "id = ?", threadID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return t.Views, true, nil
}

func (s *Service) durableLikes(threadID uint) (int64, bool, error) {
	var t models.ThreadModel
	err := s.db.Select("id, likes_count").First(&t, "id = ?", threadID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return t.LikesCount, true, nil
}
