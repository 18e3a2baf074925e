// Package counter implements the Redis-backed view/like accounting for
// community threads. The cache holds the fast-changing tallies and the
// per-user dedup markers; the threads table is the durable mirror, written
// through on first views and repaired by the periodic sync jobs.
package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	redispkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/redis"
	"go.uber.org/zap"
)

// Key formats are preserved bit-exact for interop with existing cache data.
const (
	ViewKeyPrefix = "thread:views:"
	LikeKeyPrefix = "thread:likes:"

	viewMarkerFormat = "thread:viewed:%d:%d"
	likeMarkerFormat = "thread:liked:%d:%d"
)

// Abandoned view counters self-expire after this long. Eventual cleanup
// only: the durable mirror is authoritative once the key is gone.
const viewCounterTTL = 7 * 24 * time.Hour

// ErrCacheUnavailable means the counter store cannot be reached. Handlers
// degrade reads to the durable value and fail explicit writes.
var ErrCacheUnavailable = errors.New("counter cache unavailable")

// Mirror receives the synchronous write-through of the view aggregate.
type Mirror interface {
	SetThreadViews(ctx context.Context, threadID uint, views int64) error
}

// Service owns the counter keyspace.
type Service struct {
	rc         *redispkg.Client
	mirror     Mirror
	logger     *zap.Logger
	viewWindow time.Duration
	likeTTL    time.Duration
}

func NewService(rc *redispkg.Client, mirror Mirror, viewWindow, likeTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		rc:         rc,
		mirror:     mirror,
		logger:     logger,
		viewWindow: viewWindow,
		likeTTL:    likeTTL,
	}
}

func ViewKey(threadID uint) string { return fmt.Sprintf("%s%d", ViewKeyPrefix, threadID) }
func LikeKey(threadID uint) string { return fmt.Sprintf("%s%d", LikeKeyPrefix, threadID) }

func viewMarkerKey(threadID, userID uint) string {
	return fmt.Sprintf(viewMarkerFormat, threadID, userID)
}

func likeMarkerKey(threadID, userID uint) string {
	return fmt.Sprintf(likeMarkerFormat, threadID, userID)
}

// ThreadIDFromKey extracts the entity id from an aggregate counter key.
func ThreadIDFromKey(key, prefix string) (uint, bool) {
	raw := strings.TrimPrefix(key, prefix)
	if raw == key {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// RecordView counts one view of a thread by a user, at most once per dedup
// window. The marker claim is a SetNX so two concurrent first views cannot
// double count. On a first view the new aggregate is written through to the
// durable mirror immediately; a mirror failure is logged and left for the
// sync job to repair.
func (s *Service) RecordView(ctx context.Context, threadID, userID uint) (count int64, deduped bool, err error) {
	claimed, err := s.rc.SetNX(ctx, viewMarkerKey(threadID, userID), 1, s.viewWindow)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	if !claimed {
		current, _, err := s.rc.GetInt64(ctx, ViewKey(threadID))
		if err != nil {
			return 0, true, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		return current, true, nil
	}

	count, err = s.rc.Incr(ctx, ViewKey(threadID))
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if err := s.rc.Expire(ctx, ViewKey(threadID), viewCounterTTL); err != nil {
		s.logger.Warn("failed to set view counter ttl",
			zap.Uint("thread_id", threadID), zap.Error(err))
	}

	if err := s.mirror.SetThreadViews(ctx, threadID, count); err != nil {
		s.logger.Warn("view write-through failed, sync job will repair",
			zap.Uint("thread_id", threadID), zap.Int64("views", count), zap.Error(err))
	}
	return count, false, nil
}

// ToggleLike flips a user's like on a thread. Marker presence means "likes";
// the aggregate lives in cache only and is reconciled to the durable mirror
// by the batch job. The aggregate never goes below zero.
func (s *Service) ToggleLike(ctx context.Context, threadID, userID uint) (count int64, liked bool, err error) {
	marker := likeMarkerKey(threadID, userID)

	claimed, err := s.rc.SetNX(ctx, marker, 1, s.likeTTL)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	if claimed {
		count, err = s.rc.Incr(ctx, LikeKey(threadID))
		if err != nil {
			return 0, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		return count, true, nil
	}

	if err := s.rc.Del(ctx, marker); err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	count, err = s.rc.Decr(ctx, LikeKey(threadID))
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if count < 0 {
		count = 0
		if err := s.rc.Set(ctx, LikeKey(threadID), 0, 0); err != nil {
			return 0, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
	}
	return count, false, nil
}

// HasLiked reports whether the user currently likes the thread.
func (s *Service) HasLiked(ctx context.Context, threadID, userID uint) (bool, error) {
	ok, err := s.rc.Exists(ctx, likeMarkerKey(threadID, userID))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return ok, nil
}

// CachedViews returns the cached view aggregate (ok=false when the key has
// expired or never existed).
func (s *Service) CachedViews(ctx context.Context, threadID uint) (int64, bool, error) {
	n, ok, err := s.rc.GetInt64(ctx, ViewKey(threadID))
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return n, ok, nil
}

// CachedLikes returns the cached like aggregate.
func (s *Service) CachedLikes(ctx context.Context, threadID uint) (int64, bool, error) {
	n, ok, err := s.rc.GetInt64(ctx, LikeKey(threadID))
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return n, ok, nil
}
