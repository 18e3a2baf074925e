package counter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	redispkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/redis"
)

func newTestRedis(t *testing.T) (*redispkg.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return redispkg.Wrap(client), server
}

type fakeMirror struct {
	mu    sync.Mutex
	views map[uint]int64
	fail  bool
}

func newFakeMirror() *fakeMirror { return &fakeMirror{views: map[uint]int64{}} }

func (m *fakeMirror) SetThreadViews(_ context.Context, threadID uint, views int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	m.views[threadID] = views
	return nil
}

func (m *fakeMirror) get(threadID uint) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views[threadID]
}

func newService(t *testing.T) (*Service, *fakeMirror, *miniredis.Miniredis) {
	t.Helper()
	rc, server := newTestRedis(t)
	mirror := newFakeMirror()
	svc := NewService(rc, mirror, 24*time.Hour, 720*time.Hour, nil)
	return svc, mirror, server
}

// Repeat views within the dedup window count exactly once.
func TestRecordViewDedup(t *testing.T) {
	svc, mirror, _ := newService(t)
	ctx := context.Background()

	count, deduped, err := svc.RecordView(ctx, 42, 7)
	if err != nil {
		t.Fatalf("RecordView returned error: %v", err)
	}
	if deduped || count != 1 {
		t.Fatalf("first view: count=%d deduped=%v", count, deduped)
	}
	if got := mirror.get(42); got != 1 {
		t.Fatalf("write-through views = %d, want 1", got)
	}

	for i := 0; i < 5; i++ {
		count, deduped, err = svc.RecordView(ctx, 42, 7)
		if err != nil {
			t.Fatalf("RecordView returned error: %v", err)
		}
		if !deduped || count != 1 {
			t.Fatalf("repeat view: count=%d deduped=%v", count, deduped)
		}
	}
	if got := mirror.get(42); got != 1 {
		t.Fatalf("durable views = %d, want exactly 1", got)
	}
}

func TestRecordViewDifferentUsers(t *testing.T) {
	svc, mirror, _ := newService(t)
	ctx := context.Background()

	for uid := uint(1); uid <= 3; uid++ {
		if _, _, err := svc.RecordView(ctx, 42, uid); err != nil {
			t.Fatalf("RecordView returned error: %v", err)
		}
	}
	if got := mirror.get(42); got != 3 {
		t.Fatalf("durable views = %d, want 3", got)
	}
}

// After the dedup window expires the same user counts again.
func TestRecordViewWindowExpiry(t *testing.T) {
	svc, _, server := newService(t)
	ctx := context.Background()

	if _, _, err := svc.RecordView(ctx, 42, 7); err != nil {
		t.Fatalf("RecordView returned error: %v", err)
	}
	server.FastForward(25 * time.Hour)

	count, deduped, err := svc.RecordView(ctx, 42, 7)
	if err != nil {
		t.Fatalf("RecordView returned error: %v", err)
	}
	if deduped || count != 2 {
		t.Fatalf("post-expiry view: count=%d deduped=%v", count, deduped)
	}
}

// A mirror failure must not fail the recording; the sync job repairs later.
func TestRecordViewSurvivesMirrorFailure(t *testing.T) {
	svc, mirror, _ := newService(t)
	mirror.fail = true

	count, deduped, err := svc.RecordView(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("RecordView returned error: %v", err)
	}
	if deduped || count != 1 {
		t.Fatalf("count=%d deduped=%v", count, deduped)
	}
}

// toggle∘toggle = identity.
func TestToggleLikeInvolution(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	count, liked, err := svc.ToggleLike(ctx, 42, 7)
	if err != nil {
		t.Fatalf("ToggleLike returned error: %v", err)
	}
	if !liked || count != 1 {
		t.Fatalf("first toggle: count=%d liked=%v", count, liked)
	}

	has, err := svc.HasLiked(ctx, 42, 7)
	if err != nil || !has {
		t.Fatalf("HasLiked = %v, %v", has, err)
	}

	count, liked, err = svc.ToggleLike(ctx, 42, 7)
	if err != nil {
		t.Fatalf("ToggleLike returned error: %v", err)
	}
	if liked || count != 0 {
		t.Fatalf("second toggle: count=%d liked=%v", count, liked)
	}

	has, err = svc.HasLiked(ctx, 42, 7)
	if err != nil || has {
		t.Fatalf("HasLiked after untoggle = %v, %v", has, err)
	}
}

func TestToggleLikeMultipleUsers(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for uid := uint(1); uid <= 3; uid++ {
		if _, _, err := svc.ToggleLike(ctx, 42, uid); err != nil {
			t.Fatalf("ToggleLike returned error: %v", err)
		}
	}
	count, liked, err := svc.ToggleLike(ctx, 42, 2)
	if err != nil {
		t.Fatalf("ToggleLike returned error: %v", err)
	}
	if liked || count != 2 {
		t.Fatalf("after user 2 unlikes: count=%d liked=%v", count, liked)
	}
}

// The like aggregate is floored at zero even if the counter key is missing
// while a marker is present.
func TestToggleLikeFloorsAtZero(t *testing.T) {
	svc, _, server := newService(t)
	ctx := context.Background()

	if _, _, err := svc.ToggleLike(ctx, 42, 7); err != nil {
		t.Fatalf("ToggleLike returned error: %v", err)
	}
	server.Del(LikeKey(42))

	count, liked, err := svc.ToggleLike(ctx, 42, 7)
	if err != nil {
		t.Fatalf("ToggleLike returned error: %v", err)
	}
	if liked || count != 0 {
		t.Fatalf("count=%d liked=%v, want 0/false", count, liked)
	}
}

func TestCacheUnavailable(t *testing.T) {
	svc, _, server := newService(t)
	server.Close()

	if _, _, err := svc.RecordView(context.Background(), 42, 7); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
	if _, _, err := svc.ToggleLike(context.Background(), 42, 7); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
}

func TestThreadIDFromKey(t *testing.T) {
	id, ok := ThreadIDFromKey("thread:views:42", ViewKeyPrefix)
	if !ok || id != 42 {
		t.Fatalf("got %d %v", id, ok)
	}
	if _, ok := ThreadIDFromKey("thread:likes:42", ViewKeyPrefix); ok {
		t.Fatal("wrong prefix must not parse")
	}
	if _, ok := ThreadIDFromKey("thread:views:abc", ViewKeyPrefix); ok {
		t.Fatal("non-numeric id must not parse")
	}
}
