package syncjobs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/community/counter"
	redispkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/redis"
)

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db, err := gorm.Open(mysqldriver.New(mysqldriver.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db, mock
}

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

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock := newTestDB(t)
	rc, server := newTestRedis(t)
	return NewService(db, rc, nil), mock, server
}

func threadRow(id uint, views, likes int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "views", "likes_count"}).AddRow(id, views, likes)
}

// Cache ahead of the durable count: the mirror catches up.
func TestSyncViewsCacheAhead(t *testing.T) {
	svc, mock, server := newTestService(t)

	server.Set(counter.ViewKey(42), "10")

	mock.ExpectQuery("SELECT id, views FROM `threads`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "views"}).AddRow(42, 3))
	mock.ExpectExec("UPDATE `threads` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := svc.SyncViews(context.Background())
	if err != nil {
		t.Fatalf("SyncViews returned error: %v", err)
	}
	if res.Scanned != 1 || res.Corrected != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// Views only move forward: a cache value behind the mirror writes nothing.
func TestSyncViewsNeverRegresses(t *testing.T) {
	svc, mock, server := newTestService(t)

	server.Set(counter.ViewKey(42), "3")

	mock.ExpectQuery("SELECT id, views FROM `threads`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "views"}).AddRow(42, 10))

	res, err := svc.SyncViews(context.Background())
	if err != nil {
		t.Fatalf("SyncViews returned error: %v", err)
	}
	if res.Corrected != 0 {
		t.Fatalf("regression written back: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// Running the job twice with no new activity is a no-op the second time: the
// first run converges the mirror, the second run sees equal values.
func TestSyncViewsIdempotent(t *testing.T) {
	svc, mock, server := newTestService(t)

	server.Set(counter.ViewKey(42), "10")

	mock.ExpectQuery("SELECT id, views FROM `threads`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "views"}).AddRow(42, 3))
	mock.ExpectExec("UPDATE `threads` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, views FROM `threads`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "views"}).AddRow(42, 10))

	if _, err := svc.SyncViews(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := svc.SyncViews(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Corrected != 0 {
		t.Fatalf("second run corrected %d, want 0", res.Corrected)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// A cached thread that no longer exists durably is skipped, not an error.
func TestSyncViewsMissingThread(t *testing.T) {
	svc, mock, server := newTestService(t)

	server.Set(counter.ViewKey(42), "10")

	mock.ExpectQuery("SELECT id, views FROM `threads`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "views"}))

	res, err := svc.SyncViews(context.Background())
	if err != nil {
		t.Fatalf("SyncViews returned error: %v", err)
	}
	if res.Corrected != 0 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// One broken key must not abort the rest of the run.
func TestSyncViewsContinuesPastFailures(t *testing.T) {
	svc, mock, server := newTestService(t)
	mock.MatchExpectationsInOrder(false)

	server.Set(counter.ViewKey(1), "10")
	server.Set(counter.ViewKey(2), "20")

	mock.ExpectQuery("SELECT id, views FROM `threads`").
		WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectQuery("SELECT id, views FROM `threads`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "views"}).AddRow(2, 3))
	mock.ExpectExec("UPDATE `threads` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := svc.SyncViews(context.Background())
	if err != nil {
		t.Fatalf("SyncViews returned error: %v", err)
	}
	if res.Scanned != 2 || res.Corrected != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// Likes overwrite in both directions; the cache is authoritative.
func TestSyncLikesOverwrites(t *testing.T) {
	svc, mock, server := newTestService(t)

	server.Set(counter.LikeKey(42), "2")

	mock.ExpectQuery("SELECT id, likes_count FROM `threads`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes_count"}).AddRow(42, 5))
	mock.ExpectExec("UPDATE `threads` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := svc.SyncLikes(context.Background())
	if err != nil {
		t.Fatalf("SyncLikes returned error: %v", err)
	}
	if res.Corrected != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncLikesEqualIsNoop(t *testing.T) {
	svc, mock, server := newTestService(t)

	server.Set(counter.LikeKey(42), "5")

	mock.ExpectQuery("SELECT id, likes_count FROM `threads`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes_count"}).AddRow(42, 5))

	res, err := svc.SyncLikes(context.Background())
	if err != nil {
		t.Fatalf("SyncLikes returned error: %v", err)
	}
	if res.Corrected != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// An empty keyspace is a clean, empty run.
func TestSyncEmptyKeyspace(t *testing.T) {
	svc, mock, _ := newTestService(t)

	res, err := svc.SyncViews(context.Background())
	if err != nil {
		t.Fatalf("SyncViews returned error: %v", err)
	}
	if res.Scanned != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	res, err = svc.SyncLikes(context.Background())
	if err != nil {
		t.Fatalf("SyncLikes returned error: %v", err)
	}
	if res.Scanned != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncWalletsRecomputesAbsolute(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT threads.user_id AS user_id, COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total"}).AddRow(7, 120))
	mock.ExpectExec("INSERT INTO `wallets`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `wallets` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	res, err := svc.SyncWallets(context.Background(), 0.5)
	if err != nil {
		t.Fatalf("SyncWallets returned error: %v", err)
	}
	if res.Scanned != 1 || res.Corrected != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// A wallet whose owner no longer contributes any view totals (all threads
// deleted) is recomputed to zero, not left at its previous balance.
func TestSyncWalletsZeroesOwnersWithoutThreads(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT threads.user_id AS user_id, COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total"}))
	mock.ExpectExec("UPDATE `wallets` SET").
		WillReturnResult(sqlmock.NewResult(0, 2))

	res, err := svc.SyncWallets(context.Background(), 0.5)
	if err != nil {
		t.Fatalf("SyncWallets returned error: %v", err)
	}
	if res.Scanned != 0 || res.Corrected != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncWalletsMissingPrice(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.SyncWallets(context.Background(), 0); !errors.Is(err, ErrMissingPriceConfig) {
		t.Fatalf("expected ErrMissingPriceConfig, got %v", err)
	}
}
