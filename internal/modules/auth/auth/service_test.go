package auth

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/config"
	jwtpkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/jwt"
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

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)
	cfg := &config.AppConfig{TokenTTLHoursDefault: 24}
	return NewService(db, jwtpkg.New("test-secret"), cfg), mock
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func userRow(t *testing.T, id uint, password string, active bool, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "password", "role", "is_active", "token_version"}).
		AddRow(id, "Siti", "siti@example.com", mustHash(t, password), "bidan", active, version)
}

func TestLoginIssuesTokenWithCurrentVersion(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRow(t, 7, "rahasia-123", true, 5))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	token, u, err := svc.Login("siti@example.com", "rahasia-123", "10.0.0.1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if u.ID != 7 {
		t.Fatalf("user id = %d, want 7", u.ID)
	}

	claims, err := jwtpkg.New("test-secret").Decode(token)
	if err != nil {
		t.Fatalf("decode issued token: %v", err)
	}
	if claims.UserID != 7 || claims.Role != "bidan" || claims.TokenVersion != 5 {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

// Unknown email and wrong password must be indistinguishable to the caller.
func TestLoginDoesNotLeakAccountExistence(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, errUnknown := svc.Login("nobody@example.com", "whatever", "10.0.0.1")

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRow(t, 7, "rahasia-123", true, 1))

	_, _, errWrongPw := svc.Login("siti@example.com", "not-it", "10.0.0.1")

	if !errors.Is(errUnknown, errWrongCredentials) || !errors.Is(errWrongPw, errWrongCredentials) {
		t.Fatalf("errors differ: unknown=%v wrong=%v", errUnknown, errWrongPw)
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRow(t, 7, "rahasia-123", false, 1))

	if _, _, err := svc.Login("siti@example.com", "rahasia-123", "10.0.0.1"); !errors.Is(err, errAccountInactive) {
		t.Fatalf("expected errAccountInactive, got %v", err)
	}
}

func TestRegisterRejectsStaffRoles(t *testing.T) {
	svc, _ := newTestService(t)

	for _, role := range []string{"admin", "dinkes", "superuser"} {
		_, err := svc.Register(&RegisterDTO{
			Name: "X", Email: "x@example.com", Password: "password123", Role: role,
		})
		if !errors.Is(err, errRoleNotRegistrable) {
			t.Fatalf("role %s: expected errRoleNotRegistrable, got %v", role, err)
		}
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := svc.Register(&RegisterDTO{
		Name: "Siti", Email: "siti@example.com", Password: "password123", Role: "bidan",
	})
	if !errors.Is(err, errEmailTaken) {
		t.Fatalf("expected errEmailTaken, got %v", err)
	}
}

// A password change must be followed by a token_version bump: two UPDATEs,
// second one on token_version.
func TestChangePasswordRevokesOldTokens(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT id, password FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password"}).
			AddRow(7, mustHash(t, "old-password")))
	mock.ExpectExec("UPDATE `users` SET `password`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `users` SET `token_version`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.ChangePassword(7, &ChangePasswordDTO{
		OldPassword: "old-password", NewPassword: "new-password-1",
	})
	if err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestChangePasswordWrongOld(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT id, password FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password"}).
			AddRow(7, mustHash(t, "old-password")))

	err := svc.ChangePassword(7, &ChangePasswordDTO{
		OldPassword: "not-it", NewPassword: "new-password-1",
	})
	if !errors.Is(err, errWrongOldPassword) {
		t.Fatalf("expected errWrongOldPassword, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
