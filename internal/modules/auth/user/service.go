// Package user is the admin-facing account management surface: listing
// accounts, toggling activation, and forcing password resets. Activation and
// reset both bump token_version so outstanding tokens die immediately.
package user

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/models"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/pagination"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/response"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/roles"
	sessionpkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/session"
)

var errUnknownRole = errors.New("unknown role filter")

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) List(q pagination.Query, roleFilter string) ([]models.UserModel, response.Pagination, error) {
	tx := s.db.Model(&models.UserModel{}).Order("created_at DESC")
	if roleFilter != "" {
		role, ok := roles.Parse(roleFilter)
		if !ok {
			return nil, response.Pagination{}, errUnknownRole
		}
		tx = tx.Where("role = ?", role.String())
	}

	var users []models.UserModel
	p, err := pagination.Paginate(tx, q, &users)
	return users, p, err
}

// SetActivation flips is_active. Deactivation revokes every outstanding
// token; reactivation does too, forcing a fresh login.
func (s *Service) SetActivation(userID uint, active bool) error {
	return sessionpkg.SetActive(s.db, userID, active)
}

// ResetPassword sets a new password for the account and revokes all previous
// tokens. When newPassword is empty a random temporary one is generated and
// returned so the admin can hand it over out of band.
func (s *Service) ResetPassword(userID uint, newPassword string) (string, error) {
	if newPassword == "" {
		b := make([]byte, 8)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		newPassword = hex.EncodeToString(b)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	res := s.db.Model(&models.UserModel{}).
		Where("id = ?", userID).
		Update("password", string(hash))
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", sessionpkg.ErrUserNotFound
	}
	return newPassword, sessionpkg.BumpVersion(s.db, userID)
}
