// Package session holds the durable side of the token freshness protocol:
// the user's is_active flag and monotonically increasing token_version. A
// token is fresh only while its embedded version equals the stored one.
package session

import (
	"errors"
	"time"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/models"
	jwtpkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/jwt"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// Status is the revocation state of a user record.
type Status struct {
	IsActive     bool
	TokenVersion int
}

// GetStatus reads the freshness pair for a user.
func GetStatus(db *gorm.DB, userID uint) (*Status, error) {
	var u models.UserModel
	err := db.Select("id, is_active, token_version").First(&u, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &Status{IsActive: u.IsActive, TokenVersion: u.TokenVersion}, nil
}

// BumpVersion increments token_version by exactly 1, invalidating every
// previously issued token for the user. Single UPDATE statement so a
// concurrent validator never observes a half-applied state.
func BumpVersion(db *gorm.DB, userID uint) error {
	res := db.Model(&models.UserModel{}).
		Where("id = ?", userID).
		Update("token_version", gorm.Expr("token_version + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetActive flips is_active and bumps token_version in the same UPDATE, so
// the pair changes atomically from the perspective of a concurrent validator.
func SetActive(db *gorm.DB, userID uint, active bool) error {
	res := db.Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_active":     active,
			"token_version": gorm.Expr("token_version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Issue signs a session token for the user, embedding the current stored
// token_version. ttl <= 0 issues a token without an expiry claim.
func Issue(codec *jwtpkg.Codec, u *models.UserModel, ttl time.Duration) (string, error) {
	return codec.Issue(jwtpkg.Claims{
		UserID:       u.ID,
		Role:         u.Role,
		Name:         u.Name,
		Email:        u.Email,
		TokenVersion: u.TokenVersion,
	}, ttl)
}
