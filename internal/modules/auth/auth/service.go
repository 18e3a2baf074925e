package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/config"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/models"
	jwtpkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/jwt"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/roles"
	sessionpkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/session"
)

// selfRegistrable are the roles one can claim through the public register
// endpoint. Staff roles (admin, dinkes) are provisioned by an admin.
var selfRegistrable = roles.NewSet(roles.Bidan, roles.IbuHamil)

type Service struct {
	db    *gorm.DB
	codec *jwtpkg.Codec
	cfg   *config.AppConfig
}

func NewService(db *gorm.DB, codec *jwtpkg.Codec, cfg *config.AppConfig) *Service {
	return &Service{db: db, codec: codec, cfg: cfg}
}

// Login verifies credentials and issues a session token carrying the user's
// current token_version. The token lifetime comes from the per-role TTL
// configuration. Every credential failure surfaces the same error so callers
// cannot tell a missing account from a wrong password.
func (s *Service) Login(email, password, ip string) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errWrongCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, errWrongCredentials
	}
	if !u.IsActive {
		return "", nil, errAccountInactive
	}

	now := time.Now()
	if err := s.db.Model(&u).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	}).Error; err != nil {
		return "", nil, err
	}

	token, err := sessionpkg.Issue(s.codec, &u, s.cfg.TokenTTL(u.Role))
	if err != nil {
		return "", nil, err
	}
	return token, &u, nil
}

func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	role, ok := roles.Parse(dto.Role)
	if !ok || !selfRegistrable.Allows(role.String()) {
		return nil, errRoleNotRegistrable
	}

	var count int64
	if err := s.db.Model(&models.UserModel{}).
		Where("email = ?", dto.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := models.UserModel{
		Name:     dto.Name,
		Email:    dto.Email,
		Password: string(hash),
		Role:     role.String(),
	}
	return &u, s.db.Create(&u).Error
}

// ChangePassword swaps the password and bumps token_version in the same
// call, so every token issued before the change stops validating.
func (s *Service) ChangePassword(userID uint, dto *ChangePasswordDTO) error {
	var u models.UserModel
	if err := s.db.Select("id, password").First(&u, "id = ?", userID).Error; err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(dto.OldPassword)); err != nil {
		return errWrongOldPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.db.Model(&models.UserModel{}).
		Where("id = ?", userID).
		Update("password", string(hash)).Error; err != nil {
		return err
	}
	return sessionpkg.BumpVersion(s.db, userID)
}

func (s *Service) GetProfile(userID uint) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
