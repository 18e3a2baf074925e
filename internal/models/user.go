package models

import "time"

// UserModel represents a platform account. IsActive and TokenVersion together
// are the source of truth for whether previously issued tokens are still
// valid: bumping TokenVersion invalidates every outstanding token in O(1).
type UserModel struct {
	Base
	Name          string     `json:"name"            gorm:"not null"`
	Email         string     `json:"email"           gorm:"uniqueIndex;not null"`
	Password      string     `json:"-"               gorm:"not null"`
	Role          string     `json:"role"            gorm:"index;not null"`
	IsActive      bool       `json:"is_active"       gorm:"default:true"`
	TokenVersion  int        `json:"-"               gorm:"not null;default:1"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

func (UserModel) TableName() string { return "users" }
