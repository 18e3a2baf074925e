package models

// WalletModel holds a bidan's ad-revenue balance. AdRevenue is overwritten
// with a freshly computed absolute value by the daily accrual job, never
// incremented, so reruns are harmless.
type WalletModel struct {
	Base
	UserID    uint    `json:"user_id"    gorm:"uniqueIndex;not null"`
	AdRevenue float64 `json:"ad_revenue" gorm:"not null;default:0"`
}

func (WalletModel) TableName() string { return "wallets" }
