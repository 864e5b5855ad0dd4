package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"wingyshop/pkg/money"
)

// User represents a marketplace account mirrored from the Wingy Coin ledger.
type User struct {
	ID              uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	WingyCoinUserID *string         `json:"wingyCoinUserId" gorm:"uniqueIndex;type:varchar(100)"`
	Username        string          `json:"username" gorm:"uniqueIndex;type:varchar(100);not null"`
	Email           string          `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password        string          `json:"-" gorm:"type:varchar(255);not null"` // Placeholder when authenticated externally
	Balance         string          `json:"balance" gorm:"type:varchar(32);not null;default:'0.00'"`
	WingyBalance    decimal.Decimal `json:"wingyBalance" gorm:"type:decimal(18,3);not null;default:0"`
	CompletedAds    int             `json:"completedAds" gorm:"not null;default:0"`
	IsAdmin         bool            `json:"isAdmin" gorm:"not null;default:false"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ExternalPassword is stored as the local password of users whose credentials live upstream.
const ExternalPassword = "external-auth"

// HasWingyCoinID reports whether the user is linked to an external ledger account.
func (u *User) HasWingyCoinID() bool {
	return u.WingyCoinUserID != nil && *u.WingyCoinUserID != ""
}

// MarshalJSON writes wingyBalance as a JSON number rounded to three places.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		WingyBalance json.Number `json:"wingyBalance"`
	}{plain(u), json.Number(money.FormatCoins(u.WingyBalance))})
}
