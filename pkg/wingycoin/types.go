// Package wingycoin is a client for the Wingy Coin ledger service, which owns coin balances
// and account credentials.
package wingycoin

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// User is the account record returned by the ledger on login.
type User struct {
	ID                string          `json:"id"`
	Email             string          `json:"email"`
	CompletedAds      int             `json:"completedads,omitempty"`
	DiscordID         string          `json:"discordid,omitempty"`
	InviteCode        string          `json:"invitecode,omitempty"`
	InviterRewarded   bool            `json:"inviter_rewarded,omitempty"`
	PhoneVerified     string          `json:"phoneverified,omitempty"`
	SuccessfulInvites int             `json:"successfullinvites,omitempty"`
	Wingy             decimal.Decimal `json:"wingy"`
	UserMetadata      *UserMetadata   `json:"user_metadata,omitempty"`
}

type UserMetadata struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	PhoneVerified bool   `json:"phone_verified"`
	Sub           string `json:"sub"`
}

type LoginResponse struct {
	User *User `json:"user"`
}

type SignupResponse struct {
	UserID  string `json:"userId"`
	Message string `json:"message,omitempty"`
}

// Balance is the authoritative coin balance of an account.
type Balance struct {
	Wingy        decimal.Decimal `json:"wingy"`
	CompletedAds int             `json:"completedads"`
}

// GatewayError is returned for any failed ledger call: transport failure, non-2xx status
// or a body that cannot be decoded.
type GatewayError struct {
	Op         string
	StatusCode int // Zero when no response was received
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("wingycoin %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("wingycoin %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}
