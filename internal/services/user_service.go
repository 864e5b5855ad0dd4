package services

import (
	"context"
	"encoding/json"
	"fmt"

	"wingyshop/internal/models"
	"wingyshop/internal/repositories"
	"wingyshop/pkg/logger"
	"wingyshop/pkg/metrics"
	"wingyshop/pkg/money"
)

// CoinBalance is a Wingy Coin balance as reported to clients.
type CoinBalance struct {
	Wingy        json.Number `json:"wingy"`
	CompletedAds int         `json:"completedads"`
	Stale        bool        `json:"stale,omitempty"` // Served from the local mirror
}

// UserService serves profiles and keeps the local balance mirror in sync with the ledger.
type UserService struct {
	users   repositories.UserRepository
	gateway BalanceGateway
	log     logger.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users repositories.UserRepository, gateway BalanceGateway, log logger.Logger) *UserService {
	return &UserService{users: users, gateway: gateway, log: log}
}

// Profile returns the mirrored profile of userID.
func (s *UserService) Profile(userID uint) (*models.User, error) {
	return s.users.GetUser(userID)
}

// RefreshProfile pulls the current balance from the ledger and returns the merged profile.
// Only the user themself may refresh; ledger failures leave the mirror as is.
func (s *UserService) RefreshProfile(ctx context.Context, callerID, userID uint) (*models.User, error) {
	if callerID != userID {
		return nil, fmt.Errorf("user %d cannot read user %d: %w", callerID, userID, models.ErrForbidden)
	}
	user, err := s.users.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.sync(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CheckBalance returns the coin balance of userID, falling back to the mirror when the
// ledger is unreachable or the user is not linked to it.
func (s *UserService) CheckBalance(ctx context.Context, userID uint) (*CoinBalance, error) {
	user, err := s.users.GetUser(userID)
	if err != nil {
		return nil, err
	}
	fresh, err := s.sync(ctx, user)
	if err != nil {
		return nil, err
	}
	return &CoinBalance{
		Wingy:        json.Number(money.FormatCoins(user.WingyBalance)),
		CompletedAds: user.CompletedAds,
		Stale:        user.HasWingyCoinID() && !fresh,
	}, nil
}

// sync refreshes user's mirrored balance in place. It reports whether the ledger answered;
// only store failures are returned as errors.
func (s *UserService) sync(ctx context.Context, user *models.User) (bool, error) {
	if !user.HasWingyCoinID() {
		return false, nil
	}

	balance, err := s.gateway.CheckBalance(ctx, *user.WingyCoinUserID)
	metrics.RecordGatewayCall("check-balance", err)
	if err != nil {
		s.log.Warn("wingy coin balance unavailable, serving mirror", map[string]interface{}{
			"user_id": user.ID,
			"error":   err,
		})
		return false, nil
	}

	wingy := balance.Wingy.Round(money.CoinPlaces)
	if err := s.users.UpdateUserWingyBalance(user.ID, wingy, balance.CompletedAds); err != nil {
		return false, fmt.Errorf("failed to update balance mirror: %w", err)
	}
	user.WingyBalance = wingy
	user.CompletedAds = balance.CompletedAds
	return true, nil
}
