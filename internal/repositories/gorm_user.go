package repositories

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wingyshop/internal/models"
	"wingyshop/pkg/money"
)

// CreateUser creates a new user in the database.
func (s *GORMStore) CreateUser(user *models.User) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("username %q: %w", user.Username, models.ErrConflict)
	}
	if err := s.db.Model(&models.User{}).Where("LOWER(email) = LOWER(?)", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("email %q: %w", user.Email, models.ErrConflict)
	}

	user.ID = 0
	user.Balance = money.Zero
	user.WingyBalance = decimal.Zero
	user.CompletedAds = 0
	user.IsAdmin = false
	user.CreatedAt = s.now()
	if user.WingyCoinUserID != nil && *user.WingyCoinUserID == "" {
		user.WingyCoinUserID = nil
	}

	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user %q: %w", user.Username, models.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *GORMStore) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user with ID %d", id)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *GORMStore) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "username = ?", username).Error; err != nil {
		return nil, notFound(err, "user with username %s", username)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (s *GORMStore) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, notFound(err, "user with email %s", email)
	}
	return &user, nil
}

func (s *GORMStore) updateUser(id uint, values map[string]interface{}) error {
	if err := s.db.Model(&models.User{}).Where("id = ?", id).Updates(values).Error; err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	return nil
}

func (s *GORMStore) UpdateUserBalance(id uint, balance string) error {
	return s.updateUser(id, map[string]interface{}{"balance": balance})
}

func (s *GORMStore) UpdateUserWingyBalance(id uint, wingyBalance decimal.Decimal, completedAds int) error {
	return s.updateUser(id, map[string]interface{}{
		"wingy_balance": wingyBalance,
		"completed_ads": completedAds,
	})
}

// UpdateUserWingyCoinID links the external ledger id only when none is set.
func (s *GORMStore) UpdateUserWingyCoinID(id uint, wingyCoinUserID string) error {
	if wingyCoinUserID == "" {
		return nil
	}
	err := s.db.Model(&models.User{}).
		Where("id = ? AND (wingy_coin_user_id IS NULL OR wingy_coin_user_id = '')", id).
		Update("wingy_coin_user_id", wingyCoinUserID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("wingy coin id %q: %w", wingyCoinUserID, models.ErrConflict)
		}
		return fmt.Errorf("failed to link wingy coin id for user %d: %w", id, err)
	}
	return nil
}

func (s *GORMStore) UpdateUserUsername(id uint, username string) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ? AND id <> ?", username, id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("username %q: %w", username, models.ErrConflict)
	}
	return s.updateUser(id, map[string]interface{}{"username": username})
}

func (s *GORMStore) SetUserAdmin(id uint, isAdmin bool) error {
	return s.updateUser(id, map[string]interface{}{"is_admin": isAdmin})
}
