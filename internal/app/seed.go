package app

import (
	"context"
	"errors"
	"fmt"

	"wingyshop/internal/models"
)

type demoUser struct {
	username string
	email    string
	password string
	wingyID  string // Used when the remote ledger is configured
	balance  string
	admin    bool
}

var demoUsers = []demoUser{
	{"admin", "admin@wingyshop.com", "admin123", "admin-user-id", "10000.00", true},
	{"testuser", "user@wingyshop.com", "user123", "test-user-id", "2450.00", false},
}

// Seed creates the demo accounts unless they already exist. With the in-process ledger
// the accounts are registered there too, so their passwords work for login.
func (a *App) Seed() error {
	for _, d := range demoUsers {
		_, err := a.Store.GetUserByUsername(d.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("failed to look up %s: %w", d.username, err)
		}

		wingyID := d.wingyID
		if a.Ledger != nil {
			wingyID, err = a.Ledger.Signup(context.Background(), d.email, d.password, d.username)
			if err != nil {
				return fmt.Errorf("failed to register %s with the ledger: %w", d.username, err)
			}
		}

		user := &models.User{
			Username:        d.username,
			Email:           d.email,
			Password:        models.ExternalPassword,
			WingyCoinUserID: &wingyID,
		}
		if err := a.Store.CreateUser(user); err != nil {
			return fmt.Errorf("failed to seed %s: %w", d.username, err)
		}
		if err := a.Store.UpdateUserBalance(user.ID, d.balance); err != nil {
			return err
		}
		if d.admin {
			if err := a.Store.SetUserAdmin(user.ID, true); err != nil {
				return err
			}
		}
		a.log.Info("seeded demo user", map[string]interface{}{"username": d.username, "admin": d.admin})
	}
	return nil
}
