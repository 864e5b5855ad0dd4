package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"wingyshop/internal/models"
	"wingyshop/pkg/money"
)

// CreateTransaction creates a pending transaction.
func (s *GORMStore) CreateTransaction(tx *models.Transaction) error {
	tx.ID = 0
	tx.Status = models.TransactionStatusPending
	tx.BuyerConfirmed = false
	tx.SellerConfirmed = false
	tx.CreatedAt = s.now()
	tx.CompletedAt = nil
	tx.SettledAt = nil

	if err := s.db.Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *GORMStore) GetTransaction(id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.First(&tx, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "transaction with ID %d", id)
	}
	return &tx, nil
}

// GetTransactions returns all transactions, newest first.
func (s *GORMStore) GetTransactions() ([]models.Transaction, error) {
	var list []models.Transaction
	if err := s.db.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return list, nil
}

// GetTransactionsByUser returns transactions where userID is buyer or seller, newest first.
func (s *GORMStore) GetTransactionsByUser(userID uint) ([]models.Transaction, error) {
	var list []models.Transaction
	err := s.db.Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions of user %d: %w", userID, err)
	}
	return list, nil
}

// UpdateTransactionConfirmation sets a confirmation flag and completes the transaction with a
// compare-and-swap on its status, so exactly one caller observes completed == true.
func (s *GORMStore) UpdateTransactionConfirmation(id uint, side models.Side, confirmed bool) (*models.Transaction, bool, error) {
	var column string
	switch side {
	case models.SideBuyer:
		column = "buyer_confirmed"
	case models.SideSeller:
		column = "seller_confirmed"
	default:
		return nil, false, fmt.Errorf("unknown side %q", side)
	}

	var result models.Transaction
	completed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := locked(tx).First(&result, "id = ?", id).Error; err != nil {
			return notFound(err, "transaction with ID %d", id)
		}
		if result.Status != models.TransactionStatusPending {
			return nil
		}

		err := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, models.TransactionStatusPending).
			Update(column, confirmed).Error
		if err != nil {
			return fmt.Errorf("failed to record %s confirmation: %w", side, err)
		}

		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ? AND buyer_confirmed = ? AND seller_confirmed = ?",
				id, models.TransactionStatusPending, true, true).
			Updates(map[string]interface{}{
				"status":       models.TransactionStatusCompleted,
				"completed_at": s.now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete transaction %d: %w", id, res.Error)
		}
		completed = res.RowsAffected == 1

		return tx.First(&result, "id = ?", id).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &result, completed, nil
}

// UpdateTransactionStatus changes the status of a pending transaction.
func (s *GORMStore) UpdateTransactionStatus(id uint, status models.TransactionStatus) error {
	res := s.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of transaction %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var current models.Transaction
		if err := s.db.First(&current, "id = ?", id).Error; err == nil {
			return fmt.Errorf("transaction %d is %s", id, current.Status)
		}
	}
	return nil
}

// Settle moves the amount between the parties and takes one unit of stock inside a single
// database transaction. Rows are locked in a fixed order: transaction, product, users by id.
func (s *GORMStore) Settle(st models.Settlement) (*models.Transaction, error) {
	var result models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := locked(tx).First(&result, "id = ?", st.TransactionID).Error; err != nil {
			return notFound(err, "transaction with ID %d", st.TransactionID)
		}
		if result.SettledAt != nil {
			return fmt.Errorf("transaction %d: %w", result.ID, models.ErrAlreadySettled)
		}
		if result.Status != models.TransactionStatusCompleted {
			return fmt.Errorf("transaction %d is %s, not completed", result.ID, result.Status)
		}

		var product models.Product
		if err := locked(tx).First(&product, "id = ?", st.ProductID).Error; err != nil {
			return notFound(err, "product with ID %d", st.ProductID)
		}

		first, second := st.BuyerID, st.SellerID
		if first > second {
			first, second = second, first
		}
		users := make(map[uint]*models.User, 2)
		for _, id := range []uint{first, second} {
			var u models.User
			if err := locked(tx).First(&u, "id = ?", id).Error; err != nil {
				return notFound(err, "user with ID %d", id)
			}
			users[id] = &u
		}
		buyer, seller := users[st.BuyerID], users[st.SellerID]

		short, err := money.Less(buyer.Balance, st.Amount)
		if err != nil {
			return err
		}
		if short {
			return fmt.Errorf("buyer %d: %w", buyer.ID, models.ErrInsufficientBalance)
		}
		buyerBalance, sellerBalance, err := money.Transfer(buyer.Balance, seller.Balance, st.Amount)
		if err != nil {
			return err
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock > 0", st.ProductID).
			UpdateColumn("stock", gorm.Expr("stock - 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to decrement stock of product %d: %w", st.ProductID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product %d: %w", st.ProductID, models.ErrStockExhausted)
		}

		if err := tx.Model(&models.User{}).Where("id = ?", buyer.ID).Update("balance", buyerBalance).Error; err != nil {
			return fmt.Errorf("failed to debit buyer %d: %w", buyer.ID, err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", seller.ID).Update("balance", sellerBalance).Error; err != nil {
			return fmt.Errorf("failed to credit seller %d: %w", seller.ID, err)
		}

		now := s.now()
		if err := tx.Model(&models.Transaction{}).Where("id = ?", result.ID).Update("settled_at", now).Error; err != nil {
			return fmt.Errorf("failed to mark transaction %d settled: %w", result.ID, err)
		}
		result.SettledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
