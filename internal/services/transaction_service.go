package services

import (
	"errors"
	"fmt"
	"sync"

	"wingyshop/internal/models"
	"wingyshop/internal/repositories"
	"wingyshop/pkg/logger"
	"wingyshop/pkg/metrics"
	"wingyshop/pkg/money"
)

// TransactionService runs the purchase and dual-confirmation protocol. It is the only
// component that moves balances and decrements stock.
type TransactionService struct {
	store  repositories.Store
	admins AdminChecker
	events EventPublisher
	log    logger.Logger
	locks  keyedMutex
}

// NewTransactionService creates a new TransactionService. events may be nil.
func NewTransactionService(store repositories.Store, admins AdminChecker, events EventPublisher, log logger.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		admins: admins,
		events: events,
		log:    log,
	}
}

// CreatePurchase records buyerID's intent to buy productID at its current price.
func (s *TransactionService) CreatePurchase(buyerID, productID uint) (*models.Transaction, error) {
	product, err := s.store.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	if product.Stock <= 0 {
		return nil, fmt.Errorf("product %d: %w", product.ID, models.ErrOutOfStock)
	}
	if product.SellerID == buyerID {
		return nil, fmt.Errorf("product %d: %w", product.ID, models.ErrSelfPurchase)
	}
	if product.Status != models.ProductStatusActive {
		return nil, fmt.Errorf("product %d is %s: %w", product.ID, product.Status, models.ErrProductUnavailable)
	}

	buyer, err := s.store.GetUser(buyerID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("buyer %d: %w", buyerID, models.ErrInsufficientBalance)
	}
	if err != nil {
		return nil, err
	}
	short, err := money.Less(buyer.Balance, product.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to compare balance: %w", err)
	}
	if short {
		s.log.Warn("purchase rejected", map[string]interface{}{
			"buyer_id":   buyerID,
			"product_id": productID,
			"reason":     models.ErrInsufficientBalance.Error(),
		})
		return nil, fmt.Errorf("buyer %d: %w", buyerID, models.ErrInsufficientBalance)
	}

	tx := &models.Transaction{
		ProductID: product.ID,
		BuyerID:   buyerID,
		SellerID:  product.SellerID,
		Amount:    product.Price,
	}
	if err := s.store.CreateTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	metrics.RecordTransaction(metrics.OutcomeCreated)
	s.log.Info("transaction created", map[string]interface{}{
		"transaction_id": tx.ID,
		"product_id":     tx.ProductID,
		"buyer_id":       tx.BuyerID,
		"amount":         tx.Amount,
	})
	publish(s.events, s.log, EventTransactionCreated, tx)
	return tx, nil
}

// Confirm records userID's confirmation. The confirmation that completes the transaction
// also settles it; confirming a completed transaction again changes nothing.
func (s *TransactionService) Confirm(transactionID, userID uint) (*models.Transaction, error) {
	unlock := s.locks.Lock(transactionID)
	defer unlock()

	current, err := s.store.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}
	side, ok := current.SideOf(userID)
	if !ok {
		return nil, fmt.Errorf("user %d is not a party to transaction %d: %w", userID, transactionID, models.ErrForbidden)
	}

	tx, completed, err := s.store.UpdateTransactionConfirmation(transactionID, side, true)
	if err != nil {
		return nil, fmt.Errorf("failed to record confirmation: %w", err)
	}
	metrics.RecordTransaction(metrics.OutcomeConfirmed)
	publish(s.events, s.log, EventTransactionConfirmed, map[string]interface{}{
		"transaction_id": tx.ID,
		"side":           side,
		"user_id":        userID,
	})
	if !completed {
		return tx, nil
	}

	metrics.RecordTransaction(metrics.OutcomeCompleted)
	publish(s.events, s.log, EventTransactionCompleted, tx)
	return s.settle(tx)
}

// settle applies the balance transfer and stock decrement of a just-completed transaction.
// A failed settlement leaves the transaction completed but unsettled.
func (s *TransactionService) settle(tx *models.Transaction) (*models.Transaction, error) {
	settled, err := s.store.Settle(models.Settlement{
		TransactionID: tx.ID,
		ProductID:     tx.ProductID,
		BuyerID:       tx.BuyerID,
		SellerID:      tx.SellerID,
		Amount:        tx.Amount,
	})
	if err != nil {
		metrics.RecordTransaction(metrics.OutcomeSettlementFailed)
		s.log.Error("settlement failed", map[string]interface{}{
			"transaction_id": tx.ID,
			"product_id":     tx.ProductID,
			"error":          err,
		})
		publish(s.events, s.log, EventTransactionSettlementFailed, map[string]interface{}{
			"transaction_id": tx.ID,
			"reason":         err.Error(),
		})
		return nil, fmt.Errorf("failed to settle transaction %d: %w", tx.ID, err)
	}

	metrics.RecordTransaction(metrics.OutcomeSettled)
	s.log.Info("transaction settled", map[string]interface{}{
		"transaction_id": settled.ID,
		"buyer_id":       settled.BuyerID,
		"seller_id":      settled.SellerID,
		"amount":         settled.Amount,
	})
	return settled, nil
}

// ListForUser returns the transactions where userID is buyer or seller, newest first.
func (s *TransactionService) ListForUser(userID uint) ([]models.Transaction, error) {
	return s.store.GetTransactionsByUser(userID)
}

// ListAll returns every transaction, newest first, to an admin.
func (s *TransactionService) ListAll(adminID uint) ([]models.Transaction, error) {
	if err := s.admins.RequireAdmin(adminID); err != nil {
		return nil, err
	}
	return s.store.GetTransactions()
}

// keyedMutex serializes work per transaction id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	waiters int
}

// Lock acquires the lock for id and returns its release function.
func (k *keyedMutex) Lock(id uint) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uint]*keyedLock)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.waiters++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.waiters--
		if l.waiters == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
