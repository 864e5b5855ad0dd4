package repositories_test

import (
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingyshop/internal/models"
	"wingyshop/internal/repositories"
)

// runStoreContract exercises behaviour every Store implementation must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) repositories.Store) {
	t.Run("CreateUserDefaultsAndUniqueness", func(t *testing.T) {
		store := newStore(t)

		user := &models.User{Username: "alice", Email: "alice@example.com", Password: models.ExternalPassword, Balance: "99.00", IsAdmin: true}
		require.NoError(t, store.CreateUser(user))
		assert.NotZero(t, user.ID)
		assert.Equal(t, "0.00", user.Balance)
		assert.False(t, user.IsAdmin)
		assert.True(t, user.WingyBalance.IsZero())
		assert.False(t, user.CreatedAt.IsZero())

		err := store.CreateUser(&models.User{Username: "alice", Email: "other@example.com", Password: "x"})
		assert.True(t, errors.Is(err, models.ErrConflict))
		err = store.CreateUser(&models.User{Username: "alice2", Email: "ALICE@example.com", Password: "x"})
		assert.True(t, errors.Is(err, models.ErrConflict))

		second := &models.User{Username: "bob", Email: "bob@example.com", Password: "x"}
		require.NoError(t, store.CreateUser(second))
		assert.Greater(t, second.ID, user.ID)
	})

	t.Run("UserLookupsAndUpdates", func(t *testing.T) {
		store := newStore(t)
		user := &models.User{Username: "carol", Email: "carol@example.com", Password: "x", WingyCoinUserID: lo.ToPtr("ext-1")}
		require.NoError(t, store.CreateUser(user))

		byName, err := store.GetUserByUsername("carol")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)
		byEmail, err := store.GetUserByEmail("carol@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		_, err = store.GetUser(9999)
		assert.True(t, errors.Is(err, models.ErrNotFound))
		_, err = store.GetUserByEmail("nobody@example.com")
		assert.True(t, errors.Is(err, models.ErrNotFound))

		require.NoError(t, store.UpdateUserBalance(user.ID, "12.50"))
		require.NoError(t, store.UpdateUserWingyBalance(user.ID, decimal.RequireFromString("7.125"), 3))
		require.NoError(t, store.UpdateUserWingyCoinID(user.ID, "ext-2"))
		require.NoError(t, store.UpdateUserUsername(user.ID, "caroline"))
		require.NoError(t, store.SetUserAdmin(user.ID, true))

		got, err := store.GetUser(user.ID)
		require.NoError(t, err)
		assert.Equal(t, "12.50", got.Balance)
		assert.True(t, decimal.RequireFromString("7.125").Equal(got.WingyBalance))
		assert.Equal(t, 3, got.CompletedAds)
		assert.Equal(t, "ext-1", *got.WingyCoinUserID, "linked id is never replaced")
		assert.Equal(t, "caroline", got.Username)
		assert.True(t, got.IsAdmin)

		_, err = store.GetUserByUsername("caroline")
		assert.NoError(t, err)

		assert.NoError(t, store.UpdateUserBalance(9999, "1.00"), "updates of unknown ids are no-ops")
		assert.NoError(t, store.UpdateProductStock(9999, 3))
	})

	t.Run("LinkWingyCoinIDWhenAbsent", func(t *testing.T) {
		store := newStore(t)
		user := &models.User{Username: "dave", Email: "dave@example.com", Password: "x"}
		require.NoError(t, store.CreateUser(user))
		assert.Nil(t, user.WingyCoinUserID)

		require.NoError(t, store.UpdateUserWingyCoinID(user.ID, "ext-dave"))
		got, err := store.GetUser(user.ID)
		require.NoError(t, err)
		require.NotNil(t, got.WingyCoinUserID)
		assert.Equal(t, "ext-dave", *got.WingyCoinUserID)
	})

	t.Run("WingyCoinIDBelongsToOneUser", func(t *testing.T) {
		store := newStore(t)
		linked := &models.User{Username: "erin", Email: "erin@example.com", Password: "x", WingyCoinUserID: lo.ToPtr("ext-erin")}
		require.NoError(t, store.CreateUser(linked))

		twin := &models.User{Username: "erin2", Email: "erin2@example.com", Password: "x", WingyCoinUserID: lo.ToPtr("ext-erin")}
		assert.ErrorIs(t, store.CreateUser(twin), models.ErrConflict)

		other := createUser(t, store, "frank")
		assert.ErrorIs(t, store.UpdateUserWingyCoinID(other.ID, "ext-erin"), models.ErrConflict)
		got, err := store.GetUser(other.ID)
		require.NoError(t, err)
		assert.Nil(t, got.WingyCoinUserID)

		require.NoError(t, store.UpdateUserWingyCoinID(other.ID, "ext-frank"))
	})

	t.Run("ProductLifecycle", func(t *testing.T) {
		store := newStore(t)
		seller := createUser(t, store, "seller")

		p := &models.Product{Title: "Lamp", Description: "Desk lamp", Price: "19.99", Status: models.ProductStatusActive, Tags: []string{"home"}}
		require.NoError(t, store.CreateProduct(p, seller.ID))
		assert.Equal(t, models.ProductStatusPending, p.Status)
		assert.Equal(t, 1, p.Stock)
		assert.Equal(t, seller.ID, p.SellerID)

		other := &models.Product{Title: "Chair", Description: "Chair", Price: "5", Stock: 4}
		require.NoError(t, store.CreateProduct(other, seller.ID))

		require.NoError(t, store.UpdateProductStatus(p.ID, models.ProductStatusActive))
		active, err := store.GetProducts(models.ProductStatusActive)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, p.ID, active[0].ID)
		assert.Equal(t, []string{"home"}, active[0].Tags)

		all, err := store.GetProducts("")
		require.NoError(t, err)
		assert.Equal(t, []uint{p.ID, other.ID}, lo.Map(all, func(p models.Product, _ int) uint { return p.ID }))

		bySeller, err := store.GetProductsBySeller(seller.ID)
		require.NoError(t, err)
		assert.Len(t, bySeller, 2)

		require.NoError(t, store.UpdateProductStock(other.ID, -2))
		got, err := store.GetProduct(other.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Stock)

		_, err = store.GetProduct(9999)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("ConfirmationCompletesOnceBothSidesConfirm", func(t *testing.T) {
		store := newStore(t)
		tx := createTransaction(t, store, "19.99", 1)

		got, completed, err := store.UpdateTransactionConfirmation(tx.ID, models.SideSeller, true)
		require.NoError(t, err)
		assert.False(t, completed)
		assert.True(t, got.SellerConfirmed)
		assert.Equal(t, models.TransactionStatusPending, got.Status)

		got, completed, err = store.UpdateTransactionConfirmation(tx.ID, models.SideBuyer, true)
		require.NoError(t, err)
		assert.True(t, completed)
		assert.Equal(t, models.TransactionStatusCompleted, got.Status)
		assert.NotNil(t, got.CompletedAt)

		got, completed, err = store.UpdateTransactionConfirmation(tx.ID, models.SideBuyer, false)
		require.NoError(t, err)
		assert.False(t, completed)
		assert.True(t, got.BuyerConfirmed, "flags are frozen after completion")

		_, _, err = store.UpdateTransactionConfirmation(9999, models.SideBuyer, true)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("SettleMovesFundsAndStockOnce", func(t *testing.T) {
		store := newStore(t)
		tx := createTransaction(t, store, "19.99", 1)
		completeTransaction(t, store, tx.ID)

		settled, err := store.Settle(settlementOf(tx))
		require.NoError(t, err)
		assert.NotNil(t, settled.SettledAt)

		buyer, _ := store.GetUser(tx.BuyerID)
		seller, _ := store.GetUser(tx.SellerID)
		product, _ := store.GetProduct(tx.ProductID)
		assert.Equal(t, "30.01", buyer.Balance)
		assert.Equal(t, "19.99", seller.Balance)
		assert.Equal(t, 0, product.Stock)

		_, err = store.Settle(settlementOf(tx))
		assert.True(t, errors.Is(err, models.ErrAlreadySettled))
		buyer, _ = store.GetUser(tx.BuyerID)
		assert.Equal(t, "30.01", buyer.Balance)
	})

	t.Run("SettleRejectsExhaustedStock", func(t *testing.T) {
		store := newStore(t)
		tx := createTransaction(t, store, "10.00", 1)
		require.NoError(t, store.UpdateProductStock(tx.ProductID, 0))
		completeTransaction(t, store, tx.ID)

		_, err := store.Settle(settlementOf(tx))
		assert.True(t, errors.Is(err, models.ErrStockExhausted))

		buyer, _ := store.GetUser(tx.BuyerID)
		assert.Equal(t, "50.00", buyer.Balance)
		got, _ := store.GetTransaction(tx.ID)
		assert.Nil(t, got.SettledAt)
	})

	t.Run("SettleRejectsPendingAndShortBuyer", func(t *testing.T) {
		store := newStore(t)
		tx := createTransaction(t, store, "10.00", 2)
		_, err := store.Settle(settlementOf(tx))
		assert.Error(t, err)

		completeTransaction(t, store, tx.ID)
		require.NoError(t, store.UpdateUserBalance(tx.BuyerID, "9.99"))
		_, err = store.Settle(settlementOf(tx))
		assert.True(t, errors.Is(err, models.ErrInsufficientBalance))

		product, _ := store.GetProduct(tx.ProductID)
		assert.Equal(t, 2, product.Stock)
	})

	t.Run("CancelIsOnlyAllowedWhilePending", func(t *testing.T) {
		store := newStore(t)
		tx := createTransaction(t, store, "1.00", 1)
		require.NoError(t, store.UpdateTransactionStatus(tx.ID, models.TransactionStatusCancelled))
		got, _ := store.GetTransaction(tx.ID)
		assert.Equal(t, models.TransactionStatusCancelled, got.Status)

		_, completed, err := store.UpdateTransactionConfirmation(tx.ID, models.SideBuyer, true)
		require.NoError(t, err)
		assert.False(t, completed)

		assert.Error(t, store.UpdateTransactionStatus(tx.ID, models.TransactionStatusPending))
	})

	t.Run("TransactionsNewestFirst", func(t *testing.T) {
		store := newStore(t)
		first := createTransaction(t, store, "1.00", 5)
		second := &models.Transaction{ProductID: first.ProductID, BuyerID: first.BuyerID, SellerID: first.SellerID, Amount: "1.00"}
		require.NoError(t, store.CreateTransaction(second))
		stranger := createUser(t, store, "stranger")

		all, err := store.GetTransactions()
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
		assert.Equal(t, first.ID, all[1].ID)

		forSeller, err := store.GetTransactionsByUser(first.SellerID)
		require.NoError(t, err)
		assert.Len(t, forSeller, 2)
		forStranger, err := store.GetTransactionsByUser(stranger.ID)
		require.NoError(t, err)
		assert.Empty(t, forStranger)
	})
}

func createUser(t *testing.T, store repositories.Store, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: models.ExternalPassword}
	require.NoError(t, store.CreateUser(u))
	return u
}

// createTransaction sets up buyer (balance 50.00), seller (0.00), an active product and a pending purchase.
func createTransaction(t *testing.T, store repositories.Store, price string, stock int) *models.Transaction {
	t.Helper()
	buyer := createUser(t, store, "buyer")
	seller := createUser(t, store, "seller")
	require.NoError(t, store.UpdateUserBalance(buyer.ID, "50.00"))

	p := &models.Product{Title: "Item", Description: "Item", Price: price, Stock: stock}
	require.NoError(t, store.CreateProduct(p, seller.ID))
	require.NoError(t, store.UpdateProductStatus(p.ID, models.ProductStatusActive))

	tx := &models.Transaction{ProductID: p.ID, BuyerID: buyer.ID, SellerID: seller.ID, Amount: price}
	require.NoError(t, store.CreateTransaction(tx))
	return tx
}

func completeTransaction(t *testing.T, store repositories.Store, id uint) {
	t.Helper()
	_, _, err := store.UpdateTransactionConfirmation(id, models.SideBuyer, true)
	require.NoError(t, err)
	_, completed, err := store.UpdateTransactionConfirmation(id, models.SideSeller, true)
	require.NoError(t, err)
	require.True(t, completed)
}

func settlementOf(tx *models.Transaction) models.Settlement {
	return models.Settlement{
		TransactionID: tx.ID,
		ProductID:     tx.ProductID,
		BuyerID:       tx.BuyerID,
		SellerID:      tx.SellerID,
		Amount:        tx.Amount,
	}
}
