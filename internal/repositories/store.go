package repositories

import (
	"github.com/shopspring/decimal"

	"wingyshop/internal/models"
)

// UserRepository defines the interface for user data access.
// Update methods are no-ops for unknown ids.
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUser(id uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	UpdateUserBalance(id uint, balance string) error
	UpdateUserWingyBalance(id uint, wingyBalance decimal.Decimal, completedAds int) error
	UpdateUserWingyCoinID(id uint, wingyCoinUserID string) error
	UpdateUserUsername(id uint, username string) error
	SetUserAdmin(id uint, isAdmin bool) error
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	CreateProduct(product *models.Product, sellerID uint) error
	GetProducts(status models.ProductStatus) ([]models.Product, error)
	GetProduct(id uint) (*models.Product, error)
	GetProductsBySeller(sellerID uint) ([]models.Product, error)
	UpdateProductStatus(id uint, status models.ProductStatus) error
	UpdateProductStock(id uint, stock int) error
}

// TransactionRepository defines the interface for transaction data access.
type TransactionRepository interface {
	CreateTransaction(tx *models.Transaction) error
	GetTransaction(id uint) (*models.Transaction, error)
	GetTransactions() ([]models.Transaction, error)
	GetTransactionsByUser(userID uint) ([]models.Transaction, error)
	// UpdateTransactionConfirmation sets one side's flag and, when both flags are set on a
	// pending transaction, completes it in the same step. completed is true only for the
	// call that performed the transition.
	UpdateTransactionConfirmation(id uint, side models.Side, confirmed bool) (tx *models.Transaction, completed bool, err error)
	UpdateTransactionStatus(id uint, status models.TransactionStatus) error
	// Settle debits the buyer, credits the seller and decrements stock by one as a single unit.
	Settle(s models.Settlement) (*models.Transaction, error)
}

// Store is the entity store owning users, products and transactions.
type Store interface {
	UserRepository
	ProductRepository
	TransactionRepository
}
