package repositories

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"wingyshop/internal/models"
	"wingyshop/pkg/money"
)

// MemoryStore is an in-memory implementation of Store.
// Records are stored by value and every mutation replaces the stored value.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[uint]models.User
	products     map[uint]models.Product
	transactions map[uint]models.Transaction

	usersByName    map[string]uint
	usersByEmail   map[string]uint
	usersByWingyID map[string]uint

	nextUserID        uint
	nextProductID     uint
	nextTransactionID uint

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:             make(map[uint]models.User),
		products:          make(map[uint]models.Product),
		transactions:      make(map[uint]models.Transaction),
		usersByName:       make(map[string]uint),
		usersByEmail:      make(map[string]uint),
		usersByWingyID:    make(map[string]uint),
		nextUserID:        1,
		nextProductID:     1,
		nextTransactionID: 1,
		now:               time.Now,
	}
}

func emailKey(email string) string {
	return strings.ToLower(email)
}

// CreateUser adds a user, assigning its id and defaults.
func (s *MemoryStore) CreateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByName[user.Username]; ok {
		return fmt.Errorf("username %q: %w", user.Username, models.ErrConflict)
	}
	if _, ok := s.usersByEmail[emailKey(user.Email)]; ok {
		return fmt.Errorf("email %q: %w", user.Email, models.ErrConflict)
	}
	if user.HasWingyCoinID() {
		if _, ok := s.usersByWingyID[*user.WingyCoinUserID]; ok {
			return fmt.Errorf("wingy coin id %q: %w", *user.WingyCoinUserID, models.ErrConflict)
		}
	}

	user.ID = s.nextUserID
	s.nextUserID++
	user.Balance = money.Zero
	user.WingyBalance = decimal.Zero
	user.CompletedAds = 0
	user.IsAdmin = false
	user.CreatedAt = s.now()
	if user.WingyCoinUserID != nil && *user.WingyCoinUserID == "" {
		user.WingyCoinUserID = nil
	}

	s.users[user.ID] = cloneUser(*user)
	s.usersByName[user.Username] = user.ID
	s.usersByEmail[emailKey(user.Email)] = user.ID
	if user.HasWingyCoinID() {
		s.usersByWingyID[*user.WingyCoinUserID] = user.ID
	}
	return nil
}

// GetUser returns a user by id.
func (s *MemoryStore) GetUser(id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %d: %w", id, models.ErrNotFound)
	}
	u := cloneUser(user)
	return &u, nil
}

// GetUserByUsername returns a user by username.
func (s *MemoryStore) GetUserByUsername(username string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.usersByName[username]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("user with username %s: %w", username, models.ErrNotFound)
	}
	return s.GetUser(id)
}

// GetUserByEmail returns a user by email, ignoring case.
func (s *MemoryStore) GetUserByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.usersByEmail[emailKey(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("user with email %s: %w", email, models.ErrNotFound)
	}
	return s.GetUser(id)
}

// updateUser applies fn to a copy of the user and stores the copy.
func (s *MemoryStore) updateUser(id uint, fn func(u *models.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return
	}
	updated := cloneUser(user)
	fn(&updated)
	s.users[id] = updated
}

func (s *MemoryStore) UpdateUserBalance(id uint, balance string) error {
	s.updateUser(id, func(u *models.User) { u.Balance = balance })
	return nil
}

func (s *MemoryStore) UpdateUserWingyBalance(id uint, wingyBalance decimal.Decimal, completedAds int) error {
	s.updateUser(id, func(u *models.User) {
		u.WingyBalance = wingyBalance
		u.CompletedAds = completedAds
	})
	return nil
}

// UpdateUserWingyCoinID links the external ledger id. An id that is already set is never replaced,
// and an external id belongs to at most one user.
func (s *MemoryStore) UpdateUserWingyCoinID(id uint, wingyCoinUserID string) error {
	if wingyCoinUserID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || user.HasWingyCoinID() {
		return nil
	}
	if owner, taken := s.usersByWingyID[wingyCoinUserID]; taken && owner != id {
		return fmt.Errorf("wingy coin id %q: %w", wingyCoinUserID, models.ErrConflict)
	}
	updated := cloneUser(user)
	updated.WingyCoinUserID = lo.ToPtr(wingyCoinUserID)
	s.users[id] = updated
	s.usersByWingyID[wingyCoinUserID] = id
	return nil
}

func (s *MemoryStore) UpdateUserUsername(id uint, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || user.Username == username {
		return nil
	}
	if _, taken := s.usersByName[username]; taken {
		return fmt.Errorf("username %q: %w", username, models.ErrConflict)
	}
	delete(s.usersByName, user.Username)
	updated := cloneUser(user)
	updated.Username = username
	s.users[id] = updated
	s.usersByName[username] = id
	return nil
}

func (s *MemoryStore) SetUserAdmin(id uint, isAdmin bool) error {
	s.updateUser(id, func(u *models.User) { u.IsAdmin = isAdmin })
	return nil
}

// CreateProduct adds a product in pending status.
func (s *MemoryStore) CreateProduct(product *models.Product, sellerID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = s.nextProductID
	s.nextProductID++
	product.SellerID = sellerID
	product.Status = models.ProductStatusPending
	product.CreatedAt = s.now()
	if product.Stock == 0 {
		product.Stock = 1
	}
	if product.ImageURL != nil && *product.ImageURL == "" {
		product.ImageURL = nil
	}
	if len(product.Tags) == 0 {
		product.Tags = nil
	}

	s.products[product.ID] = cloneProduct(*product)
	return nil
}

// GetProducts returns products in insertion order, filtered by status when status is set.
func (s *MemoryStore) GetProducts(status models.ProductStatus) ([]models.Product, error) {
	return s.filterProducts(func(p models.Product) bool {
		return status == "" || p.Status == status
	}), nil
}

func (s *MemoryStore) GetProductsBySeller(sellerID uint) ([]models.Product, error) {
	return s.filterProducts(func(p models.Product) bool { return p.SellerID == sellerID }), nil
}

func (s *MemoryStore) filterProducts(keep func(models.Product) bool) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if keep(p) {
			list = append(list, cloneProduct(p))
		}
	}
	slices.SortFunc(list, func(a, b models.Product) int { return int(a.ID) - int(b.ID) })
	return list
}

func (s *MemoryStore) GetProduct(id uint) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %d: %w", id, models.ErrNotFound)
	}
	p := cloneProduct(product)
	return &p, nil
}

func (s *MemoryStore) updateProduct(id uint, fn func(p *models.Product)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return
	}
	updated := cloneProduct(product)
	fn(&updated)
	s.products[id] = updated
}

func (s *MemoryStore) UpdateProductStatus(id uint, status models.ProductStatus) error {
	s.updateProduct(id, func(p *models.Product) { p.Status = status })
	return nil
}

func (s *MemoryStore) UpdateProductStock(id uint, stock int) error {
	s.updateProduct(id, func(p *models.Product) { p.Stock = max(stock, 0) })
	return nil
}

// CreateTransaction adds a pending transaction with both confirmations unset.
func (s *MemoryStore) CreateTransaction(tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = s.nextTransactionID
	s.nextTransactionID++
	tx.Status = models.TransactionStatusPending
	tx.BuyerConfirmed = false
	tx.SellerConfirmed = false
	tx.CreatedAt = s.now()
	tx.CompletedAt = nil
	tx.SettledAt = nil

	s.transactions[tx.ID] = cloneTransaction(*tx)
	return nil
}

func (s *MemoryStore) GetTransaction(id uint) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction with ID %d: %w", id, models.ErrNotFound)
	}
	t := cloneTransaction(tx)
	return &t, nil
}

// GetTransactions returns all transactions, newest first.
func (s *MemoryStore) GetTransactions() ([]models.Transaction, error) {
	return s.filterTransactions(func(models.Transaction) bool { return true }), nil
}

// GetTransactionsByUser returns transactions where userID is buyer or seller, newest first.
func (s *MemoryStore) GetTransactionsByUser(userID uint) ([]models.Transaction, error) {
	return s.filterTransactions(func(t models.Transaction) bool {
		return t.BuyerID == userID || t.SellerID == userID
	}), nil
}

func (s *MemoryStore) filterTransactions(keep func(models.Transaction) bool) []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := lo.Filter(lo.Values(s.transactions), func(t models.Transaction, _ int) bool { return keep(t) })
	SortNewestFirst(list)
	return lo.Map(list, func(t models.Transaction, _ int) models.Transaction { return cloneTransaction(t) })
}

// UpdateTransactionConfirmation records a confirmation and completes the transaction when
// both sides have confirmed. Confirmations on a non-pending transaction leave it unchanged.
func (s *MemoryStore) UpdateTransactionConfirmation(id uint, side models.Side, confirmed bool) (*models.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, false, fmt.Errorf("transaction with ID %d: %w", id, models.ErrNotFound)
	}
	if tx.Status != models.TransactionStatusPending {
		t := cloneTransaction(tx)
		return &t, false, nil
	}

	updated := cloneTransaction(tx)
	switch side {
	case models.SideBuyer:
		updated.BuyerConfirmed = confirmed
	case models.SideSeller:
		updated.SellerConfirmed = confirmed
	default:
		return nil, false, fmt.Errorf("unknown side %q", side)
	}

	completed := false
	if updated.BuyerConfirmed && updated.SellerConfirmed {
		now := s.now()
		updated.Status = models.TransactionStatusCompleted
		updated.CompletedAt = &now
		completed = true
	}
	s.transactions[id] = updated

	t := cloneTransaction(updated)
	return &t, completed, nil
}

// UpdateTransactionStatus changes the status of a pending transaction.
// Completed and cancelled transactions are terminal.
func (s *MemoryStore) UpdateTransactionStatus(id uint, status models.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil
	}
	if tx.Status != models.TransactionStatusPending {
		return fmt.Errorf("transaction %d is %s", id, tx.Status)
	}
	updated := cloneTransaction(tx)
	updated.Status = status
	s.transactions[id] = updated
	return nil
}

// Settle applies the settlement under the store lock so concurrent settlements of the
// same product observe each other's stock decrement.
func (s *MemoryStore) Settle(st models.Settlement) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[st.TransactionID]
	if !ok {
		return nil, fmt.Errorf("transaction with ID %d: %w", st.TransactionID, models.ErrNotFound)
	}
	if tx.SettledAt != nil {
		return nil, fmt.Errorf("transaction %d: %w", tx.ID, models.ErrAlreadySettled)
	}
	if tx.Status != models.TransactionStatusCompleted {
		return nil, fmt.Errorf("transaction %d is %s, not completed", tx.ID, tx.Status)
	}

	buyer, ok := s.users[st.BuyerID]
	if !ok {
		return nil, fmt.Errorf("buyer with ID %d: %w", st.BuyerID, models.ErrNotFound)
	}
	seller, ok := s.users[st.SellerID]
	if !ok {
		return nil, fmt.Errorf("seller with ID %d: %w", st.SellerID, models.ErrNotFound)
	}
	product, ok := s.products[st.ProductID]
	if !ok {
		return nil, fmt.Errorf("product with ID %d: %w", st.ProductID, models.ErrNotFound)
	}
	if product.Stock <= 0 {
		return nil, fmt.Errorf("product %d: %w", product.ID, models.ErrStockExhausted)
	}

	short, err := money.Less(buyer.Balance, st.Amount)
	if err != nil {
		return nil, err
	}
	if short {
		return nil, fmt.Errorf("buyer %d: %w", buyer.ID, models.ErrInsufficientBalance)
	}
	buyerBalance, sellerBalance, err := money.Transfer(buyer.Balance, seller.Balance, st.Amount)
	if err != nil {
		return nil, err
	}

	b, sl, p, t := cloneUser(buyer), cloneUser(seller), cloneProduct(product), cloneTransaction(tx)
	b.Balance = buyerBalance
	sl.Balance = sellerBalance
	p.Stock--
	now := s.now()
	t.SettledAt = &now

	s.users[b.ID] = b
	s.users[sl.ID] = sl
	s.products[p.ID] = p
	s.transactions[t.ID] = t

	out := cloneTransaction(t)
	return &out, nil
}

// SortNewestFirst orders transactions by creation time descending, ties broken by id.
func SortNewestFirst(list []models.Transaction) {
	slices.SortFunc(list, func(a, b models.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})
}

func cloneUser(u models.User) models.User {
	if u.WingyCoinUserID != nil {
		u.WingyCoinUserID = lo.ToPtr(*u.WingyCoinUserID)
	}
	return u
}

func cloneProduct(p models.Product) models.Product {
	p.Tags = slices.Clone(p.Tags)
	if p.ImageURL != nil {
		p.ImageURL = lo.ToPtr(*p.ImageURL)
	}
	return p
}

func cloneTransaction(t models.Transaction) models.Transaction {
	if t.CompletedAt != nil {
		t.CompletedAt = lo.ToPtr(*t.CompletedAt)
	}
	if t.SettledAt != nil {
		t.SettledAt = lo.ToPtr(*t.SettledAt)
	}
	return t
}
