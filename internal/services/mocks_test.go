package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wingyshop/internal/models"
	"wingyshop/internal/repositories"
	"wingyshop/internal/services"
	"wingyshop/pkg/logger"
	"wingyshop/pkg/wingycoin"
)

const testJWTSecret = "test_jwt_secret"

// MockBalanceGateway is a mock implementation of services.BalanceGateway
type MockBalanceGateway struct {
	mock.Mock
}

func (m *MockBalanceGateway) Login(ctx context.Context, email, password string) (*wingycoin.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wingycoin.User), args.Error(1)
}

func (m *MockBalanceGateway) Signup(ctx context.Context, email, password, username string) (string, error) {
	args := m.Called(ctx, email, password, username)
	return args.String(0), args.Error(1)
}

func (m *MockBalanceGateway) CheckBalance(ctx context.Context, wingyCoinUserID string) (*wingycoin.Balance, error) {
	args := m.Called(ctx, wingyCoinUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wingycoin.Balance), args.Error(1)
}

// recordingPublisher keeps the types of published events in order.
type recordingPublisher struct {
	mu    sync.Mutex
	types []string
	fail  bool
}

func (p *recordingPublisher) Publish(eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	if p.fail {
		return errors.New("broker unavailable")
	}
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

type fixture struct {
	store        *repositories.MemoryStore
	gateway      *MockBalanceGateway
	events       *recordingPublisher
	auth         *services.AuthService
	users        *services.UserService
	products     *services.ProductService
	transactions *services.TransactionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Nop()
	f := &fixture{
		store:   repositories.NewMemoryStore(),
		gateway: new(MockBalanceGateway),
		events:  &recordingPublisher{},
	}
	f.auth = services.NewAuthService(f.store, f.gateway, testJWTSecret, 0, log)
	f.users = services.NewUserService(f.store, f.gateway, log)
	f.products = services.NewProductService(f.store, f.auth, f.events, 1000, log)
	f.transactions = services.NewTransactionService(f.store, f.auth, f.events, log)
	return f
}

func (f *fixture) user(t *testing.T, username, balance string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: models.ExternalPassword}
	require.NoError(t, f.store.CreateUser(u))
	if balance != "" {
		require.NoError(t, f.store.UpdateUserBalance(u.ID, balance))
		u.Balance = balance
	}
	return u
}

func (f *fixture) admin(t *testing.T) *models.User {
	t.Helper()
	a := f.user(t, "admin", "")
	require.NoError(t, f.store.SetUserAdmin(a.ID, true))
	return a
}

// activeProduct creates a listing of sellerID already approved for sale.
func (f *fixture) activeProduct(t *testing.T, sellerID uint, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Title: "Widget", Description: "A widget", Price: price, Stock: stock}
	require.NoError(t, f.store.CreateProduct(p, sellerID))
	require.NoError(t, f.store.UpdateProductStatus(p.ID, models.ProductStatusActive))
	if stock == 0 {
		require.NoError(t, f.store.UpdateProductStock(p.ID, 0))
	}
	p, err := f.store.GetProduct(p.ID)
	require.NoError(t, err)
	return p
}

func ctx() context.Context {
	return context.Background()
}
