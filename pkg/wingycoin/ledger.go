package wingycoin

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type ledgerAccount struct {
	id           string
	email        string
	username     string
	passwordHash []byte
	wingy        decimal.Decimal
	completedAds int
}

// Ledger is an in-process stand-in for the Wingy Coin service used in development and tests.
// It answers the same three operations and fails with the same GatewayError shapes.
type Ledger struct {
	mu       sync.RWMutex
	byID     map[string]*ledgerAccount
	byEmail  map[string]*ledgerAccount
	byName   map[string]*ledgerAccount
	hashCost int
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byID:     make(map[string]*ledgerAccount),
		byEmail:  make(map[string]*ledgerAccount),
		byName:   make(map[string]*ledgerAccount),
		hashCost: bcrypt.DefaultCost,
	}
}

// WithHashCost lowers the bcrypt cost, which keeps tests fast.
func (l *Ledger) WithHashCost(cost int) *Ledger {
	l.hashCost = cost
	return l
}

func (l *Ledger) Signup(_ context.Context, email, password, username string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.ToLower(username)
	if email == "" || password == "" {
		return "", &GatewayError{Op: "signup", StatusCode: http.StatusBadRequest, Message: "Email and password are required"}
	}
	if len(password) < 6 {
		return "", &GatewayError{Op: "signup", StatusCode: http.StatusBadRequest, Message: "Password should be at least 6 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.hashCost)
	if err != nil {
		return "", &GatewayError{Op: "signup", StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byEmail[email]; ok {
		return "", &GatewayError{Op: "signup", StatusCode: http.StatusBadRequest, Message: "User already registered"}
	}
	if _, ok := l.byName[username]; ok {
		return "", &GatewayError{Op: "signup", StatusCode: http.StatusBadRequest, Message: "Username already taken"}
	}

	acc := &ledgerAccount{
		id:           uuid.NewString(),
		email:        email,
		username:     username,
		passwordHash: hash,
		wingy:        decimal.Zero,
	}
	l.byID[acc.id] = acc
	l.byEmail[email] = acc
	l.byName[username] = acc
	return acc.id, nil
}

func (l *Ledger) Login(_ context.Context, email, password string) (*User, error) {
	l.mu.RLock()
	acc, ok := l.byEmail[strings.ToLower(strings.TrimSpace(email))]
	l.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		return nil, &GatewayError{Op: "login", StatusCode: http.StatusBadRequest, Message: "Invalid login credentials"}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return &User{
		ID:           acc.id,
		Email:        acc.email,
		CompletedAds: acc.completedAds,
		Wingy:        acc.wingy,
	}, nil
}

func (l *Ledger) CheckBalance(_ context.Context, userID string) (*Balance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.byID[userID]
	if !ok {
		return nil, &GatewayError{Op: "check-balance", StatusCode: http.StatusNotFound, Message: "User not found"}
	}
	return &Balance{Wingy: acc.wingy, CompletedAds: acc.completedAds}, nil
}

// Credit adds coins and completed ads to an account, as watching an ad would upstream.
func (l *Ledger) Credit(userID string, wingy decimal.Decimal, ads int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.byID[userID]
	if !ok {
		return &GatewayError{Op: "credit", StatusCode: http.StatusNotFound, Message: "User not found"}
	}
	acc.wingy = acc.wingy.Add(wingy)
	acc.completedAds += ads
	return nil
}
