package services

import (
	"context"
	"errors"
	"strings"

	"wingyshop/pkg/logger"
	"wingyshop/pkg/wingycoin"
)

// BalanceGateway is the remote Wingy Coin ledger. It owns credentials and coin balances.
type BalanceGateway interface {
	Login(ctx context.Context, email, password string) (*wingycoin.User, error)
	Signup(ctx context.Context, email, password, username string) (string, error)
	CheckBalance(ctx context.Context, wingyCoinUserID string) (*wingycoin.Balance, error)
}

// EventPublisher delivers marketplace events. Services accept a nil publisher.
type EventPublisher interface {
	Publish(eventType string, payload interface{}) error
}

const (
	EventTransactionCreated          = "transaction.created"
	EventTransactionConfirmed        = "transaction.confirmed"
	EventTransactionCompleted        = "transaction.completed"
	EventTransactionSettlementFailed = "transaction.settlement_failed"
	EventProductSubmitted            = "product.submitted"
	EventProductModerated            = "product.moderated"
)

// publish never fails the caller; delivery problems are only logged.
func publish(p EventPublisher, log logger.Logger, eventType string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(eventType, payload); err != nil {
		log.Warn("failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err,
		})
	}
}

// isCredentialFailure reports whether a gateway error means the email or password was wrong.
func isCredentialFailure(err error) bool {
	var gwErr *wingycoin.GatewayError
	if !errors.As(err, &gwErr) {
		return false
	}
	msg := strings.ToLower(gwErr.Message)
	return strings.Contains(msg, "invalid login credentials") ||
		strings.Contains(msg, "invalid email or password")
}
