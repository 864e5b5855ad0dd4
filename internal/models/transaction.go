package models

import "time"

// TransactionStatus is the settlement state of a purchase.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Side identifies which party of a transaction is acting.
type Side string

const (
	SideBuyer  Side = "buyer"
	SideSeller Side = "seller"
)

// Transaction is a purchase intent and, once both parties confirm, its settlement record.
type Transaction struct {
	ID              uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	ProductID       uint              `json:"productId" gorm:"index;not null"`
	BuyerID         uint              `json:"buyerId" gorm:"index;not null"`
	SellerID        uint              `json:"sellerId" gorm:"index;not null"`
	Amount          string            `json:"amount" gorm:"type:varchar(32);not null"` // Price at the time of purchase
	Status          TransactionStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	BuyerConfirmed  bool              `json:"buyerConfirmed" gorm:"not null;default:false"`
	SellerConfirmed bool              `json:"sellerConfirmed" gorm:"not null;default:false"`
	CreatedAt       time.Time         `json:"createdAt" gorm:"index"`
	CompletedAt     *time.Time        `json:"completedAt"`
	SettledAt       *time.Time        `json:"settledAt,omitempty"`
}

// SideOf returns the side userID acts on, or false when userID is not a party.
func (t *Transaction) SideOf(userID uint) (Side, bool) {
	switch userID {
	case t.BuyerID:
		return SideBuyer, true
	case t.SellerID:
		return SideSeller, true
	}
	return "", false
}

// Settlement describes the balance transfer and stock decrement applied when a transaction completes.
type Settlement struct {
	TransactionID uint
	ProductID     uint
	BuyerID       uint
	SellerID      uint
	Amount        string
}
