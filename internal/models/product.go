package models

import "time"

// ProductStatus is the moderation state of a listing.
type ProductStatus string

const (
	ProductStatusPending  ProductStatus = "pending"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusRejected ProductStatus = "rejected"
)

// Valid reports whether s is one of the known moderation states.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusPending, ProductStatusActive, ProductStatusRejected:
		return true
	}
	return false
}

// Product represents a listing in the marketplace.
type Product struct {
	ID          uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string        `json:"title" gorm:"type:varchar(100);not null"`
	Description string        `json:"description" gorm:"type:varchar(500);not null"`
	Price       string        `json:"price" gorm:"type:varchar(32);not null"` // Two-decimal string form
	Stock       int           `json:"stock" gorm:"not null;default:1"`
	ImageURL    *string       `json:"imageUrl" gorm:"type:varchar(2048)"`
	Tags        []string      `json:"tags" gorm:"serializer:json"`
	SellerID    uint          `json:"sellerId" gorm:"index;not null"`
	Status      ProductStatus `json:"status" gorm:"type:varchar(16);index;not null;default:'pending'"`
	CreatedAt   time.Time     `json:"createdAt"`
}
