package repositories

import (
	"fmt"

	"wingyshop/internal/models"
)

// CreateProduct creates a new product in pending status.
func (s *GORMStore) CreateProduct(product *models.Product, sellerID uint) error {
	product.ID = 0
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

	if err := s.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetProducts retrieves products in insertion order, filtered by status when set.
func (s *GORMStore) GetProducts(status models.ProductStatus) ([]models.Product, error) {
	q := s.db.Order("id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

func (s *GORMStore) GetProduct(id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "product with ID %d", id)
	}
	return &product, nil
}

func (s *GORMStore) GetProductsBySeller(sellerID uint) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.Where("seller_id = ?", sellerID).Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get products of seller %d: %w", sellerID, err)
	}
	return products, nil
}

func (s *GORMStore) UpdateProductStatus(id uint, status models.ProductStatus) error {
	if err := s.db.Model(&models.Product{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update status of product %d: %w", id, err)
	}
	return nil
}

func (s *GORMStore) UpdateProductStock(id uint, stock int) error {
	if err := s.db.Model(&models.Product{}).Where("id = ?", id).Update("stock", max(stock, 0)).Error; err != nil {
		return fmt.Errorf("failed to update stock of product %d: %w", id, err)
	}
	return nil
}
