package services

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"wingyshop/internal/models"
	"wingyshop/internal/repositories"
	"wingyshop/internal/validation"
	"wingyshop/pkg/logger"
	"wingyshop/pkg/metrics"
	"wingyshop/pkg/money"
)

// ProductInput is the body of a listing submission.
type ProductInput struct {
	Title       string   `json:"title" validate:"required,max=100"`
	Description string   `json:"description" validate:"required,max=500"`
	Price       string   `json:"price" validate:"required,price"`
	Stock       *int     `json:"stock" validate:"omitempty,min=1"`
	ImageURL    *string  `json:"imageUrl" validate:"omitempty,url"`
	Tags        []string `json:"tags" validate:"max=5,dive,max=30"`
}

// AdminChecker fails with models.ErrForbidden for non-admin users.
type AdminChecker interface {
	RequireAdmin(userID uint) error
}

// ProductService handles the listing lifecycle and catalog queries.
type ProductService struct {
	repo     repositories.ProductRepository
	admins   AdminChecker
	events   EventPublisher
	validate *validator.Validate
	maxStock int
	log      logger.Logger
}

// NewProductService creates a new ProductService. events may be nil.
func NewProductService(repo repositories.ProductRepository, admins AdminChecker, events EventPublisher, maxStock int, log logger.Logger) *ProductService {
	return &ProductService{
		repo:     repo,
		admins:   admins,
		events:   events,
		validate: validation.New(),
		maxStock: maxStock,
		log:      log,
	}
}

// SubmitProduct validates in and creates a pending listing owned by sellerID.
func (s *ProductService) SubmitProduct(sellerID uint, in ProductInput) (*models.Product, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Tags = lo.Uniq(lo.Compact(lo.Map(in.Tags, func(t string, _ int) string {
		return strings.TrimSpace(t)
	})))
	if in.ImageURL != nil && strings.TrimSpace(*in.ImageURL) == "" {
		in.ImageURL = nil
	}

	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	stock := 1
	if in.Stock != nil {
		stock = *in.Stock
	}
	if stock > s.maxStock {
		return nil, models.NewValidationError("stock", "cannot exceed %d", s.maxStock)
	}
	price, err := money.Normalize(in.Price)
	if err != nil {
		return nil, models.NewValidationError("price", "must be a valid number with at most two decimals")
	}

	product := &models.Product{
		Title:       in.Title,
		Description: in.Description,
		Price:       price,
		Stock:       stock,
		ImageURL:    in.ImageURL,
		Tags:        in.Tags,
	}
	if err := s.repo.CreateProduct(product, sellerID); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.log.Info("product submitted", map[string]interface{}{"product_id": product.ID, "seller_id": sellerID})
	publish(s.events, s.log, EventProductSubmitted, product)
	return product, nil
}

// ListProducts returns all products, or only those in status when it is not empty.
func (s *ProductService) ListProducts(status string) ([]models.Product, error) {
	st := models.ProductStatus(status)
	if status != "" && !st.Valid() {
		return nil, models.NewValidationError("status", "must be one of pending, active, rejected")
	}
	return s.repo.GetProducts(st)
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(id uint) (*models.Product, error) {
	return s.repo.GetProduct(id)
}

// ListProductsBySeller returns the listings of sellerID.
func (s *ProductService) ListProductsBySeller(sellerID uint) ([]models.Product, error) {
	return s.repo.GetProductsBySeller(sellerID)
}

// ModerateProduct moves a product to status on behalf of an admin.
func (s *ProductService) ModerateProduct(adminID, productID uint, status string) (*models.Product, error) {
	if err := s.admins.RequireAdmin(adminID); err != nil {
		return nil, err
	}
	st := models.ProductStatus(status)
	if !st.Valid() {
		return nil, models.NewValidationError("status", "must be one of pending, active, rejected")
	}
	if _, err := s.repo.GetProduct(productID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProductStatus(productID, st); err != nil {
		return nil, fmt.Errorf("failed to update product status: %w", err)
	}
	product, err := s.repo.GetProduct(productID)
	if err != nil {
		return nil, err
	}

	metrics.RecordModeration(status)
	s.log.Info("product moderated", map[string]interface{}{
		"product_id": productID,
		"admin_id":   adminID,
		"status":     status,
	})
	publish(s.events, s.log, EventProductModerated, product)
	return product, nil
}
