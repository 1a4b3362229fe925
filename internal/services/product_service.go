// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/infonomu/bni/internal/models"
	"github.com/infonomu/bni/internal/query"
	"github.com/infonomu/bni/internal/utils"
)

// writeTimeout bounds direct product insert/update calls. On expiry the
// outcome is unknown to the caller; no rollback is attempted.
const writeTimeout = 10 * time.Second

var (
	ErrTimeout         = errors.New("request timed out")
	ErrProductNotFound = errors.New("product not found")
	ErrNotOwner        = errors.New("unauthorized to modify this product")
)

type ProductService struct {
	db   *gorm.DB
	exec *query.Executor

	queryOpts *query.Options
	fetchMine func(ctx context.Context, sellerID uuid.UUID) (interface{}, error)
}

type CreateProductRequest struct {
	Name             string   `json:"name" validate:"required,min=2,max=255"`
	Description      string   `json:"description"`
	Price            int64    `json:"price" validate:"min=0"`
	PriceMax         *int64   `json:"price_max,omitempty" validate:"omitempty,min=0"`
	Category         string   `json:"category" validate:"required"`
	Images           []string `json:"images,omitempty" validate:"max=3"`
	SiteURL          string   `json:"site_url,omitempty" validate:"omitempty,url"`
	AcceptEmailOrder *bool    `json:"accept_email_order,omitempty"`
}

type UpdateProductRequest struct {
	Name             string   `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description      *string  `json:"description,omitempty"`
	Price            *int64   `json:"price,omitempty" validate:"omitempty,min=0"`
	PriceMax         *int64   `json:"price_max,omitempty" validate:"omitempty,min=0"`
	Category         string   `json:"category,omitempty"`
	Images           []string `json:"images,omitempty" validate:"omitempty,max=3"`
	SiteURL          *string  `json:"site_url,omitempty"`
	AcceptEmailOrder *bool    `json:"accept_email_order,omitempty"`
	IsActive         *bool    `json:"is_active,omitempty"`
}

func NewProductService(db *gorm.DB, exec *query.Executor) *ProductService {
	if exec == nil {
		exec = query.NewExecutor(nil)
	}
	s := &ProductService{db: db, exec: exec}
	s.fetchMine = s.sellerProductsQuery
	return s
}

func (s *ProductService) CreateProduct(ctx context.Context, sellerID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !models.ValidCategory(req.Category) {
		return nil, errors.New("invalid category")
	}

	if len(req.Images) > models.MaxProductImages {
		return nil, fmt.Errorf("at most %d images per product", models.MaxProductImages)
	}

	product := &models.Product{
		SellerID:         sellerID,
		Name:             req.Name,
		Description:      req.Description,
		Price:            req.Price,
		PriceMax:         req.PriceMax,
		Category:         req.Category,
		Images:           pq.StringArray(req.Images),
		SiteURL:          req.SiteURL,
		AcceptEmailOrder: true,
		IsActive:         true,
	}
	if req.AcceptEmailOrder != nil {
		product.AcceptEmailOrder = *req.AcceptEmailOrder
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := s.db.WithContext(wctx).Create(product).Error; err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(wctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.db.WithContext(ctx).Preload("Seller").First(product, "id = ?", product.ID)

	return product, nil
}

// UpdateProduct rejects callers who are neither the owner nor admin before
// issuing any write.
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, caller *models.Profile, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !product.CanModify(caller) {
		return nil, ErrNotOwner
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.PriceMax != nil {
		updates["price_max"] = *req.PriceMax
	}
	if req.Category != "" {
		if !models.ValidCategory(req.Category) {
			return nil, errors.New("invalid category")
		}
		updates["category"] = req.Category
	}
	if req.Images != nil {
		if len(req.Images) > models.MaxProductImages {
			return nil, fmt.Errorf("at most %d images per product", models.MaxProductImages)
		}
		updates["images"] = pq.StringArray(req.Images)
	}
	if req.SiteURL != nil {
		updates["site_url"] = *req.SiteURL
	}
	if req.AcceptEmailOrder != nil {
		updates["accept_email_order"] = *req.AcceptEmailOrder
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return &product, nil
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := s.db.WithContext(wctx).Model(&product).Updates(updates).Error; err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(wctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.db.WithContext(ctx).Preload("Seller").First(&product, "id = ?", id)

	return &product, nil
}

// DeleteProduct hard-deletes a product. Historical orders keep their
// product_id; reads tolerate the orphan.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID, caller *models.Profile) error {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}

	if !product.CanModify(caller) {
		return ErrNotOwner
	}

	if err := s.db.WithContext(ctx).Delete(&product).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return nil
}

// GetSellerProducts lists a seller's own products, newest first, active or
// not, through the resilient executor.
func (s *ProductService) GetSellerProducts(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	data, err := s.exec.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.fetchMine(ctx, sellerID)
	}, s.queryOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seller products: %w", err)
	}
	if data == nil {
		// Swallowed cancellation.
		return nil, nil
	}
	return data.([]models.Product), nil
}

func (s *ProductService) sellerProductsQuery(ctx context.Context, sellerID uuid.UUID) (interface{}, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&products).Error; err != nil {
		return nil, &query.QueryError{Message: err.Error()}
	}
	return products, nil
}
