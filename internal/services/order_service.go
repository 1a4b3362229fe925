// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/infonomu/bni/internal/models"
	"github.com/infonomu/bni/internal/query"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Korean mobile: 01X prefix, 3-4 digit middle, 4 digit tail, hyphens
// optional.
var mobilePattern = regexp.MustCompile(`^01[0-9][0-9]{3,4}[0-9]{4}$`)

// DispatchInvoker fires the notification dispatch function for a created
// order. Invocations are detached from order creation: the pipeline never
// waits on one and its failure never surfaces to the buyer.
type DispatchInvoker interface {
	Invoke(ctx context.Context, orderID uuid.UUID) error
}

type OrderService struct {
	db      *gorm.DB
	exec    *query.Executor
	invoker DispatchInvoker

	queryOpts     *query.Options
	fetchMine     func(ctx context.Context, buyerID uuid.UUID) (interface{}, error)
	fetchReceived func(ctx context.Context, sellerID uuid.UUID) (interface{}, error)
}

type CreateOrderRequest struct {
	ProductID    uuid.UUID  `json:"product_id"`
	BuyerID      *uuid.UUID `json:"buyer_id,omitempty"`
	BuyerName    string     `json:"buyer_name"`
	BuyerEmail   string     `json:"buyer_email"`
	BuyerPhone   string     `json:"buyer_phone"`
	BuyerChapter string     `json:"buyer_chapter,omitempty"`
	BuyerAddress string     `json:"buyer_address,omitempty"`
	Quantity     int        `json:"quantity"`
	Message      string     `json:"message,omitempty"`
}

func NewOrderService(db *gorm.DB, exec *query.Executor, invoker DispatchInvoker) *OrderService {
	if exec == nil {
		exec = query.NewExecutor(nil)
	}
	s := &OrderService{db: db, exec: exec, invoker: invoker}
	s.fetchMine = s.buyerOrdersQuery
	s.fetchReceived = s.sellerOrdersQuery
	return s
}

// ValidateOrderRequest applies the submission preconditions. Rejections
// happen before any remote call and are never retried.
func ValidateOrderRequest(req *CreateOrderRequest) error {
	if strings.TrimSpace(req.BuyerName) == "" {
		return errors.New("buyer_name is required")
	}
	if !emailPattern.MatchString(req.BuyerEmail) {
		return errors.New("enter a valid email address")
	}
	if !mobilePattern.MatchString(strings.ReplaceAll(req.BuyerPhone, "-", "")) {
		return errors.New("enter a valid mobile number")
	}
	if len([]rune(req.Message)) > models.MaxOrderMessage {
		return fmt.Errorf("message must be at most %d characters", models.MaxOrderMessage)
	}
	return nil
}

// ClampQuantity forces the quantity into [1, 99].
func ClampQuantity(q int) int {
	if q < models.MinOrderQuantity {
		return models.MinOrderQuantity
	}
	if q > models.MaxOrderQuantity {
		return models.MaxOrderQuantity
	}
	return q
}

// CreateOrder validates, persists the order with a pending email status,
// and returns as soon as the insert lands. The notification dispatch is
// fired as a detached task whose outcome is only logged; email failure is
// recorded in email_status, never surfaced as an order-creation failure.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	if err := ValidateOrderRequest(req); err != nil {
		return nil, err
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	order := buildOrder(req, &product)

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	go s.incrementOrderCount(req.ProductID)
	go s.dispatchNotification(order.ID)

	return order, nil
}

// buildOrder copies the seller attribution onto the order row so seller
// reads survive a later product deletion.
func buildOrder(req *CreateOrderRequest, product *models.Product) *models.Order {
	return &models.Order{
		ProductID:    product.ID,
		SellerID:     product.SellerID,
		BuyerID:      req.BuyerID,
		BuyerName:    strings.TrimSpace(req.BuyerName),
		BuyerEmail:   req.BuyerEmail,
		BuyerPhone:   req.BuyerPhone,
		BuyerChapter: req.BuyerChapter,
		BuyerAddress: req.BuyerAddress,
		Quantity:     ClampQuantity(req.Quantity),
		Message:      req.Message,
		EmailStatus:  models.EmailStatusPending,
	}
}

// dispatchNotification runs detached from the creating request; it must
// not inherit that request's cancellation.
func (s *OrderService) dispatchNotification(orderID uuid.UUID) {
	if s.invoker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.invoker.Invoke(ctx, orderID); err != nil {
		logrus.WithError(err).WithField("order_id", orderID).Error("order email dispatch failed")
		return
	}
	logrus.WithField("order_id", orderID).Info("order email dispatch completed")
}

func (s *OrderService) incrementOrderCount(productID uuid.UUID) {
	if err := s.db.Model(&models.Product{}).Where("id = ?", productID).
		UpdateColumn("order_count", gorm.Expr("order_count + 1")).Error; err != nil {
		logrus.WithError(err).WithField("product_id", productID).Debug("order count increment failed")
	}
}

// GetMyOrders lists a buyer's orders, newest first, through the resilient
// executor. The product join is orphan-tolerant: a deleted product leaves
// the order intact.
func (s *OrderService) GetMyOrders(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	data, err := s.exec.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.fetchMine(ctx, buyerID)
	}, s.queryOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	if data == nil {
		// Swallowed cancellation.
		return nil, nil
	}
	return data.([]models.Order), nil
}

// GetSellerOrders lists orders placed against the seller's products,
// newest first, through the resilient executor. Attribution comes off the
// order row itself, so deleted products do not hide historical orders.
func (s *OrderService) GetSellerOrders(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	data, err := s.exec.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.fetchReceived(ctx, sellerID)
	}, s.queryOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seller orders: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return data.([]models.Order), nil
}

func (s *OrderService) buyerOrdersQuery(ctx context.Context, buyerID uuid.UUID) (interface{}, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, &query.QueryError{Message: err.Error()}
	}
	return orders, nil
}

func (s *OrderService) sellerOrdersQuery(ctx context.Context, sellerID uuid.UUID) (interface{}, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, &query.QueryError{Message: err.Error()}
	}
	return orders, nil
}
