// internal/mailer/dispatch.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/infonomu/bni/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderLoader resolves an order together with its product and the
// product's seller, and records the outcome of the email dispatch.
type OrderLoader interface {
	LoadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	SetEmailStatus(ctx context.Context, orderID uuid.UUID, status models.EmailStatus, sentAt *time.Time) error
}

// DispatchResult reports which of the two notification emails went out.
// Success means at least one recipient got theirs.
type DispatchResult struct {
	Success         bool      `json:"success"`
	SellerEmailSent bool      `json:"sellerEmailSent"`
	BuyerEmailSent  bool      `json:"buyerEmailSent"`
	OrderID         uuid.UUID `json:"order_id"`
}

// Dispatcher sends the seller and buyer notification emails for an order
// and writes the resulting email status back exactly once.
type Dispatcher struct {
	loader OrderLoader
	sender EmailSender
}

func NewDispatcher(loader OrderLoader, sender EmailSender) *Dispatcher {
	return &Dispatcher{loader: loader, sender: sender}
}

// Dispatch loads the order, sends both emails independently, and records
// the outcome. A recipient without an address is skipped, not failed.
// The status write happens only after both sends have settled.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID uuid.UUID) (*DispatchResult, error) {
	order, err := d.loader.LoadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Product == nil || order.Product.Seller == nil {
		return nil, ErrOrderNotFound
	}

	product := order.Product
	seller := product.Seller
	total := product.Price * int64(order.Quantity)

	data := emailData{
		ProductName:   product.Name,
		UnitPrice:     formatKRW(product.Price),
		Quantity:      order.Quantity,
		TotalPrice:    formatKRW(total),
		BuyerName:     order.BuyerName,
		BuyerEmail:    order.BuyerEmail,
		BuyerPhone:    order.BuyerPhone,
		BuyerAddress:  order.BuyerAddress,
		Message:       order.Message,
		SellerName:    seller.Name,
		SellerCompany: seller.Company,
		OrderedAt:     formatKST(order.CreatedAt),
	}

	result := &DispatchResult{OrderID: orderID}

	if seller.Email != "" {
		result.SellerEmailSent = d.sendOne(ctx, seller.Email,
			fmt.Sprintf("[BNI 마포 설선물관] 새 주문 - %s", product.Name),
			func() (string, error) { return renderSellerEmail(data) },
			"seller")
	}

	if order.BuyerEmail != "" {
		result.BuyerEmailSent = d.sendOne(ctx, order.BuyerEmail,
			fmt.Sprintf("[BNI 마포 설선물관] 주문 확인 - %s", product.Name),
			func() (string, error) { return renderBuyerEmail(data) },
			"buyer")
	}

	result.Success = result.SellerEmailSent || result.BuyerEmailSent

	status := models.EmailStatusFailed
	var sentAt *time.Time
	if result.Success {
		status = models.EmailStatusSent
		now := time.Now()
		sentAt = &now
	}
	if err := d.loader.SetEmailStatus(ctx, orderID, status, sentAt); err != nil {
		logrus.WithError(err).WithField("order_id", orderID).Error("failed to record email status")
	}

	return result, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, to, subject string, render func() (string, error), role string) bool {
	html, err := render()
	if err != nil {
		logrus.WithError(err).WithField("recipient", role).Error("email render failed")
		return false
	}
	if err := d.sender.Send(ctx, to, subject, html); err != nil {
		logrus.WithError(err).WithField("recipient", role).Error("email send failed")
		return false
	}
	return true
}

// Invoke adapts the dispatcher to the detached invocation the order
// pipeline fires. The result payload is dropped; outcome lives in
// email_status.
func (d *Dispatcher) Invoke(ctx context.Context, orderID uuid.UUID) error {
	result, err := d.Dispatch(ctx, orderID)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("no notification email was delivered for order %s", orderID)
	}
	return nil
}

// GormOrderLoader is the database-backed loader used in production.
type GormOrderLoader struct {
	db *gorm.DB
}

func NewGormOrderLoader(db *gorm.DB) *GormOrderLoader {
	return &GormOrderLoader{db: db}
}

func (l *GormOrderLoader) LoadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := l.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Seller").
		First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func (l *GormOrderLoader) SetEmailStatus(ctx context.Context, orderID uuid.UUID, status models.EmailStatus, sentAt *time.Time) error {
	return l.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"email_status":  status,
			"email_sent_at": sentAt,
		}).Error
}
