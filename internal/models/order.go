// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinOrderQuantity = 1
	MaxOrderQuantity = 99
	MaxOrderMessage  = 300
)

// Order is created once by a buyer (authenticated or anonymous) and is
// immutable afterwards, except for EmailStatus/EmailSentAt which the
// notification dispatch function writes exactly once.
type Order struct {
	BaseModel
	ProductID    uuid.UUID   `json:"product_id" gorm:"type:uuid;not null;index"`
	SellerID     uuid.UUID   `json:"seller_id" gorm:"type:uuid;not null;index"`
	BuyerID      *uuid.UUID  `json:"buyer_id,omitempty" gorm:"type:uuid;index"`
	BuyerName    string      `json:"buyer_name" gorm:"size:100;not null"`
	BuyerEmail   string      `json:"buyer_email" gorm:"size:255"`
	BuyerPhone   string      `json:"buyer_phone" gorm:"size:20"`
	BuyerChapter string      `json:"buyer_chapter" gorm:"size:100"`
	BuyerAddress string      `json:"buyer_address" gorm:"size:500"`
	Quantity     int         `json:"quantity" gorm:"not null"`
	Message      string      `json:"message" gorm:"size:300"`
	EmailStatus  EmailStatus `json:"email_status" gorm:"type:varchar(10);default:'pending';index"`
	EmailSentAt  *time.Time  `json:"email_sent_at,omitempty"`

	// Orders outlive their product: seller attribution is copied onto the
	// row at creation, no cascade, and joins tolerate a missing product.
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
