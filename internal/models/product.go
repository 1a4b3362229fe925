// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const MaxProductImages = 3

type Product struct {
	BaseModel
	SellerID         uuid.UUID      `json:"seller_id" gorm:"type:uuid;not null;index"`
	Name             string         `json:"name" gorm:"size:255;not null"`
	Description      string         `json:"description" gorm:"type:text"`
	Price            int64          `json:"price" gorm:"not null;check:price >= 0"`
	PriceMax         *int64         `json:"price_max,omitempty"`
	Category         string         `json:"category" gorm:"size:50;index"`
	Images           pq.StringArray `json:"images" gorm:"type:text[]"`
	SiteURL          string         `json:"site_url" gorm:"size:500"`
	AcceptEmailOrder bool           `json:"accept_email_order" gorm:"default:true"`
	IsActive         bool           `json:"is_active" gorm:"default:true;index"`
	ViewCount        int64          `json:"view_count" gorm:"default:0"`
	OrderCount       int64          `json:"order_count" gorm:"default:0"`

	// Relationships
	Seller *Profile `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
}

// CanModify reports whether the given profile may edit or delete the
// product: the owning seller, or an admin. Checked before any write call.
func (p *Product) CanModify(profile *Profile) bool {
	if profile == nil {
		return false
	}
	return profile.IsAdmin() || p.SellerID == profile.ID
}
