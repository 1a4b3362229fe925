// internal/models/profile.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Profile is the business-domain record for an authenticated identity.
// Its ID equals the identity ID, one-to-one.
type Profile struct {
	BaseModel
	Name          string     `json:"name" gorm:"size:100;not null"`
	Email         string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string     `json:"-" gorm:"size:255;not null"`
	Phone         string     `json:"phone" gorm:"size:20"`
	Chapter       string     `json:"chapter" gorm:"size:100"`
	Specialty     string     `json:"specialty" gorm:"size:100"`
	Company       string     `json:"company" gorm:"size:255"`
	PostalCode    string     `json:"postal_code" gorm:"size:10"`
	Address       string     `json:"address" gorm:"size:255"`
	AddressDetail string     `json:"address_detail" gorm:"size:255"`
	Role          Role       `json:"role" gorm:"type:varchar(20);default:'member'"`
	LastLoginAt   *time.Time `json:"last_login_at"`

	// Relationships
	Products []Product `json:"products,omitempty" gorm:"foreignKey:SellerID"`
}

func (p *Profile) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = string(hashedPassword)
	return nil
}

func (p *Profile) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password))
}

func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
