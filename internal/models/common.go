// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enums
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// EmailStatus tracks order notification delivery. It transitions exactly
// once, pending -> sent|failed, and only the dispatch function writes it.
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// Category is the fixed catalog taxonomy. "all" is a filter value only and
// never stored on a product.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var Categories = []Category{
	{ID: "all", Name: "전체"},
	{ID: "food", Name: "식품/음료"},
	{ID: "living", Name: "생활/뷰티"},
	{ID: "health", Name: "건강/웰빙"},
	{ID: "culture", Name: "문화/체험"},
	{ID: "biz", Name: "기업서비스"},
	{ID: "etc", Name: "기타"},
}

func ValidCategory(id string) bool {
	for _, c := range Categories {
		if c.ID == id && c.ID != "all" {
			return true
		}
	}
	return false
}
