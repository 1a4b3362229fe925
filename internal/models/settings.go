// internal/models/settings.go
package models

import "time"

// Settings is a singleton row mutated only by admin identities.
type Settings struct {
	BaseModel
	Title     string     `json:"title" gorm:"size:255"`
	Notice    string     `json:"notice" gorm:"type:text"`
	OpenDate  *time.Time `json:"open_date"`
	CloseDate *time.Time `json:"close_date"`
	IsOpen    bool       `json:"is_open" gorm:"default:true"`
}
