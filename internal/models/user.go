package models

import (
	"time"
)

// Role determines which operations a user may perform.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Language codes supported for user-facing content.
const (
	LangSwedish = "sv"
	LangEnglish = "en"
)

// User represents an account. A user owns customers, products and invoices.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed
	Company  string `gorm:"size:255" json:"company,omitempty"`
	Language string `gorm:"size:2;not null;default:'sv'" json:"language"`
	Role     Role   `gorm:"size:10;not null;default:'user'" json:"role"`

	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// GetUserID implements the Ownable interface: a user owns their own row.
func (u *User) GetUserID() uint {
	return u.ID
}
