package models

import "time"

// Customer is a billing recipient owned by exactly one user.
// Implements Ownable for ownership-based authorization.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Name               string `gorm:"size:255;not null" json:"name"`
	Email              string `gorm:"size:255" json:"email,omitempty"`
	Phone              string `gorm:"size:50" json:"phone,omitempty"`
	Address            string `gorm:"size:255" json:"address,omitempty"`
	City               string `gorm:"size:100" json:"city,omitempty"`
	PostalCode         string `gorm:"size:20" json:"postal_code,omitempty"`
	Country            string `gorm:"size:100" json:"country,omitempty"`
	OrganizationNumber string `gorm:"size:50" json:"organization_number,omitempty"`

	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	Invoices []Invoice `gorm:"foreignKey:CustomerID" json:"invoices,omitempty"`
}

// GetUserID implements the Ownable interface.
func (c *Customer) GetUserID() uint {
	return c.UserID
}
