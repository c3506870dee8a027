package models

import "time"

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// ValidInvoiceStatus reports whether s is one of the known lifecycle states.
func ValidInvoiceStatus(s InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice is a billing document. Subtotal, TaxAmount and Total are derived
// from the items and recomputed on every item change; they are never taken
// from client input.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"index;not null;uniqueIndex:idx_invoices_owner_number" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	// Numbers are unique per owner; each owner runs their own INV- sequence.
	InvoiceNumber string        `gorm:"size:50;not null;uniqueIndex:idx_invoices_owner_number" json:"invoice_number"`
	Status        InvoiceStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`

	IssueDate time.Time  `gorm:"not null;index" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null;index" json:"due_date"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`

	Subtotal  float64 `gorm:"not null;default:0" json:"subtotal"`
	TaxAmount float64 `gorm:"not null;default:0" json:"tax_amount"`
	Total     float64 `gorm:"not null;default:0" json:"total"`
	Currency  string  `gorm:"size:3;not null;default:'SEK'" json:"currency"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// GetUserID implements the Ownable interface.
func (i *Invoice) GetUserID() uint {
	return i.UserID
}

// IsDraft reports whether the invoice can still be freely edited.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// InvoiceItem is one line on an invoice. LineTotal is derived from
// Quantity × UnitPrice.
type InvoiceItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	ProductID *uint    `gorm:"index" json:"product_id,omitempty"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Description string  `gorm:"size:500;not null" json:"description"`
	Quantity    float64 `gorm:"not null" json:"quantity"`
	UnitPrice   float64 `gorm:"not null" json:"unit_price"`
	TaxRate     float64 `gorm:"not null;default:25.0" json:"tax_rate"` // percent, Swedish VAT default
	LineTotal   float64 `gorm:"not null;default:0" json:"line_total"`
}

// ComputeLineTotal returns Quantity × UnitPrice at full precision.
func (item *InvoiceItem) ComputeLineTotal() float64 {
	return item.Quantity * item.UnitPrice
}

// ComputeTax returns the tax amount for this line at full precision.
func (item *InvoiceItem) ComputeTax() float64 {
	return item.ComputeLineTotal() * item.TaxRate / 100
}
