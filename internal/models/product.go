package models

import "time"

// Product is a price-list entry. UserID is nil for rows in the public catalog
// and set for rows owned by a user. ArticleNo is unique per owner, not
// globally (enforced by ProductService, backed by a composite index).
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID *uint `gorm:"index:idx_products_owner_article,priority:1" json:"user_id,omitempty"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	Name        string  `gorm:"size:255;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	Price       float64 `gorm:"not null;default:0" json:"price"`
	InPrice     float64 `gorm:"default:0" json:"in_price"`
	ArticleNo   string  `gorm:"size:50;index:idx_products_owner_article,priority:2" json:"article_no,omitempty"`
	Unit        string  `gorm:"size:20;default:'st'" json:"unit,omitempty"`
	InStock     int     `gorm:"not null;default:0" json:"in_stock"`
	Category    string  `gorm:"size:100" json:"category,omitempty"`
	ImageURL    string  `gorm:"size:255" json:"image_url,omitempty"`
	IsActive    bool    `gorm:"not null;default:true" json:"is_active"`
}

// GetUserID implements the Ownable interface. Catalog products (no owner)
// report owner zero and are readable by everyone.
func (p *Product) GetUserID() uint {
	if p.UserID == nil {
		return 0
	}
	return *p.UserID
}
