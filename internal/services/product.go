package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/fakturera/internal/apperr"
	"github.com/diewo77/fakturera/internal/models"
	"gorm.io/gorm"
)

// ProductService manages the price list. ArticleNo uniqueness is scoped to the
// owning user, not global.
type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

// ListProductsParams filter the price list. OwnerID zero lists the public
// catalog (anonymous price-list view).
type ListProductsParams struct {
	OwnerID   uint
	Search    string
	Category  string
	MinPrice  *float64
	MaxPrice  *float64
	InStock   *bool
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

var productSortFields = map[string]string{
	"name":       "name",
	"price":      "price",
	"in_stock":   "in_stock",
	"created_at": "created_at",
	"article_no": "article_no",
}

// List returns one page of products plus the unpaged total.
func (s *ProductService) List(ctx context.Context, p ListProductsParams) ([]models.Product, int64, error) {
	page, limit := normalizePage(p.Page, p.Limit, 50)

	q := s.db.WithContext(ctx).Model(&models.Product{})
	if p.OwnerID != 0 {
		q = q.Where("user_id = ?", p.OwnerID)
	} else {
		q = q.Where("user_id IS NULL")
	}
	if p.Search != "" {
		like := "%" + strings.ToLower(p.Search) + "%"
		q = q.Where("lower(name) LIKE ? OR lower(article_no) LIKE ? OR lower(description) LIKE ?", like, like, like)
	}
	if p.Category != "" {
		q = q.Where("category = ?", p.Category)
	}
	if p.MinPrice != nil {
		q = q.Where("price >= ?", *p.MinPrice)
	}
	if p.MaxPrice != nil {
		q = q.Where("price <= ?", *p.MaxPrice)
	}
	if p.InStock != nil {
		if *p.InStock {
			q = q.Where("in_stock > 0")
		} else {
			q = q.Where("in_stock = 0")
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Storage("count_products", err)
	}

	var products []models.Product
	err := q.Order(SortClause(productSortFields, p.SortBy, p.SortOrder, "created_at DESC")).
		Limit(limit).Offset((page - 1) * limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, apperr.Storage("list_products", err)
	}
	return products, total, nil
}

// Get loads a product. Catalog products are readable by everyone; owned
// products only by their owner (NotFound otherwise, existence undisclosed).
func (s *ProductService) Get(ctx context.Context, ownerID, productID uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product_not_found")
		}
		return nil, apperr.Storage("load_product", err)
	}
	if product.UserID != nil && *product.UserID != ownerID {
		return nil, apperr.NotFound("product_not_found")
	}
	return &product, nil
}

// CreateProductInput is the typed create command.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	InPrice     float64
	ArticleNo   string
	Unit        string
	InStock     int
	Category    string
	ImageURL    string
	IsActive    *bool
}

// Create inserts a product for the owner, refusing duplicate article numbers
// within that owner's list.
func (s *ProductService) Create(ctx context.Context, ownerID uint, in CreateProductInput) (*models.Product, error) {
	if err := validateProduct(in.Name, in.Price); err != nil {
		return nil, err
	}
	if in.ArticleNo != "" {
		taken, err := s.articleNoTaken(ctx, ownerID, in.ArticleNo, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("article_no_exists")
		}
	}

	unit := in.Unit
	if unit == "" {
		unit = "st"
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	product := &models.Product{
		UserID:      &ownerID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		InPrice:     in.InPrice,
		ArticleNo:   in.ArticleNo,
		Unit:        unit,
		InStock:     in.InStock,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		IsActive:    active,
	}
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("article_no_exists")
		}
		return nil, apperr.Storage("insert_product", err)
	}
	return product, nil
}

// BulkCreate inserts several products atomically; one duplicate article number
// rejects the whole batch.
func (s *ProductService) BulkCreate(ctx context.Context, ownerID uint, inputs []CreateProductInput) ([]models.Product, error) {
	if len(inputs) == 0 {
		return nil, apperr.Validation("products_required", map[string]string{"products": "required"})
	}
	var created []models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := map[string]bool{}
		for _, in := range inputs {
			if err := validateProduct(in.Name, in.Price); err != nil {
				return err
			}
			if in.ArticleNo == "" {
				continue
			}
			if seen[in.ArticleNo] {
				return apperr.Conflict("article_no_exists")
			}
			seen[in.ArticleNo] = true
			var count int64
			if err := tx.Model(&models.Product{}).
				Where("user_id = ? AND article_no = ?", ownerID, in.ArticleNo).
				Count(&count).Error; err != nil {
				return apperr.Storage("check_article_no", err)
			}
			if count > 0 {
				return apperr.Conflict("article_no_exists")
			}
		}
		for _, in := range inputs {
			owner := ownerID
			unit := in.Unit
			if unit == "" {
				unit = "st"
			}
			active := true
			if in.IsActive != nil {
				active = *in.IsActive
			}
			p := models.Product{
				UserID:      &owner,
				Name:        in.Name,
				Description: in.Description,
				Price:       in.Price,
				InPrice:     in.InPrice,
				ArticleNo:   in.ArticleNo,
				Unit:        unit,
				InStock:     in.InStock,
				Category:    in.Category,
				ImageURL:    in.ImageURL,
				IsActive:    active,
			}
			if err := tx.Create(&p).Error; err != nil {
				return apperr.Storage("insert_product", err)
			}
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateProductInput is the typed patch command. Nil fields are untouched.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	InPrice     *float64
	ArticleNo   *string
	Unit        *string
	InStock     *int
	Category    *string
	ImageURL    *string
	IsActive    *bool
}

// Update patches an owner's product, keeping articleNo unique per owner.
func (s *ProductService) Update(ctx context.Context, ownerID, productID uint, in UpdateProductInput) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", productID, ownerID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product_not_found")
		}
		return nil, apperr.Storage("load_product", err)
	}

	if in.ArticleNo != nil && *in.ArticleNo != product.ArticleNo && *in.ArticleNo != "" {
		taken, err := s.articleNoTaken(ctx, ownerID, *in.ArticleNo, product.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("article_no_exists")
		}
	}

	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if in.InPrice != nil {
		product.InPrice = *in.InPrice
	}
	if in.ArticleNo != nil {
		product.ArticleNo = *in.ArticleNo
	}
	if in.Unit != nil {
		product.Unit = *in.Unit
	}
	if in.InStock != nil {
		product.InStock = *in.InStock
	}
	if in.Category != nil {
		product.Category = *in.Category
	}
	if in.ImageURL != nil {
		product.ImageURL = *in.ImageURL
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}

	if err := validateProduct(product.Name, product.Price); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, apperr.Storage("update_product", err)
	}
	return &product, nil
}

// Delete removes an owner's product.
func (s *ProductService) Delete(ctx context.Context, ownerID, productID uint) error {
	var product models.Product
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", productID, ownerID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("product_not_found")
		}
		return apperr.Storage("load_product", err)
	}
	if err := s.db.WithContext(ctx).Delete(&product).Error; err != nil {
		return apperr.Storage("delete_product", err)
	}
	return nil
}

func (s *ProductService) articleNoTaken(ctx context.Context, ownerID uint, articleNo string, excludeID uint) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("user_id = ? AND article_no = ?", ownerID, articleNo)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, apperr.Storage("check_article_no", err)
	}
	return count > 0, nil
}

func validateProduct(name string, price float64) error {
	fields := map[string]string{}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "required"
	}
	if price < 0 {
		fields["price"] = "must_not_be_negative"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid_product", fields)
	}
	return nil
}
