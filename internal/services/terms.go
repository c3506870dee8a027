package services

import (
	"context"
	"errors"

	"github.com/diewo77/fakturera/internal/apperr"
	"github.com/diewo77/fakturera/internal/models"
	"gorm.io/gorm"
)

// TermsService manages the localized legal terms. The invariant it guards:
// at most one active Terms row per language.
type TermsService struct {
	db *gorm.DB
}

func NewTermsService(db *gorm.DB) *TermsService {
	return &TermsService{db: db}
}

// GetByLanguage returns the most recently created active terms for a language.
func (s *TermsService) GetByLanguage(ctx context.Context, language string) (*models.Terms, error) {
	if !models.ValidTermsLanguage(language) {
		return nil, apperr.Validation("invalid_language", map[string]string{"language": "not_allowed"})
	}
	var terms models.Terms
	err := s.db.WithContext(ctx).
		Where("language = ? AND is_active = ?", language, true).
		Order("created_at DESC").
		First(&terms).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("terms_not_found")
		}
		return nil, apperr.Storage("load_terms", err)
	}
	return &terms, nil
}

// ListTermsParams filter the admin terms listing.
type ListTermsParams struct {
	Language  string
	IsActive  *bool
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

var termsSortFields = map[string]string{
	"created_at": "created_at",
	"language":   "language",
	"version":    "version",
}

// List returns one page of terms rows plus the unpaged total.
func (s *TermsService) List(ctx context.Context, p ListTermsParams) ([]models.Terms, int64, error) {
	page, limit := normalizePage(p.Page, p.Limit, 20)

	q := s.db.WithContext(ctx).Model(&models.Terms{})
	if p.Language != "" {
		q = q.Where("language = ?", p.Language)
	}
	if p.IsActive != nil {
		q = q.Where("is_active = ?", *p.IsActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Storage("count_terms", err)
	}

	var terms []models.Terms
	err := q.Order(SortClause(termsSortFields, p.SortBy, p.SortOrder, "created_at DESC")).
		Limit(limit).Offset((page - 1) * limit).
		Find(&terms).Error
	if err != nil {
		return nil, 0, apperr.Storage("list_terms", err)
	}
	return terms, total, nil
}

// CreateTermsInput is the typed create command.
type CreateTermsInput struct {
	Language string
	Content  string
	Version  string
	IsActive bool
}

// Create inserts a terms row. Activating it deactivates every other row for
// the same language within the same transaction.
func (s *TermsService) Create(ctx context.Context, in CreateTermsInput) (*models.Terms, error) {
	if !models.ValidTermsLanguage(in.Language) {
		return nil, apperr.Validation("invalid_language", map[string]string{"language": "not_allowed"})
	}
	if in.Content == "" {
		return nil, apperr.Validation("content_required", map[string]string{"content": "required"})
	}
	version := in.Version
	if version == "" {
		version = "1.0.0"
	}

	terms := &models.Terms{
		Language: in.Language,
		Content:  in.Content,
		Version:  version,
		IsActive: in.IsActive,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IsActive {
			if err := tx.Model(&models.Terms{}).
				Where("language = ?", in.Language).
				Update("is_active", false).Error; err != nil {
				return apperr.Storage("deactivate_terms", err)
			}
		}
		if err := tx.Create(terms).Error; err != nil {
			return apperr.Storage("insert_terms", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return terms, nil
}

// UpdateTermsInput is the typed patch command. Nil fields are untouched.
type UpdateTermsInput struct {
	Language *string
	Content  *string
	Version  *string
	IsActive *bool
}

// Update patches a terms row, preserving the single-active-row invariant when
// the row becomes active.
func (s *TermsService) Update(ctx context.Context, id uint, in UpdateTermsInput) (*models.Terms, error) {
	if in.Language != nil && !models.ValidTermsLanguage(*in.Language) {
		return nil, apperr.Validation("invalid_language", map[string]string{"language": "not_allowed"})
	}

	var terms models.Terms
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&terms, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("terms_not_found")
			}
			return apperr.Storage("load_terms", err)
		}

		if in.Language != nil {
			terms.Language = *in.Language
		}
		if in.Content != nil {
			terms.Content = *in.Content
		}
		if in.Version != nil {
			terms.Version = *in.Version
		}
		if in.IsActive != nil {
			terms.IsActive = *in.IsActive
		}

		if terms.IsActive {
			if err := tx.Model(&models.Terms{}).
				Where("language = ? AND id <> ?", terms.Language, terms.ID).
				Update("is_active", false).Error; err != nil {
				return apperr.Storage("deactivate_terms", err)
			}
		}
		if err := tx.Save(&terms).Error; err != nil {
			return apperr.Storage("update_terms", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &terms, nil
}

// Delete removes a terms row.
func (s *TermsService) Delete(ctx context.Context, id uint) error {
	var terms models.Terms
	if err := s.db.WithContext(ctx).First(&terms, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("terms_not_found")
		}
		return apperr.Storage("load_terms", err)
	}
	if err := s.db.WithContext(ctx).Delete(&terms).Error; err != nil {
		return apperr.Storage("delete_terms", err)
	}
	return nil
}
