package models

import "time"

// Terms holds one version of the localized legal terms. At most one row per
// language is active; TermsService enforces the swap on activation.
type Terms struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Language string `gorm:"size:5;not null;index:idx_terms_lang_active" json:"language"`
	Content  string `gorm:"type:text;not null" json:"content"`
	Version  string `gorm:"size:50;not null;default:'1.0.0'" json:"version"`
	IsActive bool   `gorm:"not null;default:true;index:idx_terms_lang_active" json:"is_active"`
}

// ValidTermsLanguage reports whether lang is a supported terms language.
func ValidTermsLanguage(lang string) bool {
	return lang == LangSwedish || lang == LangEnglish
}
