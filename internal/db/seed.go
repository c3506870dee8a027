package db

import (
	"github.com/diewo77/fakturera/internal/models"
	"gorm.io/gorm"
)

// Seed inserts the default legal terms and the demo price list when they are
// missing. Safe to run on every startup.
func Seed(db *gorm.DB) error {
	if err := seedTerms(db); err != nil {
		return err
	}
	return seedProducts(db)
}

func seedTerms(db *gorm.DB) error {
	defaults := []models.Terms{
		{
			Language: models.LangSwedish,
			Version:  "1.0.0",
			IsActive: true,
			Content: "<h2>Allmänna villkor</h2>" +
				"<p><strong>GENOM ATT</strong> klicka på Fakturera Nu väljer ni att registrera er enligt " +
				"informationen ni lagt in och accepterar samtidigt villkoren här.</p>" +
				"<p>Ni kan använda programmet GRATIS i 14 dagar. Efter provperioden kostar programmet 99 kr per månad.</p>",
		},
		{
			Language: models.LangEnglish,
			Version:  "1.0.0",
			IsActive: true,
			Content: "<h2>Terms and Conditions</h2>" +
				"<p><strong>BY</strong> clicking Invoice Now you choose to register according to the information " +
				"you have entered and at the same time accept the terms here.</p>" +
				"<p>You can use the program FREE for 14 days. After the trial period the program costs 99 SEK per month.</p>",
		},
	}
	for _, t := range defaults {
		var count int64
		if err := db.Model(&models.Terms{}).Where("language = ?", t.Language).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&t).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func seedProducts(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Product{}).Where("user_id IS NULL").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	// Public catalog rows shown on the price list before login.
	catalog := []models.Product{
		{Name: "Konsulttjänst", Description: "Konsultarbete per timme", Price: 1200, InPrice: 800, ArticleNo: "ART-001", Unit: "h", InStock: 0, Category: "Tjänster", IsActive: true},
		{Name: "Webbutveckling", Description: "Utveckling av webbplats", Price: 950, InPrice: 600, ArticleNo: "ART-002", Unit: "h", InStock: 0, Category: "Tjänster", IsActive: true},
		{Name: "Serverdrift", Description: "Månadsvis drift och övervakning", Price: 499, InPrice: 250, ArticleNo: "ART-003", Unit: "st", InStock: 100, Category: "Drift", IsActive: true},
		{Name: "Supportavtal", Description: "Support vardagar 8-17", Price: 299, InPrice: 100, ArticleNo: "ART-004", Unit: "st", InStock: 100, Category: "Support", IsActive: true},
	}
	return db.Create(&catalog).Error
}
