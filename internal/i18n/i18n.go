// Package i18n provides the bilingual (sv/en) message table used for
// user-facing responses. Swedish is the product default.
package i18n

import "strings"

const DefaultLanguage = "sv"

var translations = map[string]map[string]string{
	"sv": {
		"required":              "Obligatoriskt fält",
		"invalid_email":         "Ogiltig e-postadress",
		"email_already_exists":  "Användare med denna e-post finns redan",
		"registered":            "Användare registrerad framgångsrikt",
		"registration_failed":   "Registrering misslyckades på grund av serverfel",
		"invalid_credentials":   "Fel e-post eller lösenord",
		"account_deactivated":   "Kontot är avaktiverat",
		"invoice_created":       "Faktura skapad",
		"invoice_sent":          "Faktura skickad",
		"invoice_deleted":       "Faktura borttagen",
		"customer_deleted":      "Kund borttagen",
		"product_deleted":       "Produkt borttagen",
		"terms_deleted":         "Villkor borttagna",
		"article_no_exists":     "En produkt med detta artikelnummer finns redan",
	},
	"en": {
		"required":              "This field is required",
		"invalid_email":         "Invalid email address",
		"email_already_exists":  "User with this email already exists",
		"registered":            "User registered successfully",
		"registration_failed":   "Registration failed due to server error",
		"invalid_credentials":   "Invalid email or password",
		"account_deactivated":   "Account is deactivated",
		"invoice_created":       "Invoice created",
		"invoice_sent":          "Invoice sent",
		"invoice_deleted":       "Invoice deleted successfully",
		"customer_deleted":      "Customer deleted successfully",
		"product_deleted":       "Product deleted successfully",
		"terms_deleted":         "Terms deleted successfully",
		"article_no_exists":     "A product with this article number already exists",
	},
}

// T translates a message code for the given language. Unknown languages fall
// back to Swedish; unknown codes fall back to the code itself.
func T(lang, code string) string {
	m, ok := translations[lang]
	if !ok {
		m = translations[DefaultLanguage]
	}
	if s, ok := m[code]; ok {
		return s
	}
	if lang != DefaultLanguage {
		if s, ok := translations[DefaultLanguage][code]; ok {
			return s
		}
	}
	return code
}

// DetectLanguage picks a supported language from an Accept-Language header
// value, defaulting to Swedish.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		lang := strings.ToLower(strings.TrimSpace(part))
		if i := strings.IndexAny(lang, "-;"); i >= 0 {
			lang = lang[:i]
		}
		if _, ok := translations[lang]; ok {
			return lang
		}
	}
	return DefaultLanguage
}
