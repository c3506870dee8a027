package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestT(t *testing.T) {
	assert.Equal(t, "Fel e-post eller lösenord", T("sv", "invalid_credentials"))
	assert.Equal(t, "Invalid email or password", T("en", "invalid_credentials"))

	// Unknown language falls back to Swedish.
	assert.Equal(t, "Fel e-post eller lösenord", T("de", "invalid_credentials"))

	// Unknown code falls back to the code itself.
	assert.Equal(t, "no_such_code", T("sv", "no_such_code"))
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", "sv"},
		{"sv", "sv"},
		{"en", "en"},
		{"en-US,en;q=0.9", "en"},
		{"sv-SE,sv;q=0.9,en;q=0.8", "sv"},
		{"de-DE,de;q=0.9", "sv"},
		{"de-DE,en;q=0.8", "en"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectLanguage(tc.header), "header=%q", tc.header)
	}
}
