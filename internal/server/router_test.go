package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/fakturera/internal/config"
	"github.com/diewo77/fakturera/internal/models"
	"github.com/diewo77/fakturera/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testHandler(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.Product{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Terms{},
	))
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpiryHours: 1},
		App: config.AppConfig{Env: "test", BcryptCost: 4},
	}
	return server.New(db, cfg), db
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Anna Andersson",
		"email":    email,
		"password": "hemligt123",
		"language": "sv",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealth(t *testing.T) {
	h, _ := testHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	h, _ := testHandler(t)
	token := registerUser(t, h, "anna@example.com")

	// Duplicate registration conflicts with a Swedish message.
	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Anna Igen",
		"email":    "anna@example.com",
		"password": "hemligt123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "finns redan")

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "anna@example.com",
		"password": "hemligt123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "anna@example.com",
		"password": "fel",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/auth/profile", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anna@example.com")
	assert.NotContains(t, rec.Body.String(), "hemligt123")
}

func TestInvoiceFlow(t *testing.T) {
	h, _ := testHandler(t)
	token := registerUser(t, h, "anna@example.com")

	// A token is required.
	rec := doJSON(t, h, http.MethodGet, "/api/invoices", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/customers", token, map[string]any{
		"name":    "Acme AB",
		"email":   "faktura@acme.se",
		"country": "Sverige",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var customer models.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &customer))

	rec = doJSON(t, h, http.MethodPost, "/api/invoices", token, map[string]any{
		"customer_id": customer.ID,
		"due_date":    "2026-09-30T00:00:00Z",
		"items": []map[string]any{
			{"description": "Konsulttimmar", "quantity": 2, "unit_price": 100},
			{"description": "Resa", "quantity": 1, "unit_price": 50},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Invoice models.Invoice `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "INV-001", created.Invoice.InvoiceNumber)
	assert.Equal(t, 312.5, created.Invoice.Total)

	// Empty items are refused.
	rec = doJSON(t, h, http.MethodPost, "/api/invoices", token, map[string]any{
		"customer_id": customer.ID,
		"due_date":    "2026-09-30T00:00:00Z",
		"items":       []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Another user cannot see the invoice.
	otherToken := registerUser(t, h, "bo@example.com")
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/invoices/%d", created.Invoice.ID), otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/invoices/%d/send", created.Invoice.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/invoices?status=sent", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []models.Invoice `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, models.InvoiceStatusSent, list.Data[0].Status)
}

func TestCustomerOwnershipGate(t *testing.T) {
	h, _ := testHandler(t)
	ownerToken := registerUser(t, h, "anna@example.com")
	otherToken := registerUser(t, h, "bo@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/customers", ownerToken, map[string]any{"name": "Acme AB"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var customer models.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &customer))

	// Another user's customer reads as not found, not forbidden.
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/customers/%d", customer.ID), otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/customers/%d", customer.ID), ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTermsAdminGate(t *testing.T) {
	h, db := testHandler(t)
	userToken := registerUser(t, h, "anna@example.com")

	// No active terms yet.
	rec := doJSON(t, h, http.MethodGet, "/api/terms/sv", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Regular users cannot manage terms.
	rec = doJSON(t, h, http.MethodPost, "/api/terms", userToken, map[string]any{
		"language": "sv", "content": "<p>villkor</p>", "is_active": true,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Promote a second user to admin and retry.
	adminToken := registerUser(t, h, "admin@example.com")
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "admin@example.com").Update("role", models.RoleAdmin).Error)
	// Re-login so the token carries the admin role.
	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "admin@example.com", "password": "hemligt123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	adminToken = login.Token

	rec = doJSON(t, h, http.MethodPost, "/api/terms", adminToken, map[string]any{
		"language": "sv", "content": "<p>villkor</p>", "is_active": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The active terms are public.
	rec = doJSON(t, h, http.MethodGet, "/api/terms/sv", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "villkor")
}

func TestPublicPriceList(t *testing.T) {
	h, db := testHandler(t)
	require.NoError(t, db.Create(&models.Product{Name: "Standardtjänst", Price: 500, Unit: "st", IsActive: true}).Error)

	rec := doJSON(t, h, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Standardtjänst")

	// Creating products still needs a token.
	rec = doJSON(t, h, http.MethodPost, "/api/products", "", map[string]any{"name": "X", "price": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserAdminEndpoints(t *testing.T) {
	h, db := testHandler(t)
	registerUser(t, h, "anna@example.com")
	registerUser(t, h, "admin@example.com")
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "admin@example.com").Update("role", models.RoleAdmin).Error)
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "admin@example.com", "password": "hemligt123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
		User  models.User
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = doJSON(t, h, http.MethodGet, "/api/users", login.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anna@example.com")

	// Admins cannot delete themselves.
	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/users/%d", login.User.ID), login.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCanResetUserPassword(t *testing.T) {
	h, db := testHandler(t)
	registerUser(t, h, "anna@example.com")
	registerUser(t, h, "admin@example.com")
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "admin@example.com").Update("role", models.RoleAdmin).Error)
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "admin@example.com", "password": "hemligt123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	var anna models.User
	require.NoError(t, db.Where("email = ?", "anna@example.com").First(&anna).Error)

	// Too-short replacement is refused.
	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/users/%d", anna.ID), login.Token, map[string]any{
		"password": "kort",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/users/%d", anna.ID), login.Token, map[string]any{
		"password": "nyttlösenord",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The old password no longer works, the new one does.
	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "anna@example.com", "password": "hemligt123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "anna@example.com", "password": "nyttlösenord",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
