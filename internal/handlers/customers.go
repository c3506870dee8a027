package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/fakturera/internal/apperr"
	"github.com/diewo77/fakturera/internal/auth"
	"github.com/diewo77/fakturera/internal/httpx"
	"github.com/diewo77/fakturera/internal/i18n"
	"github.com/diewo77/fakturera/internal/models"
	"github.com/diewo77/fakturera/internal/policy"
	"github.com/diewo77/fakturera/internal/services"
	"github.com/diewo77/fakturera/internal/validation"
	"gorm.io/gorm"
)

// CustomersHandler serves the owner-scoped customer registry. Single-row
// access goes through the ownership gate, so admins can reach any customer
// while other users' customers read as not found.
type CustomersHandler struct {
	db    *gorm.DB
	gate  *policy.Gate
	stats *services.StatsService
}

func NewCustomersHandler(db *gorm.DB, gate *policy.Gate, stats *services.StatsService) *CustomersHandler {
	return &CustomersHandler{db: db, gate: gate, stats: stats}
}

type customerListResponse struct {
	Data       []models.Customer `json:"data"`
	Pagination pagination        `json:"pagination"`
}

var customerSortFields = map[string]string{
	"name":       "name",
	"country":    "country",
	"created_at": "created_at",
}

// List returns one page of the caller's customers.
func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	page, limit := pageParams(r, 20)

	q := h.db.WithContext(r.Context()).Model(&models.Customer{}).Where("user_id = ?", actor.ID)
	if search := r.URL.Query().Get("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("lower(name) LIKE ? OR lower(email) LIKE ? OR lower(organization_number) LIKE ?", like, like, like)
	}
	if country := r.URL.Query().Get("country"); country != "" {
		q = q.Where("country = ?", country)
	}
	if isActive := queryBoolPtr(r, "is_active"); isActive != nil {
		q = q.Where("is_active = ?", *isActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		httpx.Error(w, apperr.Storage("count_customers", err))
		return
	}

	order := services.SortClause(customerSortFields,
		r.URL.Query().Get("sort_by"), r.URL.Query().Get("sort_order"), "created_at DESC")

	var customers []models.Customer
	err := q.Order(order).Limit(limit).Offset((page - 1) * limit).Find(&customers).Error
	if err != nil {
		httpx.Error(w, apperr.Storage("list_customers", err))
		return
	}
	httpx.JSON(w, http.StatusOK, customerListResponse{Data: customers, Pagination: paginate(total, page, limit)})
}

// Get returns one of the caller's customers.
func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	customer, err := h.load(r, policy.ActionView, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

type customerRequest struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	City               string `json:"city"`
	PostalCode         string `json:"postal_code"`
	Country            string `json:"country"`
	OrganizationNumber string `json:"organization_number"`
	IsActive           *bool  `json:"is_active"`
}

// Create inserts a customer owned by the caller.
func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.Email("email", req.Email, v)
	if !v.Empty() {
		httpx.Error(w, apperr.Validation("invalid_customer", v))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	customer := &models.Customer{
		UserID:             actor.ID,
		Name:               req.Name,
		Email:              req.Email,
		Phone:              req.Phone,
		Address:            req.Address,
		City:               req.City,
		PostalCode:         req.PostalCode,
		Country:            req.Country,
		OrganizationNumber: req.OrganizationNumber,
		IsActive:           active,
	}
	if err := h.db.WithContext(r.Context()).Create(customer).Error; err != nil {
		httpx.Error(w, apperr.Storage("insert_customer", err))
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

type updateCustomerRequest struct {
	Name               *string `json:"name"`
	Email              *string `json:"email"`
	Phone              *string `json:"phone"`
	Address            *string `json:"address"`
	City               *string `json:"city"`
	PostalCode         *string `json:"postal_code"`
	Country            *string `json:"country"`
	OrganizationNumber *string `json:"organization_number"`
	IsActive           *bool   `json:"is_active"`
}

// Update patches one of the caller's customers.
func (h *CustomersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req updateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	customer, err := h.load(r, policy.ActionUpdate, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	v := validation.Violations{}
	if req.Name != nil {
		validation.Required("name", *req.Name, v)
	}
	if req.Email != nil {
		validation.Email("email", *req.Email, v)
	}
	if !v.Empty() {
		httpx.Error(w, apperr.Validation("invalid_customer", v))
		return
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Address != nil {
		customer.Address = *req.Address
	}
	if req.City != nil {
		customer.City = *req.City
	}
	if req.PostalCode != nil {
		customer.PostalCode = *req.PostalCode
	}
	if req.Country != nil {
		customer.Country = *req.Country
	}
	if req.OrganizationNumber != nil {
		customer.OrganizationNumber = *req.OrganizationNumber
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}
	if err := h.db.WithContext(r.Context()).Save(customer).Error; err != nil {
		httpx.Error(w, apperr.Storage("update_customer", err))
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

// Delete removes one of the caller's customers. Customers with invoices are
// kept to preserve invoice history.
func (h *CustomersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	customer, err := h.load(r, policy.ActionDelete, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var invoices int64
	if err := h.db.WithContext(r.Context()).Model(&models.Invoice{}).Where("customer_id = ?", customer.ID).Count(&invoices).Error; err != nil {
		httpx.Error(w, apperr.Storage("count_invoices", err))
		return
	}
	if invoices > 0 {
		httpx.Error(w, apperr.Conflict("customer_has_invoices"))
		return
	}
	if err := h.db.WithContext(r.Context()).Delete(customer).Error; err != nil {
		httpx.Error(w, apperr.Storage("delete_customer", err))
		return
	}
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": i18n.T(lang, "customer_deleted")})
}

// Stats returns the invoice aggregates of one customer.
func (h *CustomersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	stats, err := h.stats.ForCustomer(r.Context(), actor.ID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

// load fetches a customer and runs the ownership gate. Denials read as
// NotFound so existence is not disclosed.
func (h *CustomersHandler) load(r *http.Request, action policy.Action, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := h.db.WithContext(r.Context()).First(&customer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("customer_not_found")
		}
		return nil, apperr.Storage("load_customer", err)
	}
	actor, _ := auth.ActorFromContext(r.Context())
	if !h.gate.Can(r.Context(), actor, action, "customer", &customer) {
		return nil, apperr.NotFound("customer_not_found")
	}
	return &customer, nil
}
