package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/fakturera/internal/auth"
	"github.com/diewo77/fakturera/internal/httpx"
	"github.com/diewo77/fakturera/internal/i18n"
	"github.com/diewo77/fakturera/internal/models"
	"github.com/diewo77/fakturera/internal/services"
)

// InvoicesHandler exposes the invoice lifecycle. All endpoints are
// owner-scoped; the heavy lifting lives in services.InvoiceService.
type InvoicesHandler struct {
	invoices *services.InvoiceService
}

func NewInvoicesHandler(invoices *services.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{invoices: invoices}
}

type invoiceListResponse struct {
	Data       []models.Invoice `json:"data"`
	Pagination pagination       `json:"pagination"`
}

// List returns one page of the caller's invoices.
func (h *InvoicesHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	page, limit := pageParams(r, 20)
	params := services.ListInvoicesParams{
		Search:     r.URL.Query().Get("search"),
		Status:     models.InvoiceStatus(r.URL.Query().Get("status")),
		CustomerID: queryUint(r, "customer_id"),
		DateFrom:   queryDatePtr(r, "date_from"),
		DateTo:     queryDatePtr(r, "date_to"),
		SortBy:     r.URL.Query().Get("sort_by"),
		SortOrder:  r.URL.Query().Get("sort_order"),
		Page:       page,
		Limit:      limit,
	}
	invoices, total, err := h.invoices.List(r.Context(), actor.ID, params)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoiceListResponse{
		Data:       invoices,
		Pagination: paginate(total, params.Page, params.Limit),
	})
}

// Get returns one of the caller's invoices with customer and items.
func (h *InvoicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	invoice, err := h.invoices.Get(r.Context(), actor.ID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

type createInvoiceRequest struct {
	CustomerID uint                 `json:"customer_id"`
	Items      []services.ItemInput `json:"items"`
	IssueDate  *time.Time           `json:"issue_date"`
	DueDate    time.Time            `json:"due_date"`
	Notes      string               `json:"notes"`
	Currency   string               `json:"currency"`
}

// Create persists a new draft invoice with its items.
func (h *InvoicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req createInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	invoice, err := h.invoices.Create(r.Context(), actor.ID, services.CreateInvoiceInput{
		CustomerID: req.CustomerID,
		Items:      req.Items,
		IssueDate:  req.IssueDate,
		DueDate:    req.DueDate,
		Notes:      req.Notes,
		Currency:   req.Currency,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": i18n.T(lang, "invoice_created"),
		"invoice": invoice,
	})
}

type updateInvoiceRequest struct {
	CustomerID *uint                 `json:"customer_id"`
	Status     *models.InvoiceStatus `json:"status"`
	IssueDate  *time.Time            `json:"issue_date"`
	DueDate    *time.Time            `json:"due_date"`
	Notes      *string               `json:"notes"`
	Currency   *string               `json:"currency"`
	Items      *[]services.ItemInput `json:"items"`
}

// Update patches one of the caller's invoices. A supplied items array replaces
// the full item set.
func (h *InvoicesHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req updateInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	invoice, err := h.invoices.Update(r.Context(), actor.ID, id, services.UpdateInvoiceInput{
		CustomerID: req.CustomerID,
		Status:     req.Status,
		IssueDate:  req.IssueDate,
		DueDate:    req.DueDate,
		Notes:      req.Notes,
		Currency:   req.Currency,
		Items:      req.Items,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// MarkSent flips the invoice to status sent.
func (h *InvoicesHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	invoice, err := h.invoices.MarkSent(r.Context(), actor.ID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": i18n.T(lang, "invoice_sent"),
		"invoice": invoice,
	})
}

// MarkPaid flips the invoice to status paid and stamps the payment time.
func (h *InvoicesHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	invoice, err := h.invoices.MarkPaid(r.Context(), actor.ID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// Delete removes one of the caller's invoices together with its items.
func (h *InvoicesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.invoices.Delete(r.Context(), actor.ID, id); err != nil {
		httpx.Error(w, err)
		return
	}
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": i18n.T(lang, "invoice_deleted")})
}

func queryDatePtr(r *http.Request, key string) *time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t
	}
	return nil
}
