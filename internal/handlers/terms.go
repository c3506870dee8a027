package handlers

import (
	"net/http"

	"github.com/diewo77/fakturera/internal/apperr"
	"github.com/diewo77/fakturera/internal/auth"
	"github.com/diewo77/fakturera/internal/httpx"
	"github.com/diewo77/fakturera/internal/i18n"
	"github.com/diewo77/fakturera/internal/models"
	"github.com/diewo77/fakturera/internal/policy"
	"github.com/diewo77/fakturera/internal/services"
)

// TermsHandler serves the localized legal terms. Reading the active terms of a
// language is public; everything else goes through the admin-only policy.
type TermsHandler struct {
	terms *services.TermsService
	gate  *policy.Gate
}

func NewTermsHandler(terms *services.TermsService, gate *policy.Gate) *TermsHandler {
	return &TermsHandler{terms: terms, gate: gate}
}

// GetByLanguage returns the active terms for a language. Public endpoint.
func (h *TermsHandler) GetByLanguage(w http.ResponseWriter, r *http.Request) {
	terms, err := h.terms.GetByLanguage(r.Context(), r.PathValue("language"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, terms)
}

type termsListResponse struct {
	Data       []models.Terms `json:"data"`
	Pagination pagination     `json:"pagination"`
}

// List returns all terms versions. Admin only.
func (h *TermsHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r, policy.ActionList); err != nil {
		httpx.Error(w, err)
		return
	}
	page, limit := pageParams(r, 20)
	params := services.ListTermsParams{
		Language:  r.URL.Query().Get("language"),
		IsActive:  queryBoolPtr(r, "is_active"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
		Page:      page,
		Limit:     limit,
	}
	terms, total, err := h.terms.List(r.Context(), params)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, termsListResponse{Data: terms, Pagination: paginate(total, params.Page, params.Limit)})
}

type termsRequest struct {
	Language string `json:"language"`
	Content  string `json:"content"`
	Version  string `json:"version"`
	IsActive bool   `json:"is_active"`
}

// Create inserts a terms version. Admin only.
func (h *TermsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r, policy.ActionCreate); err != nil {
		httpx.Error(w, err)
		return
	}
	var req termsRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	terms, err := h.terms.Create(r.Context(), services.CreateTermsInput{
		Language: req.Language,
		Content:  req.Content,
		Version:  req.Version,
		IsActive: req.IsActive,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, terms)
}

type updateTermsRequest struct {
	Language *string `json:"language"`
	Content  *string `json:"content"`
	Version  *string `json:"version"`
	IsActive *bool   `json:"is_active"`
}

// Update patches a terms version. Admin only.
func (h *TermsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r, policy.ActionUpdate); err != nil {
		httpx.Error(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req updateTermsRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	terms, err := h.terms.Update(r.Context(), id, services.UpdateTermsInput{
		Language: req.Language,
		Content:  req.Content,
		Version:  req.Version,
		IsActive: req.IsActive,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, terms)
}

// Delete removes a terms version. Admin only.
func (h *TermsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r, policy.ActionDelete); err != nil {
		httpx.Error(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.terms.Delete(r.Context(), id); err != nil {
		httpx.Error(w, err)
		return
	}
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": i18n.T(lang, "terms_deleted")})
}

func (h *TermsHandler) authorize(r *http.Request, action policy.Action) error {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := h.gate.Authorize(r.Context(), actor, action, "terms", nil); err != nil {
		return apperr.Forbidden("admin_required")
	}
	return nil
}
