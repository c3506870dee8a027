package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/fakturera/internal/apperr"
	"github.com/diewo77/fakturera/internal/auth"
	"github.com/diewo77/fakturera/internal/config"
	"github.com/diewo77/fakturera/internal/httpx"
	"github.com/diewo77/fakturera/internal/models"
	"github.com/diewo77/fakturera/internal/policy"
	"github.com/diewo77/fakturera/internal/services"
	"github.com/diewo77/fakturera/internal/validation"
	"gorm.io/gorm"
)

// UsersHandler serves the user directory. Listing and deletion are admin
// operations; reads and updates follow the self-or-admin policy.
type UsersHandler struct {
	db    *gorm.DB
	cfg   *config.Config
	gate  *policy.Gate
	stats *services.StatsService
}

func NewUsersHandler(db *gorm.DB, cfg *config.Config, gate *policy.Gate, stats *services.StatsService) *UsersHandler {
	return &UsersHandler{db: db, cfg: cfg, gate: gate, stats: stats}
}

type userListResponse struct {
	Data       []models.User `json:"data"`
	Pagination pagination    `json:"pagination"`
}

// List returns one page of the user directory. Admin only.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if !actor.IsAdmin() {
		httpx.Error(w, apperr.Forbidden("admin_required"))
		return
	}

	page, limit := pageParams(r, 20)

	q := h.db.WithContext(r.Context()).Model(&models.User{})
	if search := r.URL.Query().Get("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("lower(name) LIKE ? OR lower(email) LIKE ? OR lower(company) LIKE ?", like, like, like)
	}
	if role := r.URL.Query().Get("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	if isActive := queryBoolPtr(r, "is_active"); isActive != nil {
		q = q.Where("is_active = ?", *isActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		httpx.Error(w, apperr.Storage("count_users", err))
		return
	}
	var users []models.User
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&users).Error
	if err != nil {
		httpx.Error(w, apperr.Storage("list_users", err))
		return
	}
	httpx.JSON(w, http.StatusOK, userListResponse{Data: users, Pagination: paginate(total, page, limit)})
}

// Get returns a single user. The caller must be that user or an admin.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	user, err := h.load(r, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.gate.Authorize(r.Context(), actor, policy.ActionView, "user", user); err != nil {
		httpx.Error(w, apperr.Forbidden("forbidden"))
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Company  *string `json:"company"`
	Language *string `json:"language"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// Update patches a user. Role and activation changes are reserved for admins;
// a supplied password is re-hashed, so admins can reset anyone's.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	user, err := h.load(r, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.gate.Authorize(r.Context(), actor, policy.ActionUpdate, "user", user); err != nil {
		httpx.Error(w, apperr.Forbidden("forbidden"))
		return
	}
	if (req.Role != nil || req.IsActive != nil) && !actor.IsAdmin() {
		httpx.Error(w, apperr.Forbidden("admin_required"))
		return
	}

	v := validation.Violations{}
	if req.Name != nil {
		validation.Required("name", *req.Name, v)
	}
	if req.Language != nil {
		validation.OneOf("language", *req.Language, []string{models.LangSwedish, models.LangEnglish}, v)
	}
	if req.Role != nil {
		validation.OneOf("role", *req.Role, []string{string(models.RoleAdmin), string(models.RoleUser)}, v)
	}
	if req.Password != nil {
		validation.MinLen("password", *req.Password, 6, v)
	}
	if !v.Empty() {
		httpx.Error(w, apperr.Validation("invalid_user", v))
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Company != nil {
		user.Company = *req.Company
	}
	if req.Language != nil {
		user.Language = *req.Language
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password, h.cfg.App.BcryptCost)
		if err != nil {
			httpx.Error(w, apperr.Storage("hash_password", err))
			return
		}
		user.Password = hash
	}
	if req.Role != nil {
		user.Role = models.Role(*req.Role)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := h.db.WithContext(r.Context()).Save(user).Error; err != nil {
		httpx.Error(w, apperr.Storage("update_user", err))
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Delete removes a user. Admin only, and admins cannot delete themselves.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if !actor.IsAdmin() {
		httpx.Error(w, apperr.Forbidden("admin_required"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if id == actor.ID {
		httpx.Error(w, apperr.Validation("cannot_delete_self", map[string]string{"id": "is_self"}))
		return
	}
	user, err := h.load(r, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.db.WithContext(r.Context()).Delete(user).Error; err != nil {
		httpx.Error(w, apperr.Storage("delete_user", err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Stats returns the dashboard aggregates of a user's data set.
func (h *UsersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if id != actor.ID && !actor.IsAdmin() {
		httpx.Error(w, apperr.Forbidden("forbidden"))
		return
	}
	stats, err := h.stats.ForUser(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *UsersHandler) load(r *http.Request, id uint) (*models.User, error) {
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user_not_found")
		}
		return nil, apperr.Storage("load_user", err)
	}
	return &user, nil
}
