package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/fakturera/internal/apperr"
	"github.com/diewo77/fakturera/internal/auth"
	"github.com/diewo77/fakturera/internal/config"
	"github.com/diewo77/fakturera/internal/httpx"
	"github.com/diewo77/fakturera/internal/i18n"
	"github.com/diewo77/fakturera/internal/models"
	"github.com/diewo77/fakturera/internal/obs"
	"github.com/diewo77/fakturera/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthHandler serves registration, login and the authenticated profile.
// Responses carry bilingual messages resolved from the user's language.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company"`
	Language string `json:"language"`
}

type authResponse struct {
	Message string       `json:"message,omitempty"`
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
}

// Register creates an account with the user role and returns a fresh token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	lang := req.Language
	if lang != "sv" && lang != "en" {
		lang = i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	}

	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.Required("email", req.Email, v)
	validation.Email("email", req.Email, v)
	validation.Required("password", req.Password, v)
	validation.MinLen("password", req.Password, 6, v)
	if !v.Empty() {
		httpx.Error(w, apperr.Validation("invalid_registration", v))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var count int64
	if err := h.db.WithContext(r.Context()).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		httpx.Error(w, apperr.Storage("check_email", err))
		return
	}
	if count > 0 {
		httpx.Error(w, apperr.Conflict(i18n.T(lang, "email_already_exists")))
		return
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.App.BcryptCost)
	if err != nil {
		httpx.Error(w, apperr.Storage("hash_password", err))
		return
	}
	user := &models.User{
		Name:     req.Name,
		Email:    email,
		Password: hash,
		Company:  req.Company,
		Language: lang,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := h.db.WithContext(r.Context()).Create(user).Error; err != nil {
		zap.L().Error("register failed", zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, i18n.T(lang, "registration_failed"), nil)
		return
	}
	obs.UsersRegisteredTotal.Inc()
	zap.L().Info("user registered", zap.Uint("user_id", user.ID))

	token, err := h.token(user)
	if err != nil {
		httpx.Error(w, apperr.Storage("sign_token", err))
		return
	}
	httpx.JSON(w, http.StatusCreated, authResponse{
		Message: i18n.T(lang, "registered"),
		User:    user,
		Token:   token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies the credentials and returns a token. Invalid email and wrong
// password produce the same message so account existence is not disclosed.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))

	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	err := h.db.WithContext(r.Context()).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, apperr.Unauthorized(i18n.T(lang, "invalid_credentials")))
			return
		}
		httpx.Error(w, apperr.Storage("load_user", err))
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		httpx.Error(w, apperr.Unauthorized(i18n.T(lang, "invalid_credentials")))
		return
	}
	if !user.IsActive {
		httpx.Error(w, apperr.Unauthorized(i18n.T(user.Language, "account_deactivated")))
		return
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := h.db.WithContext(r.Context()).Model(&user).Update("last_login_at", now).Error; err != nil {
		zap.L().Warn("last login stamp failed", zap.Error(err))
	}

	token, err := h.token(&user)
	if err != nil {
		httpx.Error(w, apperr.Storage("sign_token", err))
		return
	}
	httpx.JSON(w, http.StatusOK, authResponse{User: &user, Token: token})
}

// Profile returns the authenticated user's own account.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, actor.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, apperr.NotFound("user_not_found"))
			return
		}
		httpx.Error(w, apperr.Storage("load_user", err))
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Company  *string `json:"company"`
	Language *string `json:"language"`
	Password *string `json:"password"`
}

// UpdateProfile patches the caller's own name, company, language or password.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	v := validation.Violations{}
	if req.Name != nil {
		validation.Required("name", *req.Name, v)
	}
	if req.Language != nil {
		validation.OneOf("language", *req.Language, []string{models.LangSwedish, models.LangEnglish}, v)
	}
	if req.Password != nil {
		validation.MinLen("password", *req.Password, 6, v)
	}
	if !v.Empty() {
		httpx.Error(w, apperr.Validation("invalid_profile", v))
		return
	}

	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, actor.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, apperr.NotFound("user_not_found"))
			return
		}
		httpx.Error(w, apperr.Storage("load_user", err))
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
	if err := h.db.WithContext(r.Context()).Save(&user).Error; err != nil {
		httpx.Error(w, apperr.Storage("update_user", err))
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) token(user *models.User) (string, error) {
	actor := auth.Actor{ID: user.ID, Email: user.Email, Role: string(user.Role)}
	ttl := time.Duration(h.cfg.JWT.ExpiryHours) * time.Hour
	return auth.GenerateToken(actor, h.cfg.JWT.Secret, ttl)
}
