// Package handlers maps HTTP requests to service calls. Handlers decode typed
// request structs, validate at the boundary, consult the authorization gate
// with the explicit request actor, and translate service errors to status
// codes via httpx.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/diewo77/fakturera/internal/apperr"
)

// pagination is the list-response metadata block.
type pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

func paginate(total int64, page, limit int) pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid_json", nil)
	}
	return nil
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid_id", map[string]string{"id": "invalid"})
	}
	return uint(id), nil
}

// pageParams reads and clamps the pagination query params so the response
// metadata matches what the service layer actually queried.
func pageParams(r *http.Request, defaultLimit int) (int, int) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = defaultLimit
	}
	return page, limit
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func queryUint(r *http.Request, key string) uint {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint(n)
		}
	}
	return 0
}

func queryBoolPtr(r *http.Request, key string) *bool {
	switch r.URL.Query().Get(key) {
	case "true":
		b := true
		return &b
	case "false":
		b := false
		return &b
	}
	return nil
}

func queryFloatPtr(r *http.Request, key string) *float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}
