// Package services holds the business logic behind the HTTP handlers. Every
// operation takes the owning user explicitly and returns apperr-typed errors
// so the transport layer can map them without inspecting messages.
package services

import "fmt"

func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = defaultLimit
	}
	return page, limit
}

// SortClause whitelists the sort column and direction, falling back to a
// default clause for anything unknown.
func SortClause(allowed map[string]string, sortBy, sortOrder, fallback string) string {
	col, ok := allowed[sortBy]
	if !ok {
		return fallback
	}
	dir := "ASC"
	if sortOrder == "desc" || sortOrder == "DESC" {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s", col, dir)
}
