package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Option mutates a gorm statement before execution.
type Option interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type sortBy struct {
	clause string
}

func (s sortBy) Apply(stmt *gorm.DB) *gorm.DB {
	if s.clause == "" {
		return stmt
	}
	return stmt.Order(s.clause)
}

// WithSortBy orders results by a pre-validated clause.
func WithSortBy(clause string) Option {
	return sortBy{clause: clause}
}

// WithQuerySortBy builds an ORDER BY clause from user-supplied sort/order
// fields, restricted to the allowed column set. Unknown columns fall back to
// created_at ascending.
func WithQuerySortBy(field, order string, allowed map[string]bool) string {
	field = strings.ToLower(strings.TrimSpace(field))
	if field == "" || !allowed[field] {
		field = "created_at"
	}

	order = strings.ToLower(strings.TrimSpace(order))
	if order != "desc" {
		order = "asc"
	}

	return fmt.Sprintf("%s %s", field, order)
}
