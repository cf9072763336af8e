package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, rule *Rule) error
	FindByID(ctx context.Context, db *gorm.DB, flagID, id int64) (*Rule, error)
	// ListByFlag returns the flag's rules in ascending creation order.
	ListByFlag(ctx context.Context, db *gorm.DB, flagID int64) ([]Rule, error)
	CountByTypeValue(ctx context.Context, db *gorm.DB, ruleType RuleType, value string) (int64, error)
	Update(ctx context.Context, db *gorm.DB, rule *Rule) error
	Delete(ctx context.Context, db *gorm.DB, flagID, id int64) error
	DeleteByFlag(ctx context.Context, db *gorm.DB, flagID int64) error
}
