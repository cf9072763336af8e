package repository

import (
	"context"

	"github.com/smallbiznis/beacon/internal/rule/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, rule *domain.Rule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO rules (
			id, flag_id, rule_type, value, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.FlagID,
		rule.Type,
		rule.Value,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, flagID, id int64) (*domain.Rule, error) {
	var rl domain.Rule
	err := db.WithContext(ctx).Raw(
		`SELECT id, flag_id, rule_type, value, created_at, updated_at
		 FROM rules WHERE flag_id = ? AND id = ?`,
		flagID,
		id,
	).Scan(&rl).Error
	if err != nil {
		return nil, err
	}
	if rl.ID == 0 {
		return nil, nil
	}
	return &rl, nil
}

func (r *repo) ListByFlag(ctx context.Context, db *gorm.DB, flagID int64) ([]domain.Rule, error) {
	var items []domain.Rule
	err := db.WithContext(ctx).Raw(
		`SELECT id, flag_id, rule_type, value, created_at, updated_at
		 FROM rules WHERE flag_id = ?
		 ORDER BY created_at ASC, id ASC`,
		flagID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountByTypeValue(ctx context.Context, db *gorm.DB, ruleType domain.RuleType, value string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Rule{}).
		Where("rule_type = ? AND value = ?", ruleType, value).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, rule *domain.Rule) error {
	if rule == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE rules
		 SET rule_type = ?, value = ?, updated_at = ?
		 WHERE flag_id = ? AND id = ?`,
		rule.Type,
		rule.Value,
		rule.UpdatedAt,
		rule.FlagID,
		rule.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, flagID, id int64) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM rules WHERE flag_id = ? AND id = ?`, flagID, id,
	).Error
}

func (r *repo) DeleteByFlag(ctx context.Context, db *gorm.DB, flagID int64) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM rules WHERE flag_id = ?`, flagID,
	).Error
}
