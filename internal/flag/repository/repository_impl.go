package repository

import (
	"context"

	"github.com/smallbiznis/beacon/internal/flag/domain"
	"github.com/smallbiznis/beacon/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, flag *domain.Flag) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO flags (
			id, name, description, enabled, variants, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		flag.ID,
		flag.Name,
		flag.Description,
		flag.Enabled,
		flag.Variants,
		flag.CreatedAt,
		flag.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Flag, error) {
	var f domain.Flag
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, enabled, variants, created_at, updated_at
		 FROM flags WHERE id = ?`,
		id,
	).Scan(&f).Error
	if err != nil {
		return nil, err
	}
	if f.ID == 0 {
		return nil, nil
	}
	return &f, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Flag, error) {
	var f domain.Flag
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, enabled, variants, created_at, updated_at
		 FROM flags WHERE name = ?`,
		name,
	).Scan(&f).Error
	if err != nil {
		return nil, err
	}
	if f.ID == 0 {
		return nil, nil
	}
	return &f, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Flag, error) {
	var items []domain.Flag
	stmt := db.WithContext(ctx).Model(&domain.Flag{})

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Enabled != nil {
		stmt = stmt.Where("enabled = ?", *filter.Enabled)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, flag *domain.Flag) error {
	if flag == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE flags
		 SET description = ?, enabled = ?, variants = ?, updated_at = ?
		 WHERE id = ?`,
		flag.Description,
		flag.Enabled,
		flag.Variants,
		flag.UpdatedAt,
		flag.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM flags WHERE id = ?`, id).Error
}
