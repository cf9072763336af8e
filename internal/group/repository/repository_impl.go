package repository

import (
	"context"

	"github.com/smallbiznis/beacon/internal/group/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, group *domain.Group) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO groups (
			id, name, definition, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?)`,
		group.ID,
		group.Name,
		group.Definition,
		group.CreatedAt,
		group.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Group, error) {
	var g domain.Group
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, definition, created_at, updated_at
		 FROM groups WHERE id = ?`,
		id,
	).Scan(&g).Error
	if err != nil {
		return nil, err
	}
	if g.ID == 0 {
		return nil, nil
	}
	return &g, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Group, error) {
	var g domain.Group
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, definition, created_at, updated_at
		 FROM groups WHERE name = ?`,
		name,
	).Scan(&g).Error
	if err != nil {
		return nil, err
	}
	if g.ID == 0 {
		return nil, nil
	}
	return &g, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Group, error) {
	var items []domain.Group
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, definition, created_at, updated_at
		 FROM groups ORDER BY name ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, group *domain.Group) error {
	if group == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE groups
		 SET name = ?, definition = ?, updated_at = ?
		 WHERE id = ?`,
		group.Name,
		group.Definition,
		group.UpdatedAt,
		group.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM groups WHERE id = ?`, id).Error
}
