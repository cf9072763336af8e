package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, group *Group) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Group, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Group, error)
	List(ctx context.Context, db *gorm.DB) ([]Group, error)
	Update(ctx context.Context, db *gorm.DB, group *Group) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
}
