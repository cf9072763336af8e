package domain

import (
	"context"
	"errors"
	"time"

	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, nameOrID string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, nameOrID string) error
}

type ListRequest struct {
	Name    string
	Enabled *bool
	SortBy  string
	OrderBy string
}

type CreateRequest struct {
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Enabled     *bool     `json:"enabled"`
	Variants    []Variant `json:"variants"`
}

type UpdateRequest struct {
	NameOrID    string    `json:"-"`
	Description *string   `json:"description,omitempty"`
	Enabled     *bool     `json:"enabled,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
}

type Response struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description *string               `json:"description,omitempty"`
	Enabled     bool                  `json:"enabled"`
	Variants    []Variant             `json:"variants"`
	Rules       []ruledomain.Response `json:"rules,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidVariants = errors.New("invalid_variants")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNameTaken       = errors.New("flag_name_taken")
	ErrNotFound        = errors.New("flag_not_found")
)
