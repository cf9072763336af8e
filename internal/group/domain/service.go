package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

type UpdateRequest struct {
	ID         string  `json:"-"`
	Name       *string `json:"name,omitempty"`
	Definition *string `json:"definition,omitempty"`
}

type Response struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Definition string    `json:"definition"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	ErrInvalidID   = errors.New("invalid_id")
	ErrInvalidName = errors.New("invalid_name")
	ErrNameTaken   = errors.New("group_name_taken")
	ErrNotFound    = errors.New("group_not_found")
	ErrInUse       = errors.New("group_in_use")
)

// DefinitionError carries the full reason list from expression validation so
// the API can surface every failed check at definition-write time.
type DefinitionError struct {
	Reasons []string
}

func (e *DefinitionError) Error() string {
	return "invalid definition: " + strings.Join(e.Reasons, ", ")
}
