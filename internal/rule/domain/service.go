package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	ListByFlag(ctx context.Context, flagID string) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, flagID, id string) error
}

type CreateRequest struct {
	FlagID string   `json:"-"`
	Type   RuleType `json:"type"`
	Value  string   `json:"value"`
}

type UpdateRequest struct {
	FlagID string    `json:"-"`
	ID     string    `json:"-"`
	Type   *RuleType `json:"type,omitempty"`
	Value  *string   `json:"value,omitempty"`
}

type Response struct {
	ID        string    `json:"id"`
	FlagID    string    `json:"flag_id"`
	Type      RuleType  `json:"type"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidType       = errors.New("invalid_rule_type")
	ErrInvalidPercentage = errors.New("invalid_percentage")
	ErrUnknownGroup      = errors.New("unknown_group")
	ErrNotFound          = errors.New("rule_not_found")
)
