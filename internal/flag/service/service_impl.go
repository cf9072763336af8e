package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/beacon/internal/cache"
	"github.com/smallbiznis/beacon/internal/flag/domain"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
	"github.com/smallbiznis/beacon/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	RuleRepo    ruledomain.Repository
	Invalidator cache.Invalidator
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	ruleRepo    ruledomain.Repository
	invalidator cache.Invalidator
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("flag.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		ruleRepo:    p.RuleRepo,
		invalidator: p.Invalidator,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	variants := req.Variants
	if len(variants) == 0 {
		variants = domain.DefaultVariants()
	}
	if err := validateVariants(variants); err != nil {
		return nil, err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	description := strings.TrimSpace(ptrToString(req.Description))
	var descriptionPtr *string
	if description != "" {
		descriptionPtr = &description
	}

	now := time.Now().UTC()
	record := &domain.Flag{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: descriptionPtr,
		Enabled:     enabled,
		Variants:    datatypes.NewJSONType(variants),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}

	s.invalidator.InvalidateFlag(ctx, name)
	resp := s.toResponse(record, nil)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListRequest{
		Name:    strings.TrimSpace(req.Name),
		Enabled: req.Enabled,
		SortBy:  strings.TrimSpace(req.SortBy),
		OrderBy: strings.TrimSpace(req.OrderBy),
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, s.toResponse(&items[i], nil))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, nameOrID string) (*domain.Response, error) {
	item, err := s.find(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	rules, err := s.ruleRepo.ListByFlag(ctx, s.db, item.ID.Int64())
	if err != nil {
		return nil, err
	}

	resp := s.toResponse(item, rules)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	item, err := s.find(ctx, req.NameOrID)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			item.Description = nil
		} else {
			item.Description = &description
		}
	}
	if req.Enabled != nil {
		item.Enabled = *req.Enabled
	}
	if req.Variants != nil {
		if err := validateVariants(req.Variants); err != nil {
			return nil, err
		}
		item.Variants = datatypes.NewJSONType(req.Variants)
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateFlag(ctx, item.Name)
	resp := s.toResponse(item, nil)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, nameOrID string) error {
	item, err := s.find(ctx, nameOrID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ruleRepo.DeleteByFlag(ctx, tx, item.ID.Int64()); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, item.ID.Int64())
	})
	if err != nil {
		return err
	}

	s.invalidator.InvalidateFlag(ctx, item.Name)
	return nil
}

// find resolves a flag by snowflake id when the argument parses as one,
// otherwise by name.
func (s *Service) find(ctx context.Context, nameOrID string) (*domain.Flag, error) {
	key := strings.TrimSpace(nameOrID)
	if key == "" {
		return nil, domain.ErrInvalidID
	}

	if id, err := snowflake.ParseString(key); err == nil && id != 0 {
		item, err := s.repo.FindByID(ctx, s.db, id.Int64())
		if err != nil {
			return nil, err
		}
		if item != nil {
			return item, nil
		}
	}

	item, err := s.repo.FindByName(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) toResponse(f *domain.Flag, rules []ruledomain.Rule) domain.Response {
	resp := domain.Response{
		ID:          f.ID.String(),
		Name:        f.Name,
		Description: f.Description,
		Enabled:     f.Enabled,
		Variants:    f.VariantList(),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	for i := range rules {
		resp.Rules = append(resp.Rules, ruledomain.Response{
			ID:        rules[i].ID.String(),
			FlagID:    rules[i].FlagID.String(),
			Type:      rules[i].Type,
			Value:     rules[i].Value,
			CreatedAt: rules[i].CreatedAt,
			UpdatedAt: rules[i].UpdatedAt,
		})
	}
	return resp
}

func validateVariants(variants []domain.Variant) error {
	total := 0
	for _, v := range variants {
		if strings.TrimSpace(v.Name) == "" || v.Weight < 0 {
			return domain.ErrInvalidVariants
		}
		total += v.Weight
	}
	if total <= 0 {
		return domain.ErrInvalidVariants
	}
	return nil
}

func ptrToString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
