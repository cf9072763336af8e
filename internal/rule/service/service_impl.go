package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/beacon/internal/cache"
	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
	groupdomain "github.com/smallbiznis/beacon/internal/group/domain"
	"github.com/smallbiznis/beacon/internal/rule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	FlagRepo    flagdomain.Repository
	GroupRepo   groupdomain.Repository
	Invalidator cache.Invalidator
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	flagRepo    flagdomain.Repository
	groupRepo   groupdomain.Repository
	invalidator cache.Invalidator
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("rule.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		flagRepo:    p.FlagRepo,
		groupRepo:   p.GroupRepo,
		invalidator: p.Invalidator,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	flag, err := s.findFlag(ctx, req.FlagID)
	if err != nil {
		return nil, err
	}

	value := strings.TrimSpace(req.Value)
	if err := s.validate(ctx, req.Type, value); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.Rule{
		ID:        s.genID.Generate(),
		FlagID:    flag.ID,
		Type:      req.Type,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateFlag(ctx, flag.Name)
	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) ListByFlag(ctx context.Context, flagID string) ([]domain.Response, error) {
	flag, err := s.findFlag(ctx, flagID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByFlag(ctx, s.db, flag.ID.Int64())
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	flag, err := s.findFlag(ctx, req.FlagID)
	if err != nil {
		return nil, err
	}

	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, flag.ID.Int64(), id.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	if req.Type != nil {
		item.Type = *req.Type
	}
	if req.Value != nil {
		item.Value = strings.TrimSpace(*req.Value)
	}
	if err := s.validate(ctx, item.Type, item.Value); err != nil {
		return nil, err
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateFlag(ctx, flag.Name)
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, flagID, id string) error {
	flag, err := s.findFlag(ctx, flagID)
	if err != nil {
		return err
	}

	ruleID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, flag.ID.Int64(), ruleID.Int64())
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.Delete(ctx, s.db, flag.ID.Int64(), ruleID.Int64()); err != nil {
		return err
	}

	s.invalidator.InvalidateFlag(ctx, flag.Name)
	return nil
}

// validate checks the rule at write time so evaluation never has to deal
// with malformed rows: percentages must parse into [0, 100], group rules
// must point at an existing group.
func (s *Service) validate(ctx context.Context, ruleType domain.RuleType, value string) error {
	if !ruleType.Valid() {
		return domain.ErrInvalidType
	}

	switch ruleType {
	case domain.RuleTypePercentageOfActors:
		pct, err := strconv.Atoi(value)
		if err != nil || pct < 0 || pct > 100 {
			return domain.ErrInvalidPercentage
		}
	case domain.RuleTypeGroup:
		group, err := s.groupRepo.FindByName(ctx, s.db, value)
		if err != nil {
			return err
		}
		if group == nil {
			return domain.ErrUnknownGroup
		}
	}
	return nil
}

func (s *Service) findFlag(ctx context.Context, nameOrID string) (*flagdomain.Flag, error) {
	key := strings.TrimSpace(nameOrID)
	if key == "" {
		return nil, flagdomain.ErrInvalidID
	}

	if id, err := snowflake.ParseString(key); err == nil && id != 0 {
		flag, err := s.flagRepo.FindByID(ctx, s.db, id.Int64())
		if err != nil {
			return nil, err
		}
		if flag != nil {
			return flag, nil
		}
	}

	flag, err := s.flagRepo.FindByName(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, flagdomain.ErrNotFound
	}
	return flag, nil
}

func toResponse(r *domain.Rule) domain.Response {
	return domain.Response{
		ID:        r.ID.String(),
		FlagID:    r.FlagID.String(),
		Type:      r.Type,
		Value:     r.Value,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
