package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/beacon/internal/cache"
	"github.com/smallbiznis/beacon/internal/expr"
	"github.com/smallbiznis/beacon/internal/group/domain"
	"github.com/smallbiznis/beacon/internal/observability/metrics"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
	"github.com/smallbiznis/beacon/pkg/db"
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
	RuleRepo    ruledomain.Repository
	Invalidator cache.Invalidator
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	ruleRepo    ruledomain.Repository
	invalidator cache.Invalidator
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("group.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		ruleRepo:    p.RuleRepo,
		invalidator: p.Invalidator,
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	definition := strings.TrimSpace(req.Definition)
	if err := s.checkDefinition(ctx, definition); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.Group{
		ID:         s.genID.Generate(),
		Name:       name,
		Definition: definition,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}

	s.invalidator.InvalidateGroup(ctx, name)
	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.List(ctx, s.db)
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
	item, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	previousName := item.Name
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Definition != nil {
		definition := strings.TrimSpace(*req.Definition)
		if err := s.checkDefinition(ctx, definition); err != nil {
			return nil, err
		}
		item.Definition = definition
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}

	s.invalidator.InvalidateGroup(ctx, item.Name)
	if previousName != item.Name {
		s.invalidator.InvalidateGroup(ctx, previousName)
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	item, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	refs, err := s.ruleRepo.CountByTypeValue(ctx, s.db, ruledomain.RuleTypeGroup, item.Name)
	if err != nil {
		return err
	}
	if refs > 0 {
		return domain.ErrInUse
	}

	if err := s.repo.Delete(ctx, s.db, item.ID.Int64()); err != nil {
		return err
	}

	s.invalidator.InvalidateGroup(ctx, item.Name)
	return nil
}

func (s *Service) checkDefinition(ctx context.Context, definition string) error {
	issues := expr.Validate(definition)
	if len(issues) == 0 {
		return nil
	}

	for _, issue := range issues {
		if s.metrics != nil {
			s.metrics.RecordExpressionRejected(ctx, issue.Check)
		}
	}
	return &domain.DefinitionError{Reasons: expr.Reasons(issues)}
}

func (s *Service) find(ctx context.Context, id string) (*domain.Group, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func toResponse(g *domain.Group) domain.Response {
	return domain.Response{
		ID:         g.ID.String(),
		Name:       g.Name,
		Definition: g.Definition,
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
}
