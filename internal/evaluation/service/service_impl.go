package service

import (
	"context"

	"github.com/smallbiznis/beacon/internal/bucket"
	"github.com/smallbiznis/beacon/internal/evaluation/domain"
	"github.com/smallbiznis/beacon/internal/expr"
	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
	"github.com/smallbiznis/beacon/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Source  domain.SnapshotSource
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	source    domain.SnapshotSource
	evaluator *expr.Evaluator
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("evaluation.service"),
		source:    p.Source,
		evaluator: expr.NewEvaluator(p.Log),
		metrics:   p.Metrics,
	}
}

// Evaluate resolves a flag for one subject. A disabled flag wins over every
// rule, then rules apply in ascending creation order with the first match
// enabling the flag. No match means disabled.
func (s *Service) Evaluate(ctx context.Context, flagName string, evalCtx domain.Context) (*domain.Result, error) {
	snapshot, err := s.source.FlagSnapshot(ctx, flagName)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, domain.ErrFlagNotFound
	}

	if !snapshot.Flag.Enabled {
		ruleType := domain.RuleTypeKillSwitch
		s.metrics.RecordEvaluation(ctx, ruleType, false)
		return &domain.Result{
			FlagName: snapshot.Flag.Name,
			Enabled:  false,
			RuleType: &ruleType,
		}, nil
	}

	for i := range snapshot.Rules {
		rule := &snapshot.Rules[i]
		m, ok := s.matcherFor(rule)
		if !ok {
			s.log.Warn("skipping malformed rule",
				zap.String("flag", snapshot.Flag.Name),
				zap.String("rule_id", rule.ID.String()),
				zap.String("rule_type", string(rule.Type)),
			)
			continue
		}
		if !m.Matches(ctx, s, snapshot.Flag.Name, evalCtx) {
			continue
		}

		ruleType := string(rule.Type)
		ruleID := rule.ID.String()
		variant := s.selectVariant(&snapshot.Flag, evalCtx.ResolveUserID())
		s.metrics.RecordEvaluation(ctx, ruleType, true)
		return &domain.Result{
			FlagName: snapshot.Flag.Name,
			Enabled:  true,
			Variant:  variant,
			RuleType: &ruleType,
			RuleID:   &ruleID,
		}, nil
	}

	s.metrics.RecordEvaluation(ctx, "none", false)
	return &domain.Result{
		FlagName: snapshot.Flag.Name,
		Enabled:  false,
	}, nil
}

// selectVariant assigns a variant by hashing "<flag>:variant:<user>", a seed
// independent of the enablement bucket, then walking the cumulative weights.
// Anonymous subjects always land on the first declared variant.
func (s *Service) selectVariant(flag *flagdomain.Flag, userID string) *string {
	variants := flag.VariantList()
	if len(variants) == 0 {
		return nil
	}
	if userID == "" {
		return &variants[0].Name
	}

	total := 0
	for _, v := range variants {
		total += v.Weight
	}
	if total <= 0 {
		return &variants[0].Name
	}

	b := bucket.Bucket(bucket.VariantSeed(flag.Name, userID))
	normalized := b * total / 100

	cumulative := 0
	for i := range variants {
		cumulative += variants[i].Weight
		if normalized < cumulative {
			return &variants[i].Name
		}
	}
	return &variants[len(variants)-1].Name
}
