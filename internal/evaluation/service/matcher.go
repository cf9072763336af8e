package service

import (
	"context"
	"strconv"

	"github.com/smallbiznis/beacon/internal/bucket"
	"github.com/smallbiznis/beacon/internal/evaluation/domain"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
	"go.uber.org/zap"
)

// matcher decides whether a single rule applies to the subject. Matching is
// side-effect free; a failed group lookup reports false, never an error.
type matcher interface {
	Matches(ctx context.Context, s *Service, flagName string, evalCtx domain.Context) bool
}

func (s *Service) matcherFor(rule *ruledomain.Rule) (matcher, bool) {
	switch rule.Type {
	case ruledomain.RuleTypePercentageOfActors:
		threshold, err := strconv.Atoi(rule.Value)
		if err != nil || threshold < 0 || threshold > 100 {
			return nil, false
		}
		return percentageMatcher{threshold: threshold}, true
	case ruledomain.RuleTypeGroup:
		return groupMatcher{name: rule.Value}, true
	}
	return nil, false
}

// percentageMatcher buckets the user into [0, 100) by hashing
// "<flag>:<user>" and matches when the bucket falls below the threshold.
// Raising the threshold only ever adds users; it never evicts one.
type percentageMatcher struct {
	threshold int
}

func (m percentageMatcher) Matches(_ context.Context, _ *Service, flagName string, evalCtx domain.Context) bool {
	userID := evalCtx.ResolveUserID()
	if userID == "" {
		return false
	}
	return bucket.Bucket(bucket.EnablementSeed(flagName, userID)) < m.threshold
}

// groupMatcher resolves the named group and runs its definition against the
// caller-supplied attributes. A request without attributes never matches, so
// negated definitions cannot capture anonymous contexts. Missing groups and
// evaluator failures both report no match.
type groupMatcher struct {
	name string
}

func (m groupMatcher) Matches(ctx context.Context, s *Service, _ string, evalCtx domain.Context) bool {
	if evalCtx.UserAttributes == nil {
		return false
	}
	group, err := s.source.Group(ctx, m.name)
	if err != nil || group == nil {
		s.log.Warn("group lookup failed", zap.String("group", m.name), zap.Error(err))
		s.metrics.RecordGroupEvalFailure(ctx, m.name)
		return false
	}
	return s.evaluator.Includes(group.Definition, evalCtx.UserAttributes)
}
