package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/beacon/internal/evaluation/domain"
	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
	groupdomain "github.com/smallbiznis/beacon/internal/group/domain"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type stubSource struct {
	snapshots map[string]*domain.Snapshot
	groups    map[string]*groupdomain.Group
	groupErr  error
}

func (s *stubSource) FlagSnapshot(ctx context.Context, name string) (*domain.Snapshot, error) {
	return s.snapshots[name], nil
}

func (s *stubSource) Group(ctx context.Context, name string) (*groupdomain.Group, error) {
	if s.groupErr != nil {
		return nil, s.groupErr
	}
	return s.groups[name], nil
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func newTestService(source domain.SnapshotSource) domain.Service {
	return New(Params{
		Log:    zap.NewNop(),
		Source: source,
	})
}

func buildFlag(node *snowflake.Node, name string, enabled bool, variants []flagdomain.Variant) flagdomain.Flag {
	return flagdomain.Flag{
		ID:       node.Generate(),
		Name:     name,
		Enabled:  enabled,
		Variants: datatypes.NewJSONType(variants),
	}
}

func buildRule(node *snowflake.Node, flagID snowflake.ID, ruleType ruledomain.RuleType, value string) ruledomain.Rule {
	return ruledomain.Rule{
		ID:     node.Generate(),
		FlagID: flagID,
		Type:   ruleType,
		Value:  value,
	}
}

func TestEvaluateUnknownFlag(t *testing.T) {
	svc := newTestService(&stubSource{snapshots: map[string]*domain.Snapshot{}})

	_, err := svc.Evaluate(context.Background(), "missing", domain.Context{UserID: "1"})
	require.ErrorIs(t, err, domain.ErrFlagNotFound)
}

func TestEvaluateKillSwitchDominates(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "checkout", false, flagdomain.DefaultVariants())
	// Even a rule that matches everyone cannot override a disabled flag.
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypePercentageOfActors, "100"),
	}
	svc := newTestService(&stubSource{snapshots: map[string]*domain.Snapshot{
		"checkout": {Flag: flag, Rules: rules},
	}})

	result, err := svc.Evaluate(context.Background(), "checkout", domain.Context{UserID: "42"})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
	require.NotNil(t, result.RuleType)
	assert.Equal(t, domain.RuleTypeKillSwitch, *result.RuleType)
	assert.Nil(t, result.Variant)
	assert.Nil(t, result.RuleID)
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "checkout", true, flagdomain.DefaultVariants())
	groupRule := buildRule(node, flag.ID, ruledomain.RuleTypeGroup, "admins")
	pctRule := buildRule(node, flag.ID, ruledomain.RuleTypePercentageOfActors, "100")
	svc := newTestService(&stubSource{
		snapshots: map[string]*domain.Snapshot{
			"checkout": {Flag: flag, Rules: []ruledomain.Rule{groupRule, pctRule}},
		},
		groups: map[string]*groupdomain.Group{
			"admins": {Name: "admins", Definition: "role == 'admin'"},
		},
	})

	result, err := svc.Evaluate(context.Background(), "checkout", domain.Context{
		UserID:         "42",
		UserAttributes: map[string]any{"role": "admin"},
	})
	require.NoError(t, err)
	assert.True(t, result.Enabled)
	require.NotNil(t, result.RuleID)
	assert.Equal(t, groupRule.ID.String(), *result.RuleID)
	require.NotNil(t, result.RuleType)
	assert.Equal(t, string(ruledomain.RuleTypeGroup), *result.RuleType)
}

func TestEvaluateDeterministic(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "checkout", true, flagdomain.DefaultVariants())
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypePercentageOfActors, "50"),
	}
	svc := newTestService(&stubSource{snapshots: map[string]*domain.Snapshot{
		"checkout": {Flag: flag, Rules: rules},
	}})

	first, err := svc.Evaluate(context.Background(), "checkout", domain.Context{UserID: "user-7"})
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := svc.Evaluate(context.Background(), "checkout", domain.Context{UserID: "user-7"})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvaluatePercentageMonotonic(t *testing.T) {
	node := mustNode(t)

	enabledUsers := func(threshold string) map[string]bool {
		flag := buildFlag(node, "rollout", true, flagdomain.DefaultVariants())
		rules := []ruledomain.Rule{
			buildRule(node, flag.ID, ruledomain.RuleTypePercentageOfActors, threshold),
		}
		svc := newTestService(&stubSource{snapshots: map[string]*domain.Snapshot{
			"rollout": {Flag: flag, Rules: rules},
		}})

		out := make(map[string]bool)
		for i := 0; i < 300; i++ {
			userID := fmt.Sprintf("user-%d", i)
			result, err := svc.Evaluate(context.Background(), "rollout", domain.Context{UserID: userID})
			require.NoError(t, err)
			out[userID] = result.Enabled
		}
		return out
	}

	atTen := enabledUsers("10")
	atFifty := enabledUsers("50")
	atZero := enabledUsers("0")
	atHundred := enabledUsers("100")

	for userID, enabled := range atTen {
		if enabled {
			assert.True(t, atFifty[userID], "user %s enabled at 10%% must stay enabled at 50%%", userID)
		}
	}
	for userID, enabled := range atZero {
		assert.False(t, enabled, "user %s enabled at 0%%", userID)
	}
	for userID, enabled := range atHundred {
		assert.True(t, enabled, "user %s disabled at 100%%", userID)
	}
}

func TestEvaluateAnonymousSkipsPercentageRules(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "rollout", true, flagdomain.DefaultVariants())
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypePercentageOfActors, "100"),
	}
	svc := newTestService(&stubSource{snapshots: map[string]*domain.Snapshot{
		"rollout": {Flag: flag, Rules: rules},
	}})

	result, err := svc.Evaluate(context.Background(), "rollout", domain.Context{})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
	assert.Nil(t, result.RuleType)
	assert.Nil(t, result.RuleID)
}

func TestEvaluateUnknownGroupFailsClosed(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "checkout", true, flagdomain.DefaultVariants())
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypeGroup, "ghosts"),
	}
	svc := newTestService(&stubSource{
		snapshots: map[string]*domain.Snapshot{
			"checkout": {Flag: flag, Rules: rules},
		},
		groups: map[string]*groupdomain.Group{},
	})

	result, err := svc.Evaluate(context.Background(), "checkout", domain.Context{
		UserID:         "42",
		UserAttributes: map[string]any{"role": "user"},
	})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
}

func TestEvaluateGroupLookupErrorFailsClosed(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "checkout", true, flagdomain.DefaultVariants())
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypeGroup, "admins"),
	}
	svc := newTestService(&stubSource{
		snapshots: map[string]*domain.Snapshot{
			"checkout": {Flag: flag, Rules: rules},
		},
		groupErr: fmt.Errorf("store offline"),
	})

	result, err := svc.Evaluate(context.Background(), "checkout", domain.Context{
		UserID:         "42",
		UserAttributes: map[string]any{"role": "user"},
	})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
}

func TestEvaluateGroupRuleSkippedWithoutAttributes(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "perks", true, flagdomain.DefaultVariants())
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypeGroup, "not_banned"),
	}
	// The negated definition would match an empty attribute document, so the
	// rule must be skipped entirely when no attributes were supplied.
	svc := newTestService(&stubSource{
		snapshots: map[string]*domain.Snapshot{
			"perks": {Flag: flag, Rules: rules},
		},
		groups: map[string]*groupdomain.Group{
			"not_banned": {Name: "not_banned", Definition: "role != 'banned'"},
		},
	})

	result, err := svc.Evaluate(context.Background(), "perks", domain.Context{UserID: "42"})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
	assert.Nil(t, result.RuleID)
}

func TestEvaluateGroupMatchAssignsVariant(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "checkout", true, []flagdomain.Variant{
		{Name: "old", Weight: 70},
		{Name: "new", Weight: 30},
	})
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypeGroup, "testers"),
	}
	svc := newTestService(&stubSource{
		snapshots: map[string]*domain.Snapshot{
			"checkout": {Flag: flag, Rules: rules},
		},
		groups: map[string]*groupdomain.Group{
			"testers": {Name: "testers", Definition: "contains(email, 'example')"},
		},
	})

	result, err := svc.Evaluate(context.Background(), "checkout", domain.Context{
		UserID:         "42",
		UserAttributes: map[string]any{"email": "tester@example.com"},
	})
	require.NoError(t, err)
	assert.True(t, result.Enabled)
	require.NotNil(t, result.Variant)
	assert.Contains(t, []string{"old", "new"}, *result.Variant)
}

func TestEvaluateAnonymousGroupMatchGetsFirstVariant(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "checkout", true, []flagdomain.Variant{
		{Name: "old", Weight: 70},
		{Name: "new", Weight: 30},
	})
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypeGroup, "testers"),
	}
	svc := newTestService(&stubSource{
		snapshots: map[string]*domain.Snapshot{
			"checkout": {Flag: flag, Rules: rules},
		},
		groups: map[string]*groupdomain.Group{
			"testers": {Name: "testers", Definition: "contains(email, 'example')"},
		},
	})

	result, err := svc.Evaluate(context.Background(), "checkout", domain.Context{
		UserAttributes: map[string]any{"email": "tester@example.com"},
	})
	require.NoError(t, err)
	assert.True(t, result.Enabled)
	require.NotNil(t, result.Variant)
	assert.Equal(t, "old", *result.Variant)
}

func TestEvaluateNumericAndStringIDsBucketAlike(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "rollout", true, flagdomain.DefaultVariants())
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypePercentageOfActors, "50"),
	}
	svc := newTestService(&stubSource{snapshots: map[string]*domain.Snapshot{
		"rollout": {Flag: flag, Rules: rules},
	}})

	for i := 0; i < 50; i++ {
		byString, err := svc.Evaluate(context.Background(), "rollout", domain.Context{
			UserID: fmt.Sprintf("%d", i),
		})
		require.NoError(t, err)

		byAttribute, err := svc.Evaluate(context.Background(), "rollout", domain.Context{
			UserAttributes: map[string]any{"id": float64(i)},
		})
		require.NoError(t, err)

		assert.Equal(t, byString.Enabled, byAttribute.Enabled, "id %d", i)
		assert.Equal(t, byString.Variant, byAttribute.Variant, "id %d", i)
	}
}

func TestVariantWeightsRoughlyRespected(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "checkout", true, []flagdomain.Variant{
		{Name: "old", Weight: 70},
		{Name: "new", Weight: 30},
	})
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypePercentageOfActors, "100"),
	}
	svc := newTestService(&stubSource{snapshots: map[string]*domain.Snapshot{
		"checkout": {Flag: flag, Rules: rules},
	}})

	counts := map[string]int{}
	const samples = 2000
	for i := 0; i < samples; i++ {
		result, err := svc.Evaluate(context.Background(), "checkout", domain.Context{
			UserID: fmt.Sprintf("user-%d", i),
		})
		require.NoError(t, err)
		require.NotNil(t, result.Variant)
		counts[*result.Variant]++
	}

	oldShare := float64(counts["old"]) / samples
	assert.InDelta(t, 0.70, oldShare, 0.10)
	assert.Equal(t, samples, counts["old"]+counts["new"])
}

func TestEvaluateMalformedRuleSkipped(t *testing.T) {
	node := mustNode(t)
	flag := buildFlag(node, "rollout", true, flagdomain.DefaultVariants())
	rules := []ruledomain.Rule{
		buildRule(node, flag.ID, ruledomain.RuleTypePercentageOfActors, "lots"),
		buildRule(node, flag.ID, ruledomain.RuleTypePercentageOfActors, "100"),
	}
	svc := newTestService(&stubSource{snapshots: map[string]*domain.Snapshot{
		"rollout": {Flag: flag, Rules: rules},
	}})

	result, err := svc.Evaluate(context.Background(), "rollout", domain.Context{UserID: "42"})
	require.NoError(t, err)
	assert.True(t, result.Enabled)
	require.NotNil(t, result.RuleID)
	assert.Equal(t, rules[1].ID.String(), *result.RuleID)
}
