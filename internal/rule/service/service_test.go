package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
	flagrepo "github.com/smallbiznis/beacon/internal/flag/repository"
	groupdomain "github.com/smallbiznis/beacon/internal/group/domain"
	grouprepo "github.com/smallbiznis/beacon/internal/group/repository"
	"github.com/smallbiznis/beacon/internal/rule/domain"
	rulerepo "github.com/smallbiznis/beacon/internal/rule/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type noopInvalidator struct {
	flags []string
}

func (n *noopInvalidator) InvalidateFlag(ctx context.Context, name string) {
	n.flags = append(n.flags, name)
}

func (n *noopInvalidator) InvalidateGroup(ctx context.Context, name string) {}

type fixture struct {
	conn        *gorm.DB
	svc         domain.Service
	node        *snowflake.Node
	invalidator *noopInvalidator
}

func setup(t *testing.T) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&flagdomain.Flag{}, &domain.Rule{}, &groupdomain.Group{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	invalidator := &noopInvalidator{}
	svc := New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        rulerepo.Provide(),
		FlagRepo:    flagrepo.Provide(),
		GroupRepo:   grouprepo.Provide(),
		Invalidator: invalidator,
	})
	return &fixture{conn: conn, svc: svc, node: node, invalidator: invalidator}
}

func (f *fixture) createFlag(t *testing.T, name string) *flagdomain.Flag {
	t.Helper()
	now := time.Now().UTC()
	flag := &flagdomain.Flag{
		ID:        f.node.Generate(),
		Name:      name,
		Enabled:   true,
		Variants:  datatypes.NewJSONType(flagdomain.DefaultVariants()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, flagrepo.Provide().Create(context.Background(), f.conn, flag))
	return flag
}

func (f *fixture) createGroup(t *testing.T, name, definition string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, grouprepo.Provide().Create(context.Background(), f.conn, &groupdomain.Group{
		ID:         f.node.Generate(),
		Name:       name,
		Definition: definition,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
}

func TestCreateRuleValidation(t *testing.T) {
	f := setup(t)
	f.createFlag(t, "checkout")

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		FlagID: "checkout",
		Type:   "geofence",
		Value:  "US",
	})
	require.ErrorIs(t, err, domain.ErrInvalidType)

	for _, value := range []string{"-1", "101", "ten", ""} {
		_, err = f.svc.Create(context.Background(), domain.CreateRequest{
			FlagID: "checkout",
			Type:   domain.RuleTypePercentageOfActors,
			Value:  value,
		})
		require.ErrorIs(t, err, domain.ErrInvalidPercentage, "value %q", value)
	}

	_, err = f.svc.Create(context.Background(), domain.CreateRequest{
		FlagID: "checkout",
		Type:   domain.RuleTypeGroup,
		Value:  "ghosts",
	})
	require.ErrorIs(t, err, domain.ErrUnknownGroup)
}

func TestCreateRuleUnknownFlag(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		FlagID: "missing",
		Type:   domain.RuleTypePercentageOfActors,
		Value:  "10",
	})
	require.ErrorIs(t, err, flagdomain.ErrNotFound)
}

func TestCreateRuleAndListOrder(t *testing.T) {
	f := setup(t)
	f.createFlag(t, "checkout")
	f.createGroup(t, "testers", "contains(email, 'example')")

	first, err := f.svc.Create(context.Background(), domain.CreateRequest{
		FlagID: "checkout",
		Type:   domain.RuleTypeGroup,
		Value:  "testers",
	})
	require.NoError(t, err)

	second, err := f.svc.Create(context.Background(), domain.CreateRequest{
		FlagID: "checkout",
		Type:   domain.RuleTypePercentageOfActors,
		Value:  "10",
	})
	require.NoError(t, err)

	rules, err := f.svc.ListByFlag(context.Background(), "checkout")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, first.ID, rules[0].ID)
	assert.Equal(t, second.ID, rules[1].ID)
	assert.Contains(t, f.invalidator.flags, "checkout")
}

func TestUpdateRuleRevalidates(t *testing.T) {
	f := setup(t)
	f.createFlag(t, "checkout")

	created, err := f.svc.Create(context.Background(), domain.CreateRequest{
		FlagID: "checkout",
		Type:   domain.RuleTypePercentageOfActors,
		Value:  "10",
	})
	require.NoError(t, err)

	bad := "200"
	_, err = f.svc.Update(context.Background(), domain.UpdateRequest{
		FlagID: "checkout",
		ID:     created.ID,
		Value:  &bad,
	})
	require.ErrorIs(t, err, domain.ErrInvalidPercentage)

	good := "50"
	updated, err := f.svc.Update(context.Background(), domain.UpdateRequest{
		FlagID: "checkout",
		ID:     created.ID,
		Value:  &good,
	})
	require.NoError(t, err)
	assert.Equal(t, "50", updated.Value)
}

func TestDeleteRule(t *testing.T) {
	f := setup(t)
	f.createFlag(t, "checkout")

	created, err := f.svc.Create(context.Background(), domain.CreateRequest{
		FlagID: "checkout",
		Type:   domain.RuleTypePercentageOfActors,
		Value:  "10",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), "checkout", created.ID))

	rules, err := f.svc.ListByFlag(context.Background(), "checkout")
	require.NoError(t, err)
	assert.Empty(t, rules)

	err = f.svc.Delete(context.Background(), "checkout", created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
