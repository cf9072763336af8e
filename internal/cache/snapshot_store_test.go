package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/beacon/internal/config"
	evaluationdomain "github.com/smallbiznis/beacon/internal/evaluation/domain"
	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
	flagrepo "github.com/smallbiznis/beacon/internal/flag/repository"
	groupdomain "github.com/smallbiznis/beacon/internal/group/domain"
	grouprepo "github.com/smallbiznis/beacon/internal/group/repository"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
	rulerepo "github.com/smallbiznis/beacon/internal/rule/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupStore(t *testing.T, ttl time.Duration) (*SnapshotStore, *gorm.DB, *snowflake.Node) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&flagdomain.Flag{}, &ruledomain.Rule{}, &groupdomain.Group{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	store := NewSnapshotStore(StoreParams{
		Cfg:       config.Config{SnapshotTTL: ttl},
		DB:        conn,
		Log:       zap.NewNop(),
		FlagRepo:  flagrepo.Provide(),
		RuleRepo:  rulerepo.Provide(),
		GroupRepo: grouprepo.Provide(),
	})
	return store, conn, node
}

func insertFlag(t *testing.T, conn *gorm.DB, node *snowflake.Node, name string, enabled bool) *flagdomain.Flag {
	t.Helper()
	now := time.Now().UTC()
	flag := &flagdomain.Flag{
		ID:        node.Generate(),
		Name:      name,
		Enabled:   enabled,
		Variants:  datatypes.NewJSONType(flagdomain.DefaultVariants()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, flagrepo.Provide().Create(context.Background(), conn, flag))
	return flag
}

func TestFlagSnapshotMissing(t *testing.T) {
	store, _, _ := setupStore(t, time.Minute)

	_, err := store.FlagSnapshot(context.Background(), "missing")
	require.ErrorIs(t, err, evaluationdomain.ErrFlagNotFound)
}

func TestFlagSnapshotCachesUntilInvalidated(t *testing.T) {
	store, conn, node := setupStore(t, time.Minute)
	flag := insertFlag(t, conn, node, "checkout", true)

	snap, err := store.FlagSnapshot(context.Background(), "checkout")
	require.NoError(t, err)
	assert.True(t, snap.Flag.Enabled)
	assert.Empty(t, snap.Rules)

	// A write that bypasses invalidation stays invisible to the cached entry.
	now := time.Now().UTC()
	require.NoError(t, rulerepo.Provide().Create(context.Background(), conn, &ruledomain.Rule{
		ID:        node.Generate(),
		FlagID:    flag.ID,
		Type:      ruledomain.RuleTypePercentageOfActors,
		Value:     "10",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	cached, err := store.FlagSnapshot(context.Background(), "checkout")
	require.NoError(t, err)
	assert.Empty(t, cached.Rules)

	store.InvalidateFlag(context.Background(), "checkout")

	fresh, err := store.FlagSnapshot(context.Background(), "checkout")
	require.NoError(t, err)
	require.Len(t, fresh.Rules, 1)
}

func TestFlagSnapshotExpires(t *testing.T) {
	store, conn, node := setupStore(t, 10*time.Millisecond)
	flag := insertFlag(t, conn, node, "checkout", true)

	_, err := store.FlagSnapshot(context.Background(), "checkout")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, rulerepo.Provide().Create(context.Background(), conn, &ruledomain.Rule{
		ID:        node.Generate(),
		FlagID:    flag.ID,
		Type:      ruledomain.RuleTypePercentageOfActors,
		Value:     "10",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	time.Sleep(20 * time.Millisecond)

	fresh, err := store.FlagSnapshot(context.Background(), "checkout")
	require.NoError(t, err)
	require.Len(t, fresh.Rules, 1)
}

func TestGroupMissingIsNotAnError(t *testing.T) {
	store, _, _ := setupStore(t, time.Minute)

	group, err := store.Group(context.Background(), "ghosts")
	require.NoError(t, err)
	assert.Nil(t, group)
}

func TestGroupCachesAndInvalidates(t *testing.T) {
	store, conn, node := setupStore(t, time.Minute)

	now := time.Now().UTC()
	require.NoError(t, grouprepo.Provide().Create(context.Background(), conn, &groupdomain.Group{
		ID:         node.Generate(),
		Name:       "testers",
		Definition: "role == 'beta'",
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	group, err := store.Group(context.Background(), "testers")
	require.NoError(t, err)
	require.NotNil(t, group)
	assert.Equal(t, "role == 'beta'", group.Definition)

	require.NoError(t, conn.Exec(`UPDATE groups SET definition = ? WHERE name = ?`, "role == 'insider'", "testers").Error)

	cached, err := store.Group(context.Background(), "testers")
	require.NoError(t, err)
	assert.Equal(t, "role == 'beta'", cached.Definition)

	store.InvalidateGroup(context.Background(), "testers")

	fresh, err := store.Group(context.Background(), "testers")
	require.NoError(t, err)
	assert.Equal(t, "role == 'insider'", fresh.Definition)
}

func TestTTLCacheBasics(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	value, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, value)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.Set("b", 2, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get("b")
	assert.False(t, ok)
}
