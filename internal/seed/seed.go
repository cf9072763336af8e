package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
	groupdomain "github.com/smallbiznis/beacon/internal/group/domain"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const demoFlagName = "new_dashboard"

var demoGroups = []struct {
	name       string
	definition string
}{
	{"beta_testers", "ends_with(email, '@example.com')"},
	{"premium_users", "role == 'premium'"},
	{"us_users", "country == 'US'"},
}

// EnsureDemoData seeds a demo flag with a group rule and a small percentage
// rollout so a fresh install has something to evaluate. Safe to run on every
// startup.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, g := range demoGroups {
			if err := ensureGroupTx(ctx, tx, node, g.name, g.definition); err != nil {
				return err
			}
		}

		flag, err := ensureDemoFlagTx(ctx, tx, node)
		if err != nil {
			return err
		}

		if err := ensureRuleTx(ctx, tx, node, flag.ID, ruledomain.RuleTypeGroup, "beta_testers"); err != nil {
			return err
		}
		return ensureRuleTx(ctx, tx, node, flag.ID, ruledomain.RuleTypePercentageOfActors, "10")
	})
}

func ensureGroupTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name, definition string) error {
	var existing groupdomain.Group
	err := tx.WithContext(ctx).Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&groupdomain.Group{
		ID:         node.Generate(),
		Name:       name,
		Definition: definition,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error
}

func ensureDemoFlagTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*flagdomain.Flag, error) {
	var existing flagdomain.Flag
	err := tx.WithContext(ctx).Where("name = ?", demoFlagName).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	description := "Demo rollout of the redesigned dashboard"
	now := time.Now().UTC()
	flag := &flagdomain.Flag{
		ID:          node.Generate(),
		Name:        demoFlagName,
		Description: &description,
		Enabled:     true,
		Variants: datatypes.NewJSONType([]flagdomain.Variant{
			{Name: "old", Weight: 70},
			{Name: "new", Weight: 30},
		}),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(flag).Error; err != nil {
		return nil, err
	}
	return flag, nil
}

func ensureRuleTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, flagID snowflake.ID, ruleType ruledomain.RuleType, value string) error {
	var existing ruledomain.Rule
	err := tx.WithContext(ctx).
		Where("flag_id = ? AND rule_type = ? AND value = ?", flagID, ruleType, value).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&ruledomain.Rule{
		ID:        node.Generate(),
		FlagID:    flagID,
		Type:      ruleType,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}
