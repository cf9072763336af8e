package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// RuleType discriminates targeting behavior. Rules carry no shared state
// beyond the string payload interpreted per type.
type RuleType string

const (
	RuleTypePercentageOfActors RuleType = "percentage_of_actors"
	RuleTypeGroup              RuleType = "group"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleTypePercentageOfActors, RuleTypeGroup:
		return true
	default:
		return false
	}
}

type Rule struct {
	ID     snowflake.ID `gorm:"primaryKey"`
	FlagID snowflake.ID `gorm:"not null;index:ix_rules_flag_id"`
	Type   RuleType     `gorm:"column:rule_type;type:text;not null"`
	Value  string       `gorm:"type:text;not null"`

	// CreatedAt is the ordering key: rules are evaluated in creation order,
	// first match wins.
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Rule) TableName() string { return "rules" }
