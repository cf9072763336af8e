package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Group is a named, expression-defined set of users. The definition is a
// query in the restricted expression language and has passed validation
// before being persisted.
type Group struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	Name       string       `gorm:"type:text;not null;uniqueIndex:ux_groups_name"`
	Definition string       `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Group) TableName() string { return "groups" }
