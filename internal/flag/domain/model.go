package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Variant is one weighted named outcome a flag can resolve to when enabled.
// Weights need not sum to 100; selection normalizes over the total.
type Variant struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

type Flag struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Name        string       `gorm:"type:text;not null;uniqueIndex:ux_flags_name"`
	Description *string      `gorm:"type:text"`
	Enabled     bool         `gorm:"not null;default:true"`

	Variants datatypes.JSONType[[]Variant] `gorm:"type:json"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Flag) TableName() string { return "flags" }

// DefaultVariants is the 50/50 A/B split applied when a flag is created
// without explicit variants.
func DefaultVariants() []Variant {
	return []Variant{
		{Name: "A", Weight: 50},
		{Name: "B", Weight: 50},
	}
}

// VariantList returns the stored variants in declaration order.
func (f *Flag) VariantList() []Variant {
	return f.Variants.Data()
}

// TotalWeight sums all variant weights.
func (f *Flag) TotalWeight() int {
	total := 0
	for _, v := range f.VariantList() {
		total += v.Weight
	}
	return total
}
