package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan is a paid-access offer. DurationDays == 0 means lifetime access;
// Recurring plans renew through the provider's native billing where supported.
type Plan struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CreatorID    uint            `gorm:"not null;index" json:"creator_id"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	DurationDays int             `gorm:"not null;default:0" json:"duration_days"`
	Recurring    bool            `gorm:"not null;default:false" json:"recurring"`
	Active       bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`

	Creator Creator `gorm:"foreignKey:CreatorID" json:"-"`
}

func (Plan) TableName() string { return "plans" }

// Lifetime reports whether the plan never expires.
func (p *Plan) Lifetime() bool { return p.DurationDays == 0 }
