package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription grants one end user timed or lifetime access to one plan.
// PlanID is nil for ad-hoc offer purchases. ExpiresAt nil means lifetime.
// Status transitions: PENDING -> ACTIVE (reconciler), ACTIVE -> EXPIRED
// (sweeper), PENDING/ACTIVE -> CANCELLED (explicit), PENDING -> FAILED
// (reconciler). All writers guard on the expected pre-state.
type Subscription struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatorID  uint           `gorm:"not null;index" json:"creator_id"`
	PlanID     *uint          `gorm:"index" json:"plan_id"`
	UserRef    string         `gorm:"size:255;not null;index" json:"user_ref"` // end-user id in the messaging transport
	Gateway    string         `gorm:"size:50;not null" json:"gateway"`
	GatewayRef string         `gorm:"size:255;index" json:"gateway_ref"` // provider subscription/session id
	Status     string         `gorm:"size:20;not null;index" json:"status"`
	StartsAt   *time.Time     `json:"starts_at"`
	ExpiresAt  *time.Time     `gorm:"index" json:"expires_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Plan         *Plan         `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Creator      Creator       `gorm:"foreignKey:CreatorID" json:"-"`
	Transactions []Transaction `gorm:"foreignKey:SubscriptionID" json:"-"`
}

func (Subscription) TableName() string { return "subscriptions" }
