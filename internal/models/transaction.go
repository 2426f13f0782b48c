package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is one attempted payment. Rows are created PENDING by checkout,
// mutated only by the webhook reconciler, and never deleted (audit trail).
// CorrelationID is generated locally, stored here and echoed back by the
// provider, so webhooks correlate without parsing composite reference strings.
type Transaction struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	SubscriptionID    uint            `gorm:"not null;index" json:"subscription_id"`
	Gateway           string          `gorm:"size:50;not null" json:"gateway"`
	ProviderPaymentID string          `gorm:"size:255;index" json:"provider_payment_id"`
	CorrelationID     string          `gorm:"size:64;uniqueIndex;not null" json:"correlation_id"`
	ProviderStatus    string          `gorm:"size:100" json:"provider_status"` // last raw status reported
	Status            string          `gorm:"size:20;not null;index" json:"status"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	PlatformFee       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"platform_fee"`
	CreatorNet        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"creator_net"`
	PaidAt            *time.Time      `json:"paid_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`

	Subscription Subscription `gorm:"foreignKey:SubscriptionID" json:"-"`
}

func (Transaction) TableName() string { return "transactions" }
