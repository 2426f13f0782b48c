package models

import (
	"time"

	"gorm.io/gorm"
)

// GatewayAccount links a creator to one payment provider. CredentialsEnc holds
// the creator's own provider credentials (BYOK) as an encrypted JSON blob;
// PlatformAccount is the platform-side wallet/account id the fee split is
// routed to for this gateway.
type GatewayAccount struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatorID       uint           `gorm:"not null;index:idx_gateway_accounts_creator_gateway,unique" json:"creator_id"`
	Gateway         string         `gorm:"size:50;not null;index:idx_gateway_accounts_creator_gateway,unique" json:"gateway"`
	CredentialsEnc  string         `gorm:"type:text;not null" json:"-"`
	PlatformAccount string         `gorm:"size:255" json:"platform_account"`
	Active          bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Creator Creator `gorm:"foreignKey:CreatorID" json:"-"`
}

func (GatewayAccount) TableName() string { return "gateway_accounts" }
