package models

import (
	"time"

	"gorm.io/gorm"
)

// Creator is a tenant: someone selling access to their community through the
// connected bot.
type Creator struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Handle         string         `gorm:"size:100;uniqueIndex;not null" json:"handle"`
	Name           string         `gorm:"size:255" json:"name"`
	BotRef         string         `gorm:"size:255" json:"bot_ref"` // external messaging-bot identifier
	DefaultGateway string         `gorm:"size:50" json:"default_gateway"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Creator) TableName() string { return "creators" }
