package models

import "time"

// AuditLog records state transitions and integrity signals (e.g. a webhook
// trying to reconcile a cancelled subscription into active).
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatorID  *uint     `gorm:"index" json:"creator_id"`
	Action     string    `gorm:"size:100;not null;index" json:"action"`
	Resource   string    `gorm:"size:100;index" json:"resource"`
	ResourceID string    `gorm:"size:100;index" json:"resource_id"`
	Detail     string    `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
