package repository

import (
	"memberly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GatewayAccountRepository struct {
	db *gorm.DB
}

func NewGatewayAccountRepository(db *gorm.DB) *GatewayAccountRepository {
	return &GatewayAccountRepository{db: db}
}

func (r *GatewayAccountRepository) GetForCreator(creatorID uint, gateway string) (*models.GatewayAccount, error) {
	var a models.GatewayAccount
	err := r.db.Where("creator_id = ? AND gateway = ? AND active = ?", creatorID, gateway, true).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GatewayAccountRepository) ListForCreator(creatorID uint) ([]models.GatewayAccount, error) {
	var accounts []models.GatewayAccount
	err := r.db.Where("creator_id = ? AND active = ?", creatorID, true).Find(&accounts).Error
	return accounts, err
}

// Upsert replaces the credentials for a creator/gateway pair in place.
func (r *GatewayAccountRepository) Upsert(a *models.GatewayAccount) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "creator_id"}, {Name: "gateway"}},
		DoUpdates: clause.AssignmentColumns([]string{"credentials_enc", "platform_account", "active", "updated_at"}),
	}).Create(a).Error
}
