package repository

import (
	"memberly/internal/models"

	"gorm.io/gorm"
)

type CreatorRepository struct {
	db *gorm.DB
}

func NewCreatorRepository(db *gorm.DB) *CreatorRepository {
	return &CreatorRepository{db: db}
}

func (r *CreatorRepository) Create(c *models.Creator) error {
	return r.db.Create(c).Error
}

func (r *CreatorRepository) GetByID(id uint) (*models.Creator, error) {
	var c models.Creator
	if err := r.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
