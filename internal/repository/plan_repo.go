package repository

import (
	"memberly/internal/models"

	"gorm.io/gorm"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(p *models.Plan) error {
	return r.db.Create(p).Error
}

func (r *PlanRepository) GetByID(id uint) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepository) ListByCreator(creatorID uint) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Where("creator_id = ? AND active = ?", creatorID, true).
		Order("price ASC").
		Find(&plans).Error
	return plans, err
}

func (r *PlanRepository) Update(p *models.Plan) error {
	return r.db.Save(p).Error
}
