package repository

import (
	"time"

	"memberly/internal/domain"
	"memberly/internal/models"

	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(s *models.Subscription) error {
	return r.db.Create(s).Error
}

func (r *SubscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var s models.Subscription
	if err := r.db.Preload("Plan").First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Activate flips a pending subscription to active with its validity window.
// The status guard makes duplicate confirmations and racing sweeps no-ops;
// it reports whether this call performed the transition.
func (r *SubscriptionRepository) Activate(id uint, startsAt time.Time, expiresAt *time.Time) (bool, error) {
	res := r.db.Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, domain.SubPending).
		Updates(map[string]interface{}{
			"status":     domain.SubActive,
			"starts_at":  startsAt,
			"expires_at": expiresAt,
		})
	return res.RowsAffected > 0, res.Error
}

// UpdateStatusIf performs a guarded status transition and reports whether the
// row moved.
func (r *SubscriptionRepository) UpdateStatusIf(id uint, from, to string) (bool, error) {
	res := r.db.Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

// FindExpired returns active subscriptions whose validity window lapsed.
// Lifetime rows (expires_at IS NULL) never match.
func (r *SubscriptionRepository) FindExpired(now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("Plan").
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", domain.SubActive, now).
		Find(&subs).Error
	return subs, err
}

// FindExpiringBetween returns active subscriptions ending inside the window,
// for expiry reminders.
func (r *SubscriptionRepository) FindExpiringBetween(from, to time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("Plan").
		Where("status = ? AND expires_at IS NOT NULL AND expires_at BETWEEN ? AND ?", domain.SubActive, from, to).
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) ListByCreator(creatorID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("Plan").
		Where("creator_id = ?", creatorID).
		Order("id DESC").
		Find(&subs).Error
	return subs, err
}
