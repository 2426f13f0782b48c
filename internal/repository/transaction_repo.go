package repository

import (
	"time"

	"memberly/internal/domain"
	"memberly/internal/models"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(t *models.Transaction) error {
	return r.db.Create(t).Error
}

func (r *TransactionRepository) GetByID(id uint) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByProviderPaymentID(gateway, providerPaymentID string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Where("gateway = ? AND provider_payment_id = ?", gateway, providerPaymentID).
		Order("id DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByCorrelationID(correlationID string) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.Where("correlation_id = ?", correlationID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// LatestForSubscription returns the most recent transaction; retried checkouts
// may stack several rows, only the newest pending/confirmed one is
// authoritative.
func (r *TransactionRepository) LatestForSubscription(subscriptionID uint) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Where("subscription_id = ?", subscriptionID).
		Order("id DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkConfirmed performs the guarded PENDING -> CONFIRMED transition. A second
// confirmation for the same row reports false and writes nothing.
func (r *TransactionRepository) MarkConfirmed(id uint, providerPaymentID, providerStatus string, paidAt time.Time) (bool, error) {
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, domain.TxPending).
		Updates(map[string]interface{}{
			"status":              domain.TxConfirmed,
			"provider_payment_id": providerPaymentID,
			"provider_status":     providerStatus,
			"paid_at":             paidAt,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkFailed performs the guarded PENDING -> FAILED transition. Confirmed rows
// are terminal and never revert.
func (r *TransactionRepository) MarkFailed(id uint, providerStatus string) (bool, error) {
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, domain.TxPending).
		Updates(map[string]interface{}{
			"status":          domain.TxFailed,
			"provider_status": providerStatus,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkRefunded flags an already-confirmed transaction as refunded. Access
// revocation stays with the sweeper/operator; the row is bookkeeping only.
func (r *TransactionRepository) MarkRefunded(id uint, providerStatus string) (bool, error) {
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, domain.TxConfirmed).
		Updates(map[string]interface{}{
			"status":          domain.TxRefunded,
			"provider_status": providerStatus,
		})
	return res.RowsAffected > 0, res.Error
}
