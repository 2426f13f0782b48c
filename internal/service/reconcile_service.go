package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"memberly/internal/domain"
	"memberly/internal/models"
	"memberly/internal/repository"
	"memberly/pkg/payment"

	"gorm.io/gorm"
)

// ErrInvalidTransition flags a webhook trying to move a subscription somewhere
// its current state forbids (e.g. confirming into a cancelled subscription).
// It is logged and audited as a data-integrity signal, never applied.
var ErrInvalidTransition = errors.New("invalid subscription transition")

// ReconcileService applies normalized webhook events to local payment state.
// All mutations are status-guarded compare-and-swap updates, so duplicate and
// out-of-order deliveries converge on the same final state and the activation
// notification fires at most once per real-world payment.
type ReconcileService struct {
	subs     *repository.SubscriptionRepository
	txs      *repository.TransactionRepository
	audit    *repository.AuditLogRepository
	notifier Notifier
}

func NewReconcileService(
	subs *repository.SubscriptionRepository,
	txs *repository.TransactionRepository,
	audit *repository.AuditLogRepository,
	notifier Notifier,
) *ReconcileService {
	return &ReconcileService{subs: subs, txs: txs, audit: audit, notifier: notifier}
}

// Reconcile processes one event. A nil return includes logical no-ops
// (duplicates, unknown references); only storage failures surface as errors so
// the webhook handler can ask the provider to retry.
func (s *ReconcileService) Reconcile(gatewayID string, ev *payment.NormalizedEvent) error {
	tx, err := s.lookup(gatewayID, ev)
	if err != nil {
		return err
	}
	if tx == nil {
		log.Printf("[Reconcile] %s event for unknown payment %q (correlation %q), acknowledging",
			gatewayID, ev.ProviderPaymentID, ev.CorrelationID)
		return nil
	}

	switch ev.Status {
	case payment.StatusConfirmed:
		return s.confirm(tx, ev)
	case payment.StatusFailed:
		return s.fail(tx, ev)
	case payment.StatusRefunded:
		return s.refund(tx, ev)
	default:
		// pending-bucket events carry no transition
		return nil
	}
}

// lookup finds the transaction by provider payment id first, then by the
// opaque correlation id the provider echoed back. Nil means no local match.
func (s *ReconcileService) lookup(gatewayID string, ev *payment.NormalizedEvent) (*models.Transaction, error) {
	if ev.ProviderPaymentID != "" {
		tx, err := s.txs.GetByProviderPaymentID(gatewayID, ev.ProviderPaymentID)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if ev.CorrelationID != "" {
		tx, err := s.txs.GetByCorrelationID(ev.CorrelationID)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *ReconcileService) confirm(tx *models.Transaction, ev *payment.NormalizedEvent) error {
	paidAt := time.Now()
	if ev.PaidAt != nil {
		paidAt = *ev.PaidAt
	}
	providerPaymentID := ev.ProviderPaymentID
	if providerPaymentID == "" {
		providerPaymentID = tx.ProviderPaymentID
	}
	moved, err := s.txs.MarkConfirmed(tx.ID, providerPaymentID, ev.ProviderStatus, paidAt)
	if err != nil {
		return err
	}
	if !moved {
		// duplicate confirmation, or a confirm after a terminal failure
		log.Printf("[Reconcile] transaction %d already settled, ignoring duplicate confirmation", tx.ID)
		return nil
	}

	sub, err := s.subs.GetByID(tx.SubscriptionID)
	if err != nil {
		return err
	}
	now := time.Now()
	var expiresAt *time.Time
	if sub.Plan != nil && !sub.Plan.Lifetime() {
		t := now.AddDate(0, 0, sub.Plan.DurationDays)
		expiresAt = &t
	}
	activated, err := s.subs.Activate(sub.ID, now, expiresAt)
	if err != nil {
		return err
	}
	if !activated {
		s.auditInvalid(sub, fmt.Sprintf("confirmed payment %s cannot activate subscription in status %s", providerPaymentID, sub.Status))
		return nil
	}
	log.Printf("[Reconcile] subscription %d activated (transaction %d, paid %s)", sub.ID, tx.ID, paidAt.Format(time.RFC3339))
	if err := s.notifier.NotifyActivated(sub); err != nil {
		// state is already committed; delivery is best-effort here
		log.Printf("[Reconcile] activation notification for subscription %d failed: %v", sub.ID, err)
	}
	return nil
}

func (s *ReconcileService) fail(tx *models.Transaction, ev *payment.NormalizedEvent) error {
	moved, err := s.txs.MarkFailed(tx.ID, ev.ProviderStatus)
	if err != nil {
		return err
	}
	if !moved {
		// confirmed is terminal: a late failure event never reverts activation
		log.Printf("[Reconcile] transaction %d not pending, ignoring %s", tx.ID, ev.ProviderStatus)
		return nil
	}
	changed, err := s.subs.UpdateStatusIf(tx.SubscriptionID, domain.SubPending, domain.SubFailed)
	if err != nil {
		return err
	}
	if changed {
		// the payer is still on the checkout page; no push notification needed
		log.Printf("[Reconcile] subscription %d failed (%s)", tx.SubscriptionID, ev.ProviderStatus)
	}
	return nil
}

func (s *ReconcileService) refund(tx *models.Transaction, ev *payment.NormalizedEvent) error {
	moved, err := s.txs.MarkRefunded(tx.ID, ev.ProviderStatus)
	if err != nil {
		return err
	}
	if moved {
		log.Printf("[Reconcile] transaction %d refunded (%s); subscription %d left to the operator", tx.ID, ev.ProviderStatus, tx.SubscriptionID)
		return nil
	}
	// refund for a never-confirmed payment behaves like a failure
	return s.fail(tx, ev)
}

func (s *ReconcileService) auditInvalid(sub *models.Subscription, detail string) {
	log.Printf("[Reconcile] %v: subscription %d: %s", ErrInvalidTransition, sub.ID, detail)
	entry := &models.AuditLog{
		CreatorID:  &sub.CreatorID,
		Action:     "invalid_transition",
		Resource:   "subscription",
		ResourceID: fmt.Sprint(sub.ID),
		Detail:     detail,
	}
	if err := s.audit.Create(entry); err != nil {
		log.Printf("[Reconcile] audit write failed: %v", err)
	}
}
