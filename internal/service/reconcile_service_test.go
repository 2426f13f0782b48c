package service

import (
	"testing"
	"time"

	"memberly/internal/domain"
	"memberly/internal/models"
	"memberly/pkg/payment"

	"github.com/shopspring/decimal"
)

func TestReconcileConfirmActivatesOnce(t *testing.T) {
	db := testDB(t)
	notifier := &countingNotifier{}
	svc := newReconcilerForTest(db, notifier)
	sub, tx := seedCheckout(t, db, 30, "corr-1")

	paidAt := time.Now().Add(-time.Minute)
	ev := &payment.NormalizedEvent{
		ProviderPaymentID: tx.ProviderPaymentID,
		ProviderStatus:    "paid",
		Status:            payment.StatusConfirmed,
		CorrelationID:     "corr-1",
		AmountPaid:        decimal.RequireFromString("19.90"),
		PaidAt:            &paidAt,
	}
	if err := svc.Reconcile("pushinpay", ev); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if got := txStatus(t, db, tx.ID); got != domain.TxConfirmed {
		t.Fatalf("transaction status = %s, want CONFIRMED", got)
	}
	var activated models.Subscription
	if err := db.First(&activated, sub.ID).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if activated.Status != domain.SubActive {
		t.Fatalf("subscription status = %s, want ACTIVE", activated.Status)
	}
	if activated.StartsAt == nil || activated.ExpiresAt == nil {
		t.Fatalf("validity window not set: %+v", activated)
	}
	wantExpiry := activated.StartsAt.AddDate(0, 0, 30)
	if diff := activated.ExpiresAt.Sub(wantExpiry); diff < -time.Second || diff > time.Second {
		t.Fatalf("expires_at = %v, want ~%v", activated.ExpiresAt, wantExpiry)
	}

	// the provider redelivers the same confirmation
	if err := svc.Reconcile("pushinpay", ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(notifier.activated) != 1 {
		t.Fatalf("activation notified %d times, want 1", len(notifier.activated))
	}
}

func TestReconcileLifetimePlanHasNoExpiry(t *testing.T) {
	db := testDB(t)
	svc := newReconcilerForTest(db, &countingNotifier{})
	sub, tx := seedCheckout(t, db, 0, "corr-life")

	ev := &payment.NormalizedEvent{
		ProviderPaymentID: tx.ProviderPaymentID,
		Status:            payment.StatusConfirmed,
	}
	if err := svc.Reconcile("pushinpay", ev); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	var activated models.Subscription
	db.First(&activated, sub.ID)
	if activated.Status != domain.SubActive || activated.ExpiresAt != nil {
		t.Fatalf("subscription = %+v, want ACTIVE with nil expires_at", activated)
	}
}

func TestReconcileFailedAfterConfirmedNeverReverts(t *testing.T) {
	db := testDB(t)
	svc := newReconcilerForTest(db, &countingNotifier{})
	sub, tx := seedCheckout(t, db, 30, "corr-2")

	confirm := &payment.NormalizedEvent{ProviderPaymentID: tx.ProviderPaymentID, Status: payment.StatusConfirmed}
	if err := svc.Reconcile("pushinpay", confirm); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	late := &payment.NormalizedEvent{ProviderPaymentID: tx.ProviderPaymentID, ProviderStatus: "expired", Status: payment.StatusFailed}
	if err := svc.Reconcile("pushinpay", late); err != nil {
		t.Fatalf("late failure: %v", err)
	}
	if got := txStatus(t, db, tx.ID); got != domain.TxConfirmed {
		t.Fatalf("transaction status = %s, want CONFIRMED kept", got)
	}
	if got := subStatus(t, db, sub.ID); got != domain.SubActive {
		t.Fatalf("subscription status = %s, want ACTIVE kept", got)
	}
}

func TestReconcileFailedMarksPendingPairFailed(t *testing.T) {
	db := testDB(t)
	svc := newReconcilerForTest(db, &countingNotifier{})
	sub, tx := seedCheckout(t, db, 30, "corr-3")

	ev := &payment.NormalizedEvent{ProviderPaymentID: tx.ProviderPaymentID, ProviderStatus: "rejected", Status: payment.StatusFailed}
	if err := svc.Reconcile("pushinpay", ev); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := txStatus(t, db, tx.ID); got != domain.TxFailed {
		t.Fatalf("transaction status = %s, want FAILED", got)
	}
	if got := subStatus(t, db, sub.ID); got != domain.SubFailed {
		t.Fatalf("subscription status = %s, want FAILED", got)
	}
}

func TestReconcileUnknownPaymentIsAcked(t *testing.T) {
	db := testDB(t)
	notifier := &countingNotifier{}
	svc := newReconcilerForTest(db, notifier)
	sub, tx := seedCheckout(t, db, 30, "corr-4")

	ev := &payment.NormalizedEvent{ProviderPaymentID: "never-seen", CorrelationID: "also-never-seen", Status: payment.StatusConfirmed}
	if err := svc.Reconcile("pushinpay", ev); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := subStatus(t, db, sub.ID); got != domain.SubPending {
		t.Fatalf("unrelated subscription mutated to %s", got)
	}
	if got := txStatus(t, db, tx.ID); got != domain.TxPending {
		t.Fatalf("unrelated transaction mutated to %s", got)
	}
	if len(notifier.activated) != 0 {
		t.Fatal("unknown event produced a notification")
	}
}

func TestReconcileLookupFallsBackToCorrelationID(t *testing.T) {
	db := testDB(t)
	svc := newReconcilerForTest(db, &countingNotifier{})
	sub, _ := seedCheckout(t, db, 30, "corr-5")

	// capture-style events carry the provider's own id, not ours; the echoed
	// correlation id still finds the row
	ev := &payment.NormalizedEvent{ProviderPaymentID: "cap-999", CorrelationID: "corr-5", Status: payment.StatusConfirmed}
	if err := svc.Reconcile("pushinpay", ev); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := subStatus(t, db, sub.ID); got != domain.SubActive {
		t.Fatalf("subscription status = %s, want ACTIVE", got)
	}
}

func TestReconcilePendingEventIsNoOp(t *testing.T) {
	db := testDB(t)
	svc := newReconcilerForTest(db, &countingNotifier{})
	sub, tx := seedCheckout(t, db, 30, "corr-6")

	ev := &payment.NormalizedEvent{ProviderPaymentID: tx.ProviderPaymentID, ProviderStatus: "in_process", Status: payment.StatusPending}
	if err := svc.Reconcile("pushinpay", ev); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := subStatus(t, db, sub.ID); got != domain.SubPending {
		t.Fatalf("subscription status = %s, want PENDING", got)
	}
}

func TestReconcileConfirmIntoCancelledAudits(t *testing.T) {
	db := testDB(t)
	svc := newReconcilerForTest(db, &countingNotifier{})
	sub, tx := seedCheckout(t, db, 30, "corr-7")
	if err := db.Model(&models.Subscription{}).Where("id = ?", sub.ID).Update("status", domain.SubCancelled).Error; err != nil {
		t.Fatalf("cancel: %v", err)
	}

	ev := &payment.NormalizedEvent{ProviderPaymentID: tx.ProviderPaymentID, Status: payment.StatusConfirmed}
	if err := svc.Reconcile("pushinpay", ev); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := subStatus(t, db, sub.ID); got != domain.SubCancelled {
		t.Fatalf("cancelled subscription moved to %s", got)
	}
	var entries []models.AuditLog
	if err := db.Where("action = ?", "invalid_transition").Find(&entries).Error; err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
}

func TestReconcileRefundAfterConfirm(t *testing.T) {
	db := testDB(t)
	svc := newReconcilerForTest(db, &countingNotifier{})
	sub, tx := seedCheckout(t, db, 30, "corr-8")

	if err := svc.Reconcile("pushinpay", &payment.NormalizedEvent{ProviderPaymentID: tx.ProviderPaymentID, Status: payment.StatusConfirmed}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := svc.Reconcile("pushinpay", &payment.NormalizedEvent{ProviderPaymentID: tx.ProviderPaymentID, ProviderStatus: "refunded", Status: payment.StatusRefunded}); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got := txStatus(t, db, tx.ID); got != domain.TxRefunded {
		t.Fatalf("transaction status = %s, want REFUNDED", got)
	}
	// access revocation is an operator decision, not automatic
	if got := subStatus(t, db, sub.ID); got != domain.SubActive {
		t.Fatalf("subscription status = %s, want ACTIVE kept", got)
	}
}

func TestReconcileRefundBeforeConfirmBehavesLikeFailure(t *testing.T) {
	db := testDB(t)
	svc := newReconcilerForTest(db, &countingNotifier{})
	sub, tx := seedCheckout(t, db, 30, "corr-9")

	if err := svc.Reconcile("pushinpay", &payment.NormalizedEvent{ProviderPaymentID: tx.ProviderPaymentID, ProviderStatus: "refunded", Status: payment.StatusRefunded}); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got := txStatus(t, db, tx.ID); got != domain.TxFailed {
		t.Fatalf("transaction status = %s, want FAILED", got)
	}
	if got := subStatus(t, db, sub.ID); got != domain.SubFailed {
		t.Fatalf("subscription status = %s, want FAILED", got)
	}
}
