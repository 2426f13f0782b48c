package service

import (
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"memberly/internal/database"
	"memberly/internal/models"
	"memberly/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// countingNotifier records every delivery so tests can assert at-most-once
// semantics.
type countingNotifier struct {
	mu        sync.Mutex
	activated []uint
	expired   []uint
	reminded  []uint
}

func (n *countingNotifier) NotifyActivated(sub *models.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activated = append(n.activated, sub.ID)
	return nil
}

func (n *countingNotifier) NotifyExpired(sub *models.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, sub.ID)
	return nil
}

func (n *countingNotifier) NotifyExpiringSoon(sub *models.Subscription, daysLeft int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminded = append(n.reminded, sub.ID)
	return nil
}

// seedCheckout persists the creator/plan/subscription/transaction chain the
// reconciler expects to find after a checkout call.
func seedCheckout(t *testing.T, db *gorm.DB, durationDays int, correlationID string) (*models.Subscription, *models.Transaction) {
	t.Helper()
	creator := &models.Creator{Handle: "creator-" + correlationID, DefaultGateway: "pushinpay"}
	if err := db.Create(creator).Error; err != nil {
		t.Fatalf("seed creator: %v", err)
	}
	plan := &models.Plan{
		CreatorID:    creator.ID,
		Name:         "monthly",
		Price:        decimal.RequireFromString("19.90"),
		DurationDays: durationDays,
		Active:       true,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	sub := &models.Subscription{
		CreatorID:  creator.ID,
		PlanID:     &plan.ID,
		UserRef:    "user-1",
		Gateway:    "pushinpay",
		GatewayRef: "ext-" + correlationID,
		Status:     "PENDING",
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	tx := &models.Transaction{
		SubscriptionID:    sub.ID,
		Gateway:           "pushinpay",
		ProviderPaymentID: "ext-" + correlationID,
		CorrelationID:     correlationID,
		Status:            "PENDING",
		Amount:            decimal.RequireFromString("19.90"),
		PlatformFee:       decimal.RequireFromString("0.55"),
		CreatorNet:        decimal.RequireFromString("19.35"),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return sub, tx
}

func newReconcilerForTest(db *gorm.DB, notifier Notifier) *ReconcileService {
	return NewReconcileService(
		repository.NewSubscriptionRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewAuditLogRepository(db),
		notifier,
	)
}

func subStatus(t *testing.T, db *gorm.DB, id uint) string {
	t.Helper()
	var sub models.Subscription
	if err := db.First(&sub, id).Error; err != nil {
		t.Fatalf("load subscription %d: %v", id, err)
	}
	return sub.Status
}

func txStatus(t *testing.T, db *gorm.DB, id uint) string {
	t.Helper()
	var tx models.Transaction
	if err := db.First(&tx, id).Error; err != nil {
		t.Fatalf("load transaction %d: %v", id, err)
	}
	return tx.Status
}

func timePtr(t time.Time) *time.Time { return &t }

func itoa(v uint) string { return strconv.FormatUint(uint64(v), 10) }
