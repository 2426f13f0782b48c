package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"memberly/internal/database"
	"memberly/internal/domain"
	"memberly/internal/models"
	"memberly/internal/repository"
	"memberly/internal/service"
	"memberly/pkg/payment"
	"memberly/pkg/secrets"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// scriptedGateway returns a canned ParseWebhook answer so handler tests drive
// the HTTP contract without provider payloads.
type scriptedGateway struct {
	event *payment.NormalizedEvent
	err   error
}

func (g *scriptedGateway) ID() string { return "scripted" }

func (g *scriptedGateway) CreatePayment(ctx context.Context, creds payment.Credentials, req payment.PaymentRequest) (*payment.PaymentResult, error) {
	return nil, payment.ErrUnsupportedCapability
}

func (g *scriptedGateway) CreateSubscription(ctx context.Context, creds payment.Credentials, req payment.SubscriptionRequest) (*payment.SubscriptionResult, error) {
	return nil, payment.ErrUnsupportedCapability
}

func (g *scriptedGateway) CancelSubscription(ctx context.Context, creds payment.Credentials, externalID string) error {
	return nil
}

func (g *scriptedGateway) ParseWebhook(payload []byte, headers http.Header, creds payment.Credentials) (*payment.NormalizedEvent, error) {
	return g.event, g.err
}

type webhookFixture struct {
	db      *gorm.DB
	router  *gin.Engine
	gw      *scriptedGateway
	creator *models.Creator
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	gw := &scriptedGateway{}
	registry := payment.NewRegistry(gw)
	box, err := secrets.New(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	accounts := service.NewAccountService(repository.NewGatewayAccountRepository(db), box)
	reconcile := service.NewReconcileService(
		repository.NewSubscriptionRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewAuditLogRepository(db),
		service.LogNotifier{},
	)

	creator := &models.Creator{Handle: "alice"}
	require.NoError(t, db.Create(creator).Error)
	require.NoError(t, accounts.Save(creator.ID, "scripted", payment.Credentials{"api_key": "k"}, ""))

	router := gin.New()
	router.POST("/api/v1/webhooks/:gateway/:creator_id", NewWebhookHandler(registry, accounts, reconcile).Handle)
	return &webhookFixture{db: db, router: router, gw: gw, creator: creator}
}

func (f *webhookFixture) post(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(`{}`)))
	f.router.ServeHTTP(w, req)
	return w
}

func (f *webhookFixture) webhookPath() string {
	return "/api/v1/webhooks/scripted/" + itoa(f.creator.ID)
}

func TestWebhookConfirmedEventActivates(t *testing.T) {
	f := newWebhookFixture(t)
	sub := &models.Subscription{CreatorID: f.creator.ID, UserRef: "u1", Gateway: "scripted", GatewayRef: "ext-1", Status: domain.SubPending}
	require.NoError(t, f.db.Create(sub).Error)
	tx := &models.Transaction{
		SubscriptionID:    sub.ID,
		Gateway:           "scripted",
		ProviderPaymentID: "ext-1",
		CorrelationID:     "corr-1",
		Status:            domain.TxPending,
		Amount:            decimal.NewFromInt(10),
		PlatformFee:       decimal.RequireFromString("0.55"),
		CreatorNet:        decimal.RequireFromString("9.45"),
	}
	require.NoError(t, f.db.Create(tx).Error)

	f.gw.event = &payment.NormalizedEvent{ProviderPaymentID: "ext-1", Status: payment.StatusConfirmed}
	w := f.post(f.webhookPath())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received": true}`, w.Body.String())

	var got models.Subscription
	require.NoError(t, f.db.First(&got, sub.ID).Error)
	assert.Equal(t, domain.SubActive, got.Status)
}

func TestWebhookSignatureFailureRejects(t *testing.T) {
	f := newWebhookFixture(t)
	f.gw.err = payment.ErrSignature
	w := f.post(f.webhookPath())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookMalformedPayloadIsBadRequest(t *testing.T) {
	f := newWebhookFixture(t)
	f.gw.err = assert.AnError
	w := f.post(f.webhookPath())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookNoEventAcks(t *testing.T) {
	f := newWebhookFixture(t)
	f.gw.event = nil
	w := f.post(f.webhookPath())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookUnknownPaymentAcks(t *testing.T) {
	f := newWebhookFixture(t)
	f.gw.event = &payment.NormalizedEvent{ProviderPaymentID: "never-seen", Status: payment.StatusConfirmed}
	w := f.post(f.webhookPath())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookUnconfiguredCreatorAcks(t *testing.T) {
	f := newWebhookFixture(t)
	w := f.post("/api/v1/webhooks/scripted/9999")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookUnknownGateway(t *testing.T) {
	f := newWebhookFixture(t)
	w := f.post("/api/v1/webhooks/nope/" + itoa(f.creator.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(v uint) string { return strconv.FormatUint(uint64(v), 10) }
