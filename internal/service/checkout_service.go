package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"memberly/internal/domain"
	"memberly/internal/models"
	"memberly/internal/repository"
	"memberly/pkg/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutRequest starts one payment attempt. Either PlanID or an ad-hoc
// Amount+Description must be set; Gateway overrides the creator's default.
type CheckoutRequest struct {
	CreatorID     uint
	PlanID        *uint
	Amount        decimal.Decimal
	Description   string
	UserRef       string
	PayerName     string
	PayerEmail    string
	PayerDocument string
	Gateway       string
	ReturnURL     string
}

// CheckoutResult is the provider-agnostic answer handed back to the caller.
type CheckoutResult struct {
	SubscriptionID uint          `json:"subscription_id"`
	TransactionID  uint          `json:"transaction_id"`
	CorrelationID  string        `json:"correlation_id"`
	Gateway        string        `json:"gateway"`
	PayURL         string        `json:"pay_url,omitempty"`
	QRCode         string        `json:"qr_code,omitempty"`
	Split          payment.Split `json:"split"`
}

// CheckoutService is the payment orchestrator: it resolves the adapter,
// computes the split once, calls the provider, and only then persists the
// pending subscription/transaction pair in a single database transaction.
// Adapter failures leave no partial state.
type CheckoutService struct {
	db       *gorm.DB
	registry *payment.Registry
	fees     *FeeService
	plans    *repository.PlanRepository
	creators *repository.CreatorRepository
	accounts *AccountService
	timeout  time.Duration
	callback string // base URL webhooks are delivered to
}

func NewCheckoutService(
	db *gorm.DB,
	registry *payment.Registry,
	fees *FeeService,
	plans *repository.PlanRepository,
	creators *repository.CreatorRepository,
	accounts *AccountService,
	providerTimeout time.Duration,
	callbackBaseURL string,
) *CheckoutService {
	if providerTimeout <= 0 {
		providerTimeout = 25 * time.Second
	}
	return &CheckoutService{
		db:       db,
		registry: registry,
		fees:     fees,
		plans:    plans,
		creators: creators,
		accounts: accounts,
		timeout:  providerTimeout,
		callback: callbackBaseURL,
	}
}

func (s *CheckoutService) CreatePaymentLink(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	creator, err := s.creators.GetByID(req.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("creator %d: %w", req.CreatorID, err)
	}

	var plan *models.Plan
	amount := req.Amount
	description := req.Description
	if req.PlanID != nil {
		plan, err = s.plans.GetByID(*req.PlanID)
		if err != nil {
			return nil, fmt.Errorf("plan %d: %w", *req.PlanID, err)
		}
		if plan.CreatorID != creator.ID {
			return nil, fmt.Errorf("plan %d does not belong to creator %d", plan.ID, creator.ID)
		}
		amount = plan.Price
		description = plan.Name
	}
	if !amount.IsPositive() {
		return nil, payment.ErrInvalidAmount
	}

	gatewayID := req.Gateway
	if gatewayID == "" {
		gatewayID = creator.DefaultGateway
	}
	gw, err := s.registry.Get(gatewayID)
	if err != nil {
		return nil, err
	}
	account, creds, err := s.accounts.Resolve(creator.ID, gatewayID)
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	split := payment.ComputeSplit(amount, s.fees.PlatformFee())
	payReq := payment.PaymentRequest{
		Amount:          amount,
		Description:     description,
		CorrelationID:   correlationID,
		PayerName:       req.PayerName,
		PayerEmail:      req.PayerEmail,
		PayerDocument:   req.PayerDocument,
		CallbackURL:     fmt.Sprintf("%s/api/v1/webhooks/%s/%d", s.callback, gatewayID, creator.ID),
		ReturnURL:       req.ReturnURL,
		PlatformAccount: account.PlatformAccount,
		Split:           split,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := &CheckoutResult{CorrelationID: correlationID, Gateway: gatewayID, Split: split}
	var externalID string
	if plan != nil && plan.Recurring {
		subRes, err := gw.CreateSubscription(callCtx, creds, payment.SubscriptionRequest{
			PaymentRequest: payReq,
			IntervalDays:   plan.DurationDays,
		})
		switch {
		case err == nil:
			externalID = subRes.ExternalID
			result.PayURL = subRes.PayURL
		case errors.Is(err, payment.ErrUnsupportedCapability):
			// no native recurring billing: sell a single cycle instead
			log.Printf("[Checkout] gateway %s has no recurring billing, falling back to one-off for plan %d", gatewayID, plan.ID)
			payRes, err := gw.CreatePayment(callCtx, creds, payReq)
			if err != nil {
				return nil, err
			}
			externalID = payRes.ExternalID
			result.PayURL = payRes.PayURL
			result.QRCode = payRes.QRCode
		default:
			return nil, err
		}
	} else {
		payRes, err := gw.CreatePayment(callCtx, creds, payReq)
		if err != nil {
			return nil, err
		}
		externalID = payRes.ExternalID
		result.PayURL = payRes.PayURL
		result.QRCode = payRes.QRCode
	}

	sub := &models.Subscription{
		CreatorID:  creator.ID,
		PlanID:     req.PlanID,
		UserRef:    req.UserRef,
		Gateway:    gatewayID,
		GatewayRef: externalID,
		Status:     domain.SubPending,
	}
	tx := &models.Transaction{
		Gateway:           gatewayID,
		ProviderPaymentID: externalID,
		CorrelationID:     correlationID,
		Status:            domain.TxPending,
		Amount:            split.Gross,
		PlatformFee:       split.PlatformFee,
		CreatorNet:        split.CreatorNet,
	}
	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Create(sub).Error; err != nil {
			return err
		}
		tx.SubscriptionID = sub.ID
		return dbtx.Create(tx).Error
	})
	if err != nil {
		return nil, fmt.Errorf("persist checkout: %w", err)
	}

	result.SubscriptionID = sub.ID
	result.TransactionID = tx.ID
	return result, nil
}
