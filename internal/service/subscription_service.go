package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"memberly/internal/domain"
	"memberly/internal/models"
	"memberly/internal/repository"
	"memberly/pkg/payment"
)

// SubscriptionService covers explicit lifecycle actions outside the webhook
// path, currently cancellation.
type SubscriptionService struct {
	subs     *repository.SubscriptionRepository
	registry *payment.Registry
	accounts *AccountService
	audit    *repository.AuditLogRepository
}

func NewSubscriptionService(
	subs *repository.SubscriptionRepository,
	registry *payment.Registry,
	accounts *AccountService,
	audit *repository.AuditLogRepository,
) *SubscriptionService {
	return &SubscriptionService{subs: subs, registry: registry, accounts: accounts, audit: audit}
}

// Cancel stops a pending or active subscription. Provider-side cancellation is
// attempted first where the gateway tracks the subscription natively; an id the
// provider no longer knows is treated as already cancelled remotely.
func (s *SubscriptionService) Cancel(ctx context.Context, subscriptionID uint) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.SubPending && sub.Status != domain.SubActive {
		return nil, fmt.Errorf("%w: cannot cancel subscription in status %s", ErrInvalidTransition, sub.Status)
	}

	if sub.GatewayRef != "" {
		gw, err := s.registry.Get(sub.Gateway)
		if err != nil {
			return nil, err
		}
		_, creds, err := s.accounts.Resolve(sub.CreatorID, sub.Gateway)
		if err != nil {
			return nil, err
		}
		err = gw.CancelSubscription(ctx, creds, sub.GatewayRef)
		switch {
		case err == nil:
		case errors.Is(err, payment.ErrUnsupportedCapability):
			// one-off gateway: nothing tracked remotely
		case errors.Is(err, payment.ErrNotFound):
			log.Printf("[Subscription] gateway %s no longer knows %s, cancelling locally", sub.Gateway, sub.GatewayRef)
		default:
			return nil, err
		}
	}

	moved, err := s.subs.UpdateStatusIf(sub.ID, sub.Status, domain.SubCancelled)
	if err != nil {
		return nil, err
	}
	if !moved {
		// raced with the reconciler or sweeper; report current truth
		return s.subs.GetByID(sub.ID)
	}
	entry := &models.AuditLog{
		CreatorID:  &sub.CreatorID,
		Action:     "subscription_cancelled",
		Resource:   "subscription",
		ResourceID: fmt.Sprint(sub.ID),
	}
	if err := s.audit.Create(entry); err != nil {
		log.Printf("[Subscription] audit write failed: %v", err)
	}
	return s.subs.GetByID(sub.ID)
}
