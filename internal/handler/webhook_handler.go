package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"memberly/internal/service"
	"memberly/pkg/payment"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives provider notifications on one path per gateway. The
// callback URL registered with each provider carries the creator id, so the
// right credentials can verify the payload before anything is reconciled.
// Signature failures reject the HTTP call; everything else acks with 200 so
// the provider stops retrying, including logical no-ops.
type WebhookHandler struct {
	registry  *payment.Registry
	accounts  *service.AccountService
	reconcile *service.ReconcileService
}

func NewWebhookHandler(registry *payment.Registry, accounts *service.AccountService, reconcile *service.ReconcileService) *WebhookHandler {
	return &WebhookHandler{registry: registry, accounts: accounts, reconcile: reconcile}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	gatewayID := c.Param("gateway")
	creatorID, err := strconv.ParseUint(c.Param("creator_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator id"})
		return
	}
	gw, err := h.registry.Get(gatewayID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown gateway"})
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	_, creds, err := h.accounts.Resolve(uint(creatorID), gatewayID)
	if err != nil {
		// a webhook for a creator without this gateway references nothing we track
		log.Printf("[Webhook] %s event for unconfigured creator %d, acknowledging", gatewayID, creatorID)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	ev, err := gw.ParseWebhook(body, c.Request.Header, creds)
	if err != nil {
		if errors.Is(err, payment.ErrSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		log.Printf("[Webhook] %s payload rejected: %v", gatewayID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if ev == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.reconcile.Reconcile(gatewayID, ev); err != nil {
		// storage failure: let the provider retry
		log.Printf("[Webhook] reconcile %s payment %s failed: %v", gatewayID, ev.ProviderPaymentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
