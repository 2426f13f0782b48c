package handler

import (
	"errors"
	"net/http"
	"strconv"

	"memberly/internal/models"
	"memberly/internal/repository"
	"memberly/internal/service"
	"memberly/pkg/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SubscriptionHandler struct {
	subs *repository.SubscriptionRepository
	txs  *repository.TransactionRepository
	svc  *service.SubscriptionService
}

func NewSubscriptionHandler(subs *repository.SubscriptionRepository, txs *repository.TransactionRepository, svc *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, txs: txs, svc: svc}
}

// Get returns a subscription together with its most recent payment attempt;
// retried checkouts stack transactions and only the newest one is
// authoritative.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}
	sub, err := h.subs.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	var latest *models.Transaction
	tx, err := h.txs.LatestForSubscription(sub.ID)
	switch {
	case err == nil:
		latest = tx
	case errors.Is(err, gorm.ErrRecordNotFound):
		// no payment attempt recorded yet
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "latest_transaction": latest})
}

// ListByCreator returns a creator's subscriptions, newest first.
func (h *SubscriptionHandler) ListByCreator(c *gin.Context) {
	creatorID, err := strconv.ParseUint(c.Param("creator_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator id"})
		return
	}
	subs, err := h.subs.ListByCreator(uint(creatorID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}
	sub, err := h.svc.Cancel(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		case errors.Is(err, service.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, payment.ErrConfiguration):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "gateway not configured for this creator"})
		case errors.Is(err, payment.ErrTransport):
			c.JSON(http.StatusBadGateway, gin.H{"error": "gateway cancellation failed, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cancel failed"})
		}
		return
	}
	c.JSON(http.StatusOK, sub)
}
