package handler

import (
	"errors"
	"net/http"

	"memberly/internal/service"
	"memberly/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type checkoutRequest struct {
	CreatorID     uint   `json:"creator_id" binding:"required"`
	PlanID        *uint  `json:"plan_id"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	UserRef       string `json:"user_ref" binding:"required"`
	PayerName     string `json:"payer_name"`
	PayerEmail    string `json:"payer_email"`
	PayerDocument string `json:"payer_document"`
	Gateway       string `json:"gateway"`
	ReturnURL     string `json:"return_url"`
}

// Create starts a checkout and returns the payment URL/QR plus the computed
// split. Error codes distinguish an unknown gateway, a gateway the creator has
// not configured, and a gateway that rejected the request.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PlanID == nil && req.Amount == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan_id or amount required"})
		return
	}
	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
	}

	result, err := h.checkout.CreatePaymentLink(c.Request.Context(), service.CheckoutRequest{
		CreatorID:     req.CreatorID,
		PlanID:        req.PlanID,
		Amount:        amount,
		Description:   req.Description,
		UserRef:       req.UserRef,
		PayerName:     req.PayerName,
		PayerEmail:    req.PayerEmail,
		PayerDocument: req.PayerDocument,
		Gateway:       req.Gateway,
		ReturnURL:     req.ReturnURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrUnsupportedGateway):
			c.JSON(http.StatusBadRequest, gin.H{"error": "platform does not support this gateway"})
		case errors.Is(err, payment.ErrConfiguration):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "gateway not configured for this creator"})
		case errors.Is(err, payment.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		case errors.Is(err, payment.ErrTransport):
			c.JSON(http.StatusBadGateway, gin.H{"error": "gateway rejected the request, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, result)
}
