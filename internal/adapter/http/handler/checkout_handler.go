package handler

import (
	"github.com/ejuuz/wallet-service/internal/adapter/http/dto"
	"github.com/ejuuz/wallet-service/internal/core/domain"
	"github.com/ejuuz/wallet-service/internal/core/ports"
	"github.com/ejuuz/wallet-service/pkg/apperror"
	"github.com/ejuuz/wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CheckoutHandler handles order placement.
type CheckoutHandler struct {
	checkoutSvc ports.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutSvc ports.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc}
}

// PlaceOrder handles POST /api/v1/orders.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	ref, ok := accountFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	if ref.Type != domain.AccountTypeCustomer {
		response.Error(c, apperror.Validation("only customer accounts can place orders"))
		return
	}

	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	items := make([]domain.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		merchantID, err := uuid.Parse(it.MerchantID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid merchant_id: "+it.MerchantID))
			return
		}
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid product_id: "+it.ProductID))
			return
		}
		unitPrice, appErr := parseAmount(it.UnitPrice)
		if appErr != nil {
			response.Error(c, appErr)
			return
		}
		items = append(items, domain.CartItem{
			MerchantID: merchantID,
			ProductID:  productID,
			UnitPrice:  unitPrice,
			Quantity:   it.Quantity,
		})
	}

	result, err := h.checkoutSvc.PlaceOrder(c.Request.Context(), ref.ID, items)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromCheckoutResult(result))
}
