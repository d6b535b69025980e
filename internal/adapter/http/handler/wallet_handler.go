package handler

import (
	"github.com/ejuuz/wallet-service/internal/adapter/http/dto"
	"github.com/ejuuz/wallet-service/internal/adapter/http/middleware"
	"github.com/ejuuz/wallet-service/internal/core/domain"
	"github.com/ejuuz/wallet-service/internal/core/ports"
	"github.com/ejuuz/wallet-service/pkg/apperror"
	"github.com/ejuuz/wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletHandler handles money-movement endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledgerSvc: ledgerSvc}
}

// Add handles POST /api/v1/wallet/add.
func (h *WalletHandler) Add(c *gin.Context) {
	ref, ok := accountFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, appErr := parseAmount(req.Amount)
	if appErr != nil {
		response.Error(c, appErr)
		return
	}

	result, err := h.ledgerSvc.Credit(c.Request.Context(), ports.CreditRequest{
		Account:   ref,
		Amount:    amount,
		ClientRef: req.ClientRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromLedgerResult(result))
}

// Withdraw handles POST /api/v1/wallet/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	ref, ok := accountFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, appErr := parseAmount(req.Amount)
	if appErr != nil {
		response.Error(c, appErr)
		return
	}

	result, err := h.ledgerSvc.Debit(c.Request.Context(), ports.DebitRequest{
		Account:   ref,
		Amount:    amount,
		ClientRef: req.ClientRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromLedgerResult(result))
}

// Transfer handles POST /api/v1/wallet/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	ref, ok := accountFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, appErr := parseAmount(req.Amount)
	if appErr != nil {
		response.Error(c, appErr)
		return
	}

	txn, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		From:        ref,
		ToPaymentID: req.ToPaymentID,
		Amount:      amount,
		ClientRef:   req.ClientRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromWalletTransaction(txn))
}

// ListTransactions handles GET /api/v1/wallet/transactions.
// An optional ?type=ADD|WITHDRAW|TRANSFER query narrows the result.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	ref, ok := accountFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var typeFilter *domain.WalletTransactionType
	if raw := c.Query("type"); raw != "" {
		t := domain.WalletTransactionType(raw)
		switch t {
		case domain.WalletTransactionAdd, domain.WalletTransactionWithdraw, domain.WalletTransactionTransfer:
			typeFilter = &t
		default:
			response.Error(c, apperror.Validation("unknown transaction type: "+raw))
			return
		}
	}

	txns, err := h.ledgerSvc.ListTransactions(c.Request.Context(), ref, typeFilter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WalletTransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, dto.FromWalletTransaction(&txns[i]))
	}
	response.OK(c, dto.TransactionListResponse{Items: items, Total: len(items)})
}

// accountFromContext reads the authenticated account set by JWTAuth.
func accountFromContext(c *gin.Context) (domain.AccountRef, bool) {
	v, ok := c.Get(middleware.CtxAccountRef)
	if !ok {
		return domain.AccountRef{}, false
	}
	ref, ok := v.(domain.AccountRef)
	return ref, ok
}

// parseAmount converts a wire decimal string to a decimal value.
func parseAmount(raw string) (decimal.Decimal, *apperror.AppError) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.Validation("amount must be a decimal number")
	}
	return amount, nil
}
