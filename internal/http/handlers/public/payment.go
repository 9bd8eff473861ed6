package public

import (
	"errors"
	"strconv"

	"github.com/aurelia-shop/internal/http/response"
	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePaymentRequest 创建支付请求
type CreatePaymentRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Method  string `json:"method"`
}

// CreatePayment 为订单创建支付单
func (h *Handler) CreatePayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	result, err := h.PaymentService.CreatePayment(service.CreatePaymentInput{
		OrderID:  req.OrderID,
		UserID:   uid,
		Method:   req.Method,
		ClientIP: c.ClientIP(),
		Context:  c.Request.Context(),
	})
	if err != nil {
		respondPaymentCreateError(c, err)
		return
	}

	response.Success(c, buildPaymentResponse(result.Payment, result.OrderPaid))
}

// GetOrderPayment 获取订单最新支付单
func (h *Handler) GetOrderPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}

	payment, err := h.PaymentService.GetPaymentForOrder(uint(orderID), uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		default:
			respondError(c, response.CodeInternal, "failed to fetch payment", err)
		}
		return
	}

	response.Success(c, payment)
}

// SyncPayment 主动向网关同步支付状态
func (h *Handler) SyncPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paymentID == 0 {
		respondError(c, response.CodeBadRequest, "invalid payment id", nil)
		return
	}

	payment, err := h.PaymentRepo.GetByID(uint(paymentID))
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch payment", err)
		return
	}
	if payment == nil {
		respondError(c, response.CodeNotFound, "payment not found", nil)
		return
	}
	order, err := h.OrderRepo.GetByIDAndUser(payment.OrderID, uid)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch order", err)
		return
	}
	if order == nil {
		respondError(c, response.CodeNotFound, "payment not found", nil)
		return
	}

	updated, err := h.PaymentService.QueryPayment(c.Request.Context(), payment.ID)
	if err != nil {
		respondPaymentCallbackError(c, err)
		return
	}

	response.Success(c, updated)
}

func buildPaymentResponse(payment *models.Payment, orderPaid bool) gin.H {
	return gin.H{
		"payment":      payment,
		"order_paid":   orderPaid,
		"checkout_url": payment.CheckoutURL,
	}
}
