package public

import (
	"errors"

	"github.com/aurelia-shop/internal/http/response"
	"github.com/aurelia-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidInput, code: response.CodeBadRequest, msg: "invalid request"},
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, msg: "cart is empty"},
	{target: service.ErrInvalidCartItem, code: response.CodeBadRequest, msg: "invalid cart item"},
	{target: service.ErrAddressNotFound, code: response.CodeBadRequest, msg: "address not found"},
	{target: service.ErrProductNotAvailable, code: response.CodeBadRequest, msg: "product not available"},
	{target: service.ErrStockInsufficient, code: response.CodeBadRequest, msg: "insufficient stock"},
	{target: service.ErrPaymentMethodNotSupported, code: response.CodeBadRequest, msg: "payment method not supported"},
}

var paymentGatewayErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentGatewayConfigInvalid, code: response.CodeInternal, msg: "payment gateway not configured"},
	{target: service.ErrPaymentGatewayRequestFailed, code: response.CodeBadRequest, msg: "payment gateway request failed"},
	{target: service.ErrPaymentGatewayResponseInvalid, code: response.CodeBadRequest, msg: "payment gateway response invalid"},
}

var paymentCreateErrorRules = append([]mappedHandlerError{
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, msg: "invalid payment request"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, msg: "order is not payable"},
	{target: service.ErrPaymentMethodNotSupported, code: response.CodeBadRequest, msg: "payment method not supported"},
}, paymentGatewayErrorRules...)

var paymentCallbackErrorRules = append([]mappedHandlerError{
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, msg: "invalid payment callback"},
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, msg: "payment not found"},
	{target: service.ErrPaymentStatusInvalid, code: response.CodeBadRequest, msg: "invalid payment status"},
	{target: service.ErrPaymentAmountMismatch, code: response.CodeBadRequest, msg: "payment amount mismatch"},
	{target: service.ErrPaymentCurrencyMismatch, code: response.CodeBadRequest, msg: "payment currency mismatch"},
}, paymentGatewayErrorRules...)

func respondOrderCreateError(c *gin.Context, err error) {
	// 库存不足的响应带上触发商品名
	var stockErr *service.StockInsufficientError
	if errors.As(err, &stockErr) {
		respondError(c, response.CodeBadRequest, stockErr.Error(), nil)
		return
	}
	respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "failed to create order")
}

func respondPaymentCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCreateErrorRules, response.CodeInternal, "failed to create payment")
}

func respondPaymentCallbackError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCallbackErrorRules, response.CodeInternal, "failed to process payment callback")
}
