package service

import (
	"errors"
	"fmt"
)

// 服务层错误定义
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("user disabled")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category has products")
	ErrSlugTaken        = errors.New("slug already in use")

	ErrProductNotFound     = errors.New("product not found")
	ErrProductNotAvailable = errors.New("product not available")
	ErrStockInsufficient   = errors.New("insufficient stock")

	ErrCartEmpty       = errors.New("cart is empty")
	ErrInvalidCartItem = errors.New("invalid cart item")

	ErrAddressNotFound = errors.New("address not found")

	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderCreateFailed  = errors.New("order create failed")
	ErrOrderUpdateFailed  = errors.New("order update failed")
	ErrOrderFetchFailed   = errors.New("order fetch failed")
	ErrOrderStatusInvalid = errors.New("order status transition not allowed")

	ErrPaymentInvalid                = errors.New("payment request invalid")
	ErrPaymentNotFound               = errors.New("payment not found")
	ErrPaymentCreateFailed           = errors.New("payment create failed")
	ErrPaymentUpdateFailed           = errors.New("payment update failed")
	ErrPaymentStatusInvalid          = errors.New("payment status invalid")
	ErrPaymentAmountMismatch         = errors.New("payment amount mismatch")
	ErrPaymentCurrencyMismatch       = errors.New("payment currency mismatch")
	ErrPaymentMethodNotSupported     = errors.New("payment method not supported")
	ErrPaymentGatewayConfigInvalid   = errors.New("payment gateway config invalid")
	ErrPaymentGatewayRequestFailed   = errors.New("payment gateway request failed")
	ErrPaymentGatewayResponseInvalid = errors.New("payment gateway response invalid")
	ErrPaymentSignatureInvalid       = errors.New("payment signature invalid")
)

// StockInsufficientError 库存不足错误，携带触发校验失败的商品名
type StockInsufficientError struct {
	ProductName string
}

func (e *StockInsufficientError) Error() string {
	if e.ProductName == "" {
		return ErrStockInsufficient.Error()
	}
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

func (e *StockInsufficientError) Is(target error) bool {
	return target == ErrStockInsufficient
}

// StatusTransitionError 状态流转被拒绝，携带本次尝试的起止状态
type StatusTransitionError struct {
	From string
	To   string
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("status transition from %s to %s not allowed", e.From, e.To)
}

func (e *StatusTransitionError) Is(target error) bool {
	return target == ErrOrderStatusInvalid
}
