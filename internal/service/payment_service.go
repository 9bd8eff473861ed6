package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aurelia-shop/internal/config"
	"github.com/aurelia-shop/internal/constants"
	"github.com/aurelia-shop/internal/logger"
	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/payment/stripe"
	"github.com/aurelia-shop/internal/queue"
	"github.com/aurelia-shop/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentService 支付服务
type PaymentService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	paymentRepo repository.PaymentRepository
	queueClient *queue.Client
	cfg         *config.Config
}

// NewPaymentService 创建支付服务
func NewPaymentService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, paymentRepo repository.PaymentRepository, queueClient *queue.Client, cfg *config.Config) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		paymentRepo: paymentRepo,
		queueClient: queueClient,
		cfg:         cfg,
	}
}

// CreatePaymentInput 创建支付请求
type CreatePaymentInput struct {
	OrderID  uint
	UserID   uint
	Method   string
	ClientIP string
	Context  context.Context
}

// CreatePaymentResult 创建支付结果
type CreatePaymentResult struct {
	Payment   *models.Payment
	OrderPaid bool
}

// PaymentCallbackInput 支付回调输入
type PaymentCallbackInput struct {
	PaymentID       uint
	OrderNo         string
	Status          string
	StripePaymentID string
	StripeSessionID string
	Amount          models.Money
	Currency        string
	PaidAt          *time.Time
	Payload         models.JSON
}

// WebhookCallbackInput Webhook 回调输入
type WebhookCallbackInput struct {
	Headers map[string]string
	Body    []byte
	Context context.Context
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

func normalizePaymentStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

func isPaymentStatusValid(status string) bool {
	switch status {
	case constants.PaymentStatusPending, constants.PaymentStatusConfirmed, constants.PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

func pickFirstNonEmpty(values ...string) string {
	for _, val := range values {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// CreatePayment 创建支付单。待支付订单可复用已有的未完成 Stripe 会话。
func (s *PaymentService) CreatePayment(input CreatePaymentInput) (*CreatePaymentResult, error) {
	if input.OrderID == 0 || input.UserID == 0 {
		return nil, ErrPaymentInvalid
	}
	method := strings.ToLower(strings.TrimSpace(input.Method))
	if method == "" {
		method = constants.PaymentMethodStripe
	}
	if method != constants.PaymentMethodStripe && method != constants.PaymentMethodCOD {
		return nil, ErrPaymentMethodNotSupported
	}

	log := paymentLogger(
		"order_id", input.OrderID,
		"user_id", input.UserID,
		"method", method,
	)

	var payment *models.Payment
	var order *models.Order
	reusedPending := false
	orderConfirmed := false
	now := time.Now()

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		var lockedOrder models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			First(&lockedOrder, input.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return ErrOrderFetchFailed
		}
		if lockedOrder.UserID != input.UserID {
			return ErrOrderNotFound
		}
		if lockedOrder.Status != constants.OrderStatusPending {
			return ErrOrderStatusInvalid
		}
		if lockedOrder.ExpiresAt != nil && !lockedOrder.ExpiresAt.After(time.Now()) {
			return ErrOrderStatusInvalid
		}

		paymentRepo := s.paymentRepo.WithTx(tx)

		existing, err := paymentRepo.GetPendingByOrderID(lockedOrder.ID)
		if err != nil {
			return ErrPaymentCreateFailed
		}
		if existing != nil && method == constants.PaymentMethodStripe &&
			existing.Method == constants.PaymentMethodStripe && strings.TrimSpace(existing.CheckoutURL) != "" {
			reusedPending = true
			payment = existing
			order = &lockedOrder
			return nil
		}

		if existing != nil {
			// 下单时预建的待支付单：按本次选择的支付方式复用同一行。
			if err := paymentRepo.UpdateFields(existing.ID, map[string]interface{}{
				"method":     method,
				"amount":     lockedOrder.TotalAmount,
				"currency":   lockedOrder.Currency,
				"updated_at": now,
			}); err != nil {
				return ErrPaymentUpdateFailed
			}
			existing.Method = method
			existing.Amount = lockedOrder.TotalAmount
			existing.Currency = lockedOrder.Currency
			existing.UpdatedAt = now
			payment = existing
		} else {
			payment = &models.Payment{
				OrderID:   lockedOrder.ID,
				Method:    method,
				Amount:    lockedOrder.TotalAmount,
				Currency:  lockedOrder.Currency,
				Status:    constants.PaymentStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := paymentRepo.Create(payment); err != nil {
				return ErrPaymentCreateFailed
			}
		}

		if method == constants.PaymentMethodCOD {
			// 货到付款直接确认订单，支付单保持待支付直到签收。
			if err := s.markOrderConfirmed(tx, &lockedOrder, now); err != nil {
				return err
			}
			orderConfirmed = true
		}
		order = &lockedOrder
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderFetchFailed
	}

	if reusedPending {
		log.Infow("payment_create_reuse_pending",
			"payment_id", payment.ID,
			"stripe_session_id", payment.StripeSessionID,
		)
		return &CreatePaymentResult{Payment: payment}, nil
	}

	if method == constants.PaymentMethodCOD {
		log.Infow("payment_create_cod",
			"payment_id", payment.ID,
			"order_no", order.OrderNo,
			"amount", payment.Amount.String(),
		)
		s.enqueueOrderConfirmedAsync(order, log)
		return &CreatePaymentResult{Payment: payment, OrderPaid: orderConfirmed}, nil
	}

	cfg, err := s.buildStripeConfig()
	if err != nil {
		log.Warnw("payment_stripe_config_invalid", "error", err)
		return nil, ErrPaymentGatewayConfigInvalid
	}
	ctx := input.Context
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := stripe.CreateCheckoutSession(ctx, cfg, stripe.CreateInput{
		OrderID:     order.ID,
		OrderNo:     order.OrderNo,
		PaymentID:   payment.ID,
		Amount:      payment.Amount.String(),
		Currency:    payment.Currency,
		Description: s.buildPaymentDescription(order),
	})
	if err != nil {
		log.Errorw("payment_stripe_session_create_failed",
			"payment_id", payment.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
		return nil, mapStripeGatewayError(err)
	}

	updates := map[string]interface{}{
		"stripe_session_id": result.SessionID,
		"checkout_url":      result.URL,
		"updated_at":        time.Now(),
	}
	if strings.TrimSpace(result.PaymentIntentID) != "" {
		updates["stripe_payment_id"] = result.PaymentIntentID
	}
	if err := s.paymentRepo.UpdateFields(payment.ID, updates); err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	payment.StripeSessionID = result.SessionID
	payment.StripePaymentID = pickFirstNonEmpty(result.PaymentIntentID, payment.StripePaymentID)
	payment.CheckoutURL = result.URL

	log.Infow("payment_created",
		"payment_id", payment.ID,
		"order_no", order.OrderNo,
		"stripe_session_id", payment.StripeSessionID,
		"amount", payment.Amount.String(),
		"currency", payment.Currency,
	)
	return &CreatePaymentResult{Payment: payment}, nil
}

// QueryPayment 主动向 Stripe 查询支付状态并落库
func (s *PaymentService) QueryPayment(ctx context.Context, paymentID uint) (*models.Payment, error) {
	if paymentID == 0 {
		return nil, ErrPaymentInvalid
	}
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Method != constants.PaymentMethodStripe {
		return payment, nil
	}
	providerRef := pickFirstNonEmpty(payment.StripePaymentID, payment.StripeSessionID)
	if providerRef == "" {
		return payment, nil
	}
	cfg, err := s.buildStripeConfig()
	if err != nil {
		return nil, ErrPaymentGatewayConfigInvalid
	}
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := stripe.QueryPayment(ctx, cfg, providerRef)
	if err != nil {
		return nil, mapStripeGatewayError(err)
	}
	status, ok := mapStripeStatus(result.Status)
	if !ok || status == payment.Status {
		return payment, nil
	}
	return s.HandleCallback(PaymentCallbackInput{
		PaymentID:       payment.ID,
		Status:          status,
		StripePaymentID: result.PaymentIntentID,
		StripeSessionID: result.SessionID,
		Currency:        result.Currency,
		PaidAt:          result.PaidAt,
		Payload:         models.JSON(result.Raw),
	})
}

// GetPaymentForOrder 获取订单最新支付单
func (s *PaymentService) GetPaymentForOrder(orderID uint, userID uint) (*models.Payment, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	payment, err := s.paymentRepo.GetLatestByOrderID(order.ID)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) buildStripeConfig() (*stripe.Config, error) {
	if s.cfg == nil || !s.cfg.Stripe.Enabled {
		return nil, ErrPaymentGatewayConfigInvalid
	}
	cfg := &stripe.Config{
		SecretKey:     s.cfg.Stripe.SecretKey,
		WebhookSecret: s.cfg.Stripe.WebhookSecret,
		SuccessURL:    s.cfg.Stripe.SuccessURL,
		CancelURL:     s.cfg.Stripe.CancelURL,
	}
	cfg.Normalize()
	if err := stripe.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *PaymentService) buildPaymentDescription(order *models.Order) string {
	name := "Aurelia"
	if s.cfg != nil && strings.TrimSpace(s.cfg.Shop.Name) != "" {
		name = strings.TrimSpace(s.cfg.Shop.Name)
	}
	return name + " order " + order.OrderNo
}

// mapStripeStatus 将网关状态映射为支付单状态
func mapStripeStatus(status string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case stripe.StatusSuccess:
		return constants.PaymentStatusConfirmed, true
	case stripe.StatusFailed, stripe.StatusExpired:
		return constants.PaymentStatusCancelled, true
	case stripe.StatusPending:
		return constants.PaymentStatusPending, true
	default:
		return "", false
	}
}

func mapStripeGatewayError(err error) error {
	switch {
	case errors.Is(err, stripe.ErrConfigInvalid):
		return ErrPaymentGatewayConfigInvalid
	case errors.Is(err, stripe.ErrRequestFailed):
		return ErrPaymentGatewayRequestFailed
	case errors.Is(err, stripe.ErrSignatureInvalid):
		return ErrPaymentSignatureInvalid
	case errors.Is(err, stripe.ErrResponseInvalid):
		return ErrPaymentGatewayResponseInvalid
	default:
		return ErrPaymentGatewayRequestFailed
	}
}
