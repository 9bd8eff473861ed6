package service

import (
	"strings"
	"time"

	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/payment/stripe"

	"github.com/shopspring/decimal"
)

// HandleStripeWebhook 处理 Stripe webhook。
// 验签失败直接返回网关错误；无法定位支付单或事件类型未知时记录日志并忽略。
func (s *PaymentService) HandleStripeWebhook(input WebhookCallbackInput) (*models.Payment, string, error) {
	log := paymentLogger(
		"provider", "stripe",
		"body_size", len(input.Body),
	)

	cfg, err := s.buildStripeConfig()
	if err != nil {
		log.Warnw("payment_webhook_config_invalid", "error", err)
		return nil, "", ErrPaymentGatewayConfigInvalid
	}

	result, err := stripe.VerifyAndParseWebhook(cfg, input.Headers, input.Body, time.Now())
	if err != nil {
		log.Warnw("payment_webhook_verify_failed", "error", err)
		return nil, "", mapStripeGatewayError(err)
	}
	log.Infow("payment_webhook_event_parsed",
		"event_type", result.EventType,
		"event_id", result.EventID,
		"session_id", result.SessionID,
		"payment_intent_id", result.PaymentIntentID,
		"order_no", result.OrderNo,
	)

	payment, err := s.findStripeWebhookPayment(result)
	if err != nil {
		log.Warnw("payment_webhook_payment_lookup_failed",
			"event_type", result.EventType,
			"event_id", result.EventID,
			"error", err,
		)
		return nil, result.EventType, err
	}
	if payment == nil {
		log.Infow("payment_webhook_payment_not_found",
			"event_type", result.EventType,
			"event_id", result.EventID,
			"session_id", result.SessionID,
			"payment_intent_id", result.PaymentIntentID,
		)
		return nil, result.EventType, nil
	}

	status, ok := mapStripeStatus(result.Status)
	if !ok {
		log.Infow("payment_webhook_event_ignored",
			"payment_id", payment.ID,
			"event_type", result.EventType,
			"event_id", result.EventID,
		)
		return payment, result.EventType, nil
	}

	amount := models.Money{}
	if strings.TrimSpace(result.Amount) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(result.Amount))
		if err == nil {
			amount = models.NewMoneyFromDecimal(parsed)
		}
	}
	payload := models.JSON{}
	if result.Raw != nil {
		payload = models.JSON(result.Raw)
	}

	updated, err := s.HandleCallback(PaymentCallbackInput{
		PaymentID:       payment.ID,
		OrderNo:         strings.TrimSpace(result.OrderNo),
		Status:          status,
		StripePaymentID: pickFirstNonEmpty(result.PaymentIntentID, payment.StripePaymentID),
		StripeSessionID: pickFirstNonEmpty(result.SessionID, payment.StripeSessionID),
		Amount:          amount,
		Currency:        strings.ToUpper(strings.TrimSpace(result.Currency)),
		PaidAt:          result.PaidAt,
		Payload:         payload,
	})
	if err != nil {
		log.Errorw("payment_webhook_callback_apply_failed",
			"payment_id", payment.ID,
			"event_type", result.EventType,
			"event_id", result.EventID,
			"error", err,
		)
		return nil, result.EventType, err
	}
	log.Infow("payment_webhook_processed",
		"payment_id", updated.ID,
		"event_type", result.EventType,
		"event_id", result.EventID,
		"status", updated.Status,
	)
	return updated, result.EventType, nil
}

// findStripeWebhookPayment 依次按 PaymentIntent、Checkout Session
// 以及事件元数据中的订单号定位支付单。
func (s *PaymentService) findStripeWebhookPayment(result *stripe.WebhookResult) (*models.Payment, error) {
	if result == nil {
		return nil, ErrPaymentInvalid
	}
	if result.PaymentID > 0 {
		payment, err := s.paymentRepo.GetByID(result.PaymentID)
		if err != nil {
			return nil, ErrPaymentUpdateFailed
		}
		if payment != nil {
			return payment, nil
		}
	}
	if ref := strings.TrimSpace(result.PaymentIntentID); ref != "" {
		payment, err := s.paymentRepo.GetByStripePaymentID(ref)
		if err != nil {
			return nil, ErrPaymentUpdateFailed
		}
		if payment != nil {
			return payment, nil
		}
	}
	if ref := strings.TrimSpace(result.SessionID); ref != "" {
		payment, err := s.paymentRepo.GetByStripeSessionID(ref)
		if err != nil {
			return nil, ErrPaymentUpdateFailed
		}
		if payment != nil {
			return payment, nil
		}
	}
	if result.OrderID > 0 {
		payment, err := s.paymentRepo.GetLatestByOrderID(result.OrderID)
		if err != nil {
			return nil, ErrPaymentUpdateFailed
		}
		if payment != nil {
			return payment, nil
		}
	}
	return nil, nil
}
