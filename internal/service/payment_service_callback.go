package service

import (
	"strings"
	"time"

	"github.com/aurelia-shop/internal/constants"
	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/queue"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HandleCallback 应用一次支付状态回调。
// 已确认的支付单为终态，重复回调仅补写回调元信息。
func (s *PaymentService) HandleCallback(input PaymentCallbackInput) (*models.Payment, error) {
	if input.PaymentID == 0 {
		return nil, ErrPaymentInvalid
	}
	status := normalizePaymentStatus(input.Status)
	if !isPaymentStatusValid(status) {
		return nil, ErrPaymentStatusInvalid
	}

	log := paymentLogger(
		"payment_id", input.PaymentID,
		"target_status", status,
		"callback_order_no", strings.TrimSpace(input.OrderNo),
		"callback_currency", strings.ToUpper(strings.TrimSpace(input.Currency)),
		"callback_amount", input.Amount.String(),
	)
	log.Infow("payment_callback_received")

	payment, err := s.paymentRepo.GetByID(input.PaymentID)
	if err != nil {
		log.Errorw("payment_callback_payment_fetch_failed", "error", err)
		return nil, ErrPaymentUpdateFailed
	}
	if payment == nil {
		log.Warnw("payment_callback_payment_not_found")
		return nil, ErrPaymentNotFound
	}

	order, err := s.orderRepo.GetByID(payment.OrderID)
	if err != nil {
		log.Errorw("payment_callback_order_fetch_failed", "order_id", payment.OrderID, "error", err)
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		log.Warnw("payment_callback_order_not_found", "order_id", payment.OrderID)
		return nil, ErrOrderNotFound
	}

	if input.OrderNo != "" && input.OrderNo != order.OrderNo {
		log.Warnw("payment_callback_order_no_mismatch",
			"stored_order_no", order.OrderNo,
			"callback_order_no", input.OrderNo,
		)
		return nil, ErrPaymentInvalid
	}
	if input.Currency != "" && !strings.EqualFold(strings.TrimSpace(input.Currency), strings.TrimSpace(payment.Currency)) {
		log.Warnw("payment_callback_currency_mismatch",
			"stored_currency", payment.Currency,
			"callback_currency", input.Currency,
		)
		return nil, ErrPaymentCurrencyMismatch
	}
	if !input.Amount.Decimal.IsZero() && input.Amount.Decimal.Cmp(payment.Amount.Decimal) != 0 {
		log.Warnw("payment_callback_amount_mismatch",
			"stored_amount", payment.Amount.String(),
			"callback_amount", input.Amount.String(),
		)
		return nil, ErrPaymentAmountMismatch
	}

	// 幂等处理：已确认的不再回退状态
	if payment.Status == constants.PaymentStatusConfirmed {
		log.Infow("payment_callback_idempotent_confirmed",
			"current_status", payment.Status,
		)
		return s.updateCallbackMeta(payment, constants.PaymentStatusConfirmed, input)
	}
	if payment.Status == status {
		log.Infow("payment_callback_idempotent_same_status",
			"current_status", payment.Status,
		)
		return s.updateCallbackMeta(payment, status, input)
	}

	previousStatus := payment.Status
	now := time.Now()
	updated, orderConfirmed, err := s.applyPaymentUpdate(payment, order, status, input, now)
	if err != nil {
		log.Errorw("payment_callback_apply_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"current_status", payment.Status,
			"error", err,
		)
		return nil, err
	}
	if orderConfirmed {
		s.enqueueOrderConfirmedAsync(order, log)
	}
	log.Infow("payment_callback_processed",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"previous_status", previousStatus,
		"new_status", updated.Status,
		"order_confirmed", orderConfirmed,
	)
	return updated, nil
}

// updateCallbackMeta 仅补写回调元信息，不改动订单
func (s *PaymentService) updateCallbackMeta(payment *models.Payment, status string, input PaymentCallbackInput) (*models.Payment, error) {
	updated := false
	if input.StripePaymentID != "" && payment.StripePaymentID == "" {
		payment.StripePaymentID = input.StripePaymentID
		updated = true
	}
	if input.StripeSessionID != "" && payment.StripeSessionID == "" {
		payment.StripeSessionID = input.StripeSessionID
		updated = true
	}
	if input.Payload != nil {
		payment.ProviderPayload = input.Payload
		updated = true
	}
	if status != "" && payment.Status != status {
		payment.Status = status
		updated = true
	}
	if payment.Status == constants.PaymentStatusConfirmed && payment.PaidAt == nil && input.PaidAt != nil {
		payment.PaidAt = input.PaidAt
		updated = true
	}
	if updated {
		now := time.Now()
		payment.CallbackAt = &now
		payment.UpdatedAt = now
		if err := s.paymentRepo.Update(payment); err != nil {
			return nil, ErrPaymentUpdateFailed
		}
	}
	return payment, nil
}

// applyPaymentUpdate 在事务内更新支付单并联动订单状态与库存
func (s *PaymentService) applyPaymentUpdate(payment *models.Payment, order *models.Order, status string, input PaymentCallbackInput, now time.Time) (*models.Payment, bool, error) {
	returnVal := payment
	orderConfirmed := false

	if status == constants.PaymentStatusConfirmed {
		paidAt := now
		if input.PaidAt != nil {
			paidAt = *input.PaidAt
		}
		payment.PaidAt = &paidAt
	}

	payment.Status = status
	payment.CallbackAt = &now
	payment.UpdatedAt = now
	if input.StripePaymentID != "" {
		payment.StripePaymentID = input.StripePaymentID
	}
	if input.StripeSessionID != "" {
		payment.StripeSessionID = input.StripeSessionID
	}
	if input.Payload != nil {
		payment.ProviderPayload = input.Payload
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)

		if err := paymentRepo.Update(payment); err != nil {
			return ErrPaymentUpdateFailed
		}

		if status == constants.PaymentStatusConfirmed && order.Status != constants.OrderStatusConfirmed {
			if err := s.markOrderConfirmed(tx, order, now); err != nil {
				return err
			}
			orderConfirmed = true
		}
		if status == constants.PaymentStatusCancelled && order.Status == constants.OrderStatusPending {
			if err := s.cancelOrderInTx(tx, order, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return returnVal, orderConfirmed, nil
}

// markOrderConfirmed 在事务内将订单更新为已确认
func (s *PaymentService) markOrderConfirmed(tx *gorm.DB, order *models.Order, now time.Time) error {
	if order == nil {
		return ErrOrderNotFound
	}
	if !isTransitionAllowed(order.Status, constants.OrderStatusConfirmed) {
		return ErrOrderStatusInvalid
	}
	orderRepo := s.orderRepo.WithTx(tx)
	updates := map[string]interface{}{
		"paid_at":    now,
		"updated_at": now,
	}
	if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusConfirmed, updates); err != nil {
		return ErrOrderUpdateFailed
	}
	order.Status = constants.OrderStatusConfirmed
	order.PaidAt = &now
	order.UpdatedAt = now
	return nil
}

// cancelOrderInTx 在事务内取消订单并回补库存。
// 创建订单时已扣减库存，支付失败必须原路返还。
func (s *PaymentService) cancelOrderInTx(tx *gorm.DB, order *models.Order, now time.Time) error {
	if order == nil {
		return ErrOrderNotFound
	}
	if !isTransitionAllowed(order.Status, constants.OrderStatusCancelled) {
		return ErrOrderStatusInvalid
	}
	orderRepo := s.orderRepo.WithTx(tx)
	productRepo := s.productRepo.WithTx(tx)
	updates := map[string]interface{}{
		"canceled_at": now,
		"updated_at":  now,
	}
	if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusCancelled, updates); err != nil {
		return ErrOrderUpdateFailed
	}
	for _, item := range order.Items {
		if _, err := productRepo.RestoreStock(item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	order.Status = constants.OrderStatusCancelled
	order.CanceledAt = &now
	order.UpdatedAt = now
	return nil
}

func (s *PaymentService) enqueueOrderConfirmedAsync(order *models.Order, log *zap.SugaredLogger) {
	if order == nil || s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueOrderStatusEmail(queue.OrderStatusEmailPayload{
		OrderID: order.ID,
		Status:  constants.OrderStatusConfirmed,
	}); err != nil {
		log.Warnw("payment_enqueue_status_email_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"status", constants.OrderStatusConfirmed,
			"error", err,
		)
	}
}
