package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/aurelia-shop/internal/config"
	"github.com/aurelia-shop/internal/constants"
	"github.com/aurelia-shop/internal/models"

	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

func enableStripeConfig(cfg *config.Config) {
	cfg.Stripe.Enabled = true
	cfg.Stripe.SecretKey = "sk_test_123"
	cfg.Stripe.WebhookSecret = testWebhookSecret
	cfg.Stripe.SuccessURL = "https://shop.example.com/checkout/success?session_id={CHECKOUT_SESSION_ID}"
	cfg.Stripe.CancelURL = "https://shop.example.com/checkout/cancel"
}

func signWebhookBody(t *testing.T, body []byte, ts int64) map[string]string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	if _, err := mac.Write([]byte(strconv.FormatInt(ts, 10) + "." + string(body))); err != nil {
		t.Fatalf("compute signature failed: %v", err)
	}
	sig := hex.EncodeToString(mac.Sum(nil))
	return map[string]string{
		"Stripe-Signature": fmt.Sprintf("t=%d,v1=%s", ts, sig),
	}
}

func buildCheckoutCompletedEvent(t *testing.T, paymentID, orderID uint, orderNo string, amountMinor int64) []byte {
	t.Helper()
	payload := map[string]interface{}{
		"id":   fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":         "checkout.session",
				"id":             "cs_test_webhook",
				"payment_intent": "pi_test_webhook",
				"payment_status": "paid",
				"currency":       "usd",
				"amount_total":   amountMinor,
				"created":        time.Now().Unix(),
				"metadata": map[string]interface{}{
					"payment_id": strconv.FormatUint(uint64(paymentID), 10),
					"order_id":   strconv.FormatUint(uint64(orderID), 10),
					"order_no":   orderNo,
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal event failed: %v", err)
	}
	return body
}

func setupWebhookTest(t *testing.T) (*PaymentService, *gorm.DB) {
	t.Helper()
	svc, db := setupPaymentServiceTest(t)
	enableStripeConfig(svc.cfg)
	return svc, db
}

func TestHandleStripeWebhookConfirmsPayment(t *testing.T) {
	svc, db := setupWebhookTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "12.88", 0, 0)
	payment := createPendingPayment(t, db, order.ID, "12.88")

	body := buildCheckoutCompletedEvent(t, payment.ID, order.ID, order.OrderNo, 1288)
	headers := signWebhookBody(t, body, time.Now().Unix())

	updated, eventType, err := svc.HandleStripeWebhook(WebhookCallbackInput{
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}
	if eventType != "checkout.session.completed" {
		t.Fatalf("unexpected event type: %s", eventType)
	}
	if updated == nil || updated.Status != constants.PaymentStatusConfirmed {
		t.Fatalf("expected confirmed payment, got %+v", updated)
	}
	if updated.StripePaymentID != "pi_test_webhook" {
		t.Fatalf("expected payment intent recorded, got %s", updated.StripePaymentID)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %s", reloaded.Status)
	}
}

func TestHandleStripeWebhookDuplicateDelivery(t *testing.T) {
	svc, db := setupWebhookTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "12.88", 0, 0)
	payment := createPendingPayment(t, db, order.ID, "12.88")

	body := buildCheckoutCompletedEvent(t, payment.ID, order.ID, order.OrderNo, 1288)
	headers := signWebhookBody(t, body, time.Now().Unix())
	input := WebhookCallbackInput{Headers: headers, Body: body}

	if _, _, err := svc.HandleStripeWebhook(input); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	updated, _, err := svc.HandleStripeWebhook(input)
	if err != nil {
		t.Fatalf("duplicate delivery failed: %v", err)
	}
	if updated.Status != constants.PaymentStatusConfirmed {
		t.Fatalf("expected confirmed after duplicate, got %s", updated.Status)
	}

	var count int64
	if err := db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count payments failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single payment row, got %d", count)
	}
}

func TestHandleStripeWebhookInvalidSignature(t *testing.T) {
	svc, db := setupWebhookTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "12.88", 0, 0)
	payment := createPendingPayment(t, db, order.ID, "12.88")

	body := buildCheckoutCompletedEvent(t, payment.ID, order.ID, order.OrderNo, 1288)
	headers := map[string]string{
		"Stripe-Signature": fmt.Sprintf("t=%d,v1=deadbeef", time.Now().Unix()),
	}

	_, _, err := svc.HandleStripeWebhook(WebhookCallbackInput{Headers: headers, Body: body})
	if !errors.Is(err, ErrPaymentSignatureInvalid) {
		t.Fatalf("expected signature invalid error, got: %v", err)
	}

	var reloaded models.Payment
	if err := db.First(&reloaded, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if reloaded.Status != constants.PaymentStatusPending {
		t.Fatalf("expected payment untouched, got %s", reloaded.Status)
	}
}

func TestHandleStripeWebhookAmountMismatchRejected(t *testing.T) {
	svc, db := setupWebhookTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "12.88", 0, 0)
	payment := createPendingPayment(t, db, order.ID, "12.88")

	// 金额与支付单不一致的事件必须被拒绝
	body := buildCheckoutCompletedEvent(t, payment.ID, order.ID, order.OrderNo, 100)
	headers := signWebhookBody(t, body, time.Now().Unix())

	_, _, err := svc.HandleStripeWebhook(WebhookCallbackInput{Headers: headers, Body: body})
	if !errors.Is(err, ErrPaymentAmountMismatch) {
		t.Fatalf("expected amount mismatch error, got: %v", err)
	}
}

func TestHandleStripeWebhookUnknownPaymentAccepted(t *testing.T) {
	svc, _ := setupWebhookTest(t)

	body := buildCheckoutCompletedEvent(t, 9999, 9999, "AU00000000000000000000", 1288)
	headers := signWebhookBody(t, body, time.Now().Unix())

	payment, eventType, err := svc.HandleStripeWebhook(WebhookCallbackInput{Headers: headers, Body: body})
	if err != nil {
		t.Fatalf("expected unknown payment to be ignored, got: %v", err)
	}
	if payment != nil {
		t.Fatalf("expected nil payment for unknown reference, got %+v", payment)
	}
	if eventType != "checkout.session.completed" {
		t.Fatalf("unexpected event type: %s", eventType)
	}
}
