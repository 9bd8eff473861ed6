package stripe

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

func TestNormalizeAndValidateConfig(t *testing.T) {
	cfg := &Config{
		SecretKey:     " sk_test_123 ",
		WebhookSecret: " whsec_123 ",
		SuccessURL:    "https://example.com/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "https://example.com/checkout/cancel",
	}
	cfg.Normalize()
	if cfg.SecretKey != "sk_test_123" {
		t.Fatalf("unexpected secret key: %s", cfg.SecretKey)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected default api base url: %s", cfg.APIBaseURL)
	}
	if len(cfg.PaymentMethodTypes) != 1 || cfg.PaymentMethodTypes[0] != "card" {
		t.Fatalf("unexpected payment method types: %v", cfg.PaymentMethodTypes)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
}

func TestVerifyAndParseWebhookCheckoutCompletedPaid(t *testing.T) {
	now := time.Unix(1760000000, 0)
	cfg := &Config{
		WebhookSecret:           "whsec_test_abc",
		WebhookToleranceSeconds: 300,
	}
	payload := map[string]interface{}{
		"id":   "evt_test_1",
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":         "checkout.session",
				"id":             "cs_test_123",
				"payment_intent": "pi_test_123",
				"payment_status": "paid",
				"currency":       "usd",
				"amount_total":   1288,
				"created":        now.Unix(),
				"metadata": map[string]interface{}{
					"payment_id": "1001",
					"order_id":   "42",
					"order_no":   "AU17600000001001",
				},
			},
		},
	}
	body, _ := json.Marshal(payload)
	sig := computeSignature(cfg.WebhookSecret, now.Unix(), body)
	headers := map[string]string{
		"Stripe-Signature": "t=1760000000,v1=" + sig,
	}

	result, err := VerifyAndParseWebhook(cfg, headers, body, now)
	if err != nil {
		t.Fatalf("verify and parse webhook failed: %v", err)
	}
	if result.EventType != "checkout.session.completed" {
		t.Fatalf("unexpected event type: %s", result.EventType)
	}
	if result.PaymentID != 1001 {
		t.Fatalf("unexpected payment id: %d", result.PaymentID)
	}
	if result.OrderID != 42 {
		t.Fatalf("unexpected order id: %d", result.OrderID)
	}
	if result.SessionID != "cs_test_123" {
		t.Fatalf("unexpected session id: %s", result.SessionID)
	}
	if result.PaymentIntentID != "pi_test_123" {
		t.Fatalf("unexpected payment intent id: %s", result.PaymentIntentID)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.Amount != "12.88" {
		t.Fatalf("unexpected amount: %s", result.Amount)
	}
}

func TestVerifyAndParseWebhookCheckoutCompletedUnpaid(t *testing.T) {
	now := time.Unix(1760000000, 0)
	cfg := &Config{
		WebhookSecret:           "whsec_test_abc",
		WebhookToleranceSeconds: 300,
	}
	payload := map[string]interface{}{
		"id":   "evt_test_2",
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":         "checkout.session",
				"id":             "cs_test_456",
				"payment_status": "unpaid",
				"status":         "complete",
				"currency":       "usd",
				"amount_total":   1288,
			},
		},
	}
	body, _ := json.Marshal(payload)
	sig := computeSignature(cfg.WebhookSecret, now.Unix(), body)
	headers := map[string]string{
		"Stripe-Signature": "t=1760000000,v1=" + sig,
	}

	result, err := VerifyAndParseWebhook(cfg, headers, body, now)
	if err != nil {
		t.Fatalf("verify and parse webhook failed: %v", err)
	}
	if result.Status != StatusPending {
		t.Fatalf("expected pending status for unpaid session, got %s", result.Status)
	}
}

func TestVerifyAndParseWebhookInvalidSignature(t *testing.T) {
	now := time.Unix(1760000000, 0)
	cfg := &Config{
		WebhookSecret:           "whsec_test_abc",
		WebhookToleranceSeconds: 300,
	}
	payload := map[string]interface{}{
		"id":   "evt_test_1",
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object": "checkout.session",
				"id":     "cs_test_123",
			},
		},
	}
	body, _ := json.Marshal(payload)
	headers := map[string]string{
		"Stripe-Signature": "t=1760000000,v1=invalid-signature",
	}

	_, err := VerifyAndParseWebhook(cfg, headers, body, now)
	if err == nil {
		t.Fatalf("expected verify error")
	}
}

func TestVerifyAndParseWebhookTimestampOutsideTolerance(t *testing.T) {
	now := time.Unix(1760000000, 0)
	cfg := &Config{
		WebhookSecret:           "whsec_test_abc",
		WebhookToleranceSeconds: 300,
	}
	payload := map[string]interface{}{
		"id":   "evt_test_1",
		"type": "payment_intent.succeeded",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object": "payment_intent",
				"id":     "pi_test_123",
			},
		},
	}
	body, _ := json.Marshal(payload)
	stale := now.Add(-10 * time.Minute).Unix()
	sig := computeSignature(cfg.WebhookSecret, stale, body)

	_, err := VerifyAndParseWebhook(cfg, map[string]string{
		"Stripe-Signature": "t=" + strconv.FormatInt(stale, 10) + ",v1=" + sig,
	}, body, now)
	if err == nil {
		t.Fatalf("expected tolerance error")
	}
}

func TestMapPaymentIntentStatus(t *testing.T) {
	if got := mapPaymentIntentStatus("succeeded"); got != StatusSuccess {
		t.Fatalf("expected success, got %s", got)
	}
	if got := mapPaymentIntentStatus("processing"); got != StatusPending {
		t.Fatalf("expected pending, got %s", got)
	}
	if got := mapPaymentIntentStatus("canceled"); got != StatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}

func TestMinorAmountConversion(t *testing.T) {
	minor, err := toMinorAmount("12.88", "USD")
	if err != nil {
		t.Fatalf("to minor amount failed: %v", err)
	}
	if minor != 1288 {
		t.Fatalf("unexpected minor amount: %d", minor)
	}
	if got := fromMinorAmount(1288, "USD"); got != "12.88" {
		t.Fatalf("unexpected major amount: %s", got)
	}
	minor, err = toMinorAmount("1500", "JPY")
	if err != nil {
		t.Fatalf("to minor amount failed for zero-decimal currency: %v", err)
	}
	if minor != 1500 {
		t.Fatalf("unexpected minor amount for JPY: %d", minor)
	}
}
