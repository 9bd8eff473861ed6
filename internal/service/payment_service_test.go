package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aurelia-shop/internal/config"
	"github.com/aurelia-shop/internal/constants"
	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPaymentServiceTest(t *testing.T) (*PaymentService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	cfg := &config.Config{}
	cfg.Shop.Currency = "usd"
	svc := NewPaymentService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewPaymentRepository(db),
		nil,
		cfg,
	)
	return svc, db
}

func createPendingOrder(t *testing.T, db *gorm.DB, userID uint, total string, productID uint, quantity int) *models.Order {
	t.Helper()
	now := time.Now()
	expires := now.Add(15 * time.Minute)
	order := &models.Order{
		OrderNo:     fmt.Sprintf("AU%d", now.UnixNano()),
		UserID:      userID,
		Status:      constants.OrderStatusPending,
		Currency:    "usd",
		Subtotal:    models.NewMoneyFromDecimal(decimal.RequireFromString(total)),
		TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString(total)),
		Recipient:   "Jane Smith",
		Line1:       "500 Market St",
		City:        "San Francisco",
		Country:     "US",
		ExpiresAt:   &expires,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if productID != 0 {
		item := models.OrderItem{
			OrderID:     order.ID,
			ProductID:   productID,
			ProductName: "Gold Band",
			UnitPrice:   models.NewMoneyFromDecimal(decimal.RequireFromString(total)),
			Quantity:    quantity,
			TotalPrice:  models.NewMoneyFromDecimal(decimal.RequireFromString(total)),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("create order item failed: %v", err)
		}
		order.Items = []models.OrderItem{item}
	}
	return order
}

func createPendingPayment(t *testing.T, db *gorm.DB, orderID uint, amount string) *models.Payment {
	t.Helper()
	now := time.Now()
	payment := &models.Payment{
		OrderID:   orderID,
		Method:    constants.PaymentMethodStripe,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString(amount)),
		Currency:  "usd",
		Status:    constants.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return payment
}

func TestHandleCallbackConfirmsOrder(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "99.00", 0, 0)
	payment := createPendingPayment(t, db, order.ID, "99.00")

	paidAt := time.Now()
	updated, err := svc.HandleCallback(PaymentCallbackInput{
		PaymentID:       payment.ID,
		Status:          constants.PaymentStatusConfirmed,
		StripePaymentID: "pi_123",
		StripeSessionID: "cs_123",
		Amount:          models.NewMoneyFromDecimal(decimal.RequireFromString("99.00")),
		Currency:        "usd",
		PaidAt:          &paidAt,
	})
	if err != nil {
		t.Fatalf("handle callback failed: %v", err)
	}
	if updated.Status != constants.PaymentStatusConfirmed {
		t.Fatalf("expected confirmed payment, got %s", updated.Status)
	}
	if updated.PaidAt == nil {
		t.Fatalf("expected paid_at set on payment")
	}
	if updated.StripePaymentID != "pi_123" {
		t.Fatalf("expected stripe payment id recorded, got %s", updated.StripePaymentID)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %s", reloaded.Status)
	}
	if reloaded.PaidAt == nil {
		t.Fatalf("expected paid_at set on order")
	}
}

func TestHandleCallbackConfirmedIsTerminal(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "99.00", 0, 0)
	payment := createPendingPayment(t, db, order.ID, "99.00")

	if _, err := svc.HandleCallback(PaymentCallbackInput{
		PaymentID: payment.ID,
		Status:    constants.PaymentStatusConfirmed,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("99.00")),
	}); err != nil {
		t.Fatalf("first callback failed: %v", err)
	}

	// 已确认后重复送达取消回调，状态不得回退
	updated, err := svc.HandleCallback(PaymentCallbackInput{
		PaymentID: payment.ID,
		Status:    constants.PaymentStatusCancelled,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("99.00")),
	})
	if err != nil {
		t.Fatalf("duplicate callback failed: %v", err)
	}
	if updated.Status != constants.PaymentStatusConfirmed {
		t.Fatalf("expected confirmed to stay terminal, got %s", updated.Status)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected order to stay confirmed, got %s", reloaded.Status)
	}
}

func TestHandleCallbackSameStatusIdempotent(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "99.00", 0, 0)
	payment := createPendingPayment(t, db, order.ID, "99.00")

	updated, err := svc.HandleCallback(PaymentCallbackInput{
		PaymentID:       payment.ID,
		Status:          constants.PaymentStatusPending,
		StripeSessionID: "cs_456",
	})
	if err != nil {
		t.Fatalf("handle callback failed: %v", err)
	}
	if updated.Status != constants.PaymentStatusPending {
		t.Fatalf("expected pending payment, got %s", updated.Status)
	}
	if updated.StripeSessionID != "cs_456" {
		t.Fatalf("expected session id backfilled, got %s", updated.StripeSessionID)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("expected order untouched, got %s", reloaded.Status)
	}
}

func TestHandleCallbackAmountMismatch(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "99.00", 0, 0)
	payment := createPendingPayment(t, db, order.ID, "99.00")

	_, err := svc.HandleCallback(PaymentCallbackInput{
		PaymentID: payment.ID,
		Status:    constants.PaymentStatusConfirmed,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("1.00")),
	})
	if !errors.Is(err, ErrPaymentAmountMismatch) {
		t.Fatalf("expected amount mismatch error, got: %v", err)
	}

	var reloaded models.Payment
	if err := db.First(&reloaded, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if reloaded.Status != constants.PaymentStatusPending {
		t.Fatalf("expected payment untouched on mismatch, got %s", reloaded.Status)
	}
}

func TestHandleCallbackCurrencyMismatch(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "99.00", 0, 0)
	payment := createPendingPayment(t, db, order.ID, "99.00")

	_, err := svc.HandleCallback(PaymentCallbackInput{
		PaymentID: payment.ID,
		Status:    constants.PaymentStatusConfirmed,
		Currency:  "eur",
	})
	if !errors.Is(err, ErrPaymentCurrencyMismatch) {
		t.Fatalf("expected currency mismatch error, got: %v", err)
	}
}

func TestHandleCallbackOrderNoMismatch(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "99.00", 0, 0)
	payment := createPendingPayment(t, db, order.ID, "99.00")

	_, err := svc.HandleCallback(PaymentCallbackInput{
		PaymentID: payment.ID,
		Status:    constants.PaymentStatusConfirmed,
		OrderNo:   "AU00000000000000000000",
	})
	if !errors.Is(err, ErrPaymentInvalid) {
		t.Fatalf("expected invalid payment error, got: %v", err)
	}
}

func TestHandleCallbackCancelledRestoresStock(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	product := createTestProduct(t, db, "callback-ring", "99.00", 3)
	order := createPendingOrder(t, db, 1, "99.00", product.ID, 2)
	payment := createPendingPayment(t, db, order.ID, "99.00")

	updated, err := svc.HandleCallback(PaymentCallbackInput{
		PaymentID: payment.ID,
		Status:    constants.PaymentStatusCancelled,
	})
	if err != nil {
		t.Fatalf("handle callback failed: %v", err)
	}
	if updated.Status != constants.PaymentStatusCancelled {
		t.Fatalf("expected cancelled payment, got %s", updated.Status)
	}

	var reloadedOrder models.Order
	if err := db.First(&reloadedOrder, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloadedOrder.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected cancelled order, got %s", reloadedOrder.Status)
	}

	var reloadedProduct models.Product
	if err := db.First(&reloadedProduct, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloadedProduct.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", reloadedProduct.Stock)
	}
}

func TestHandleCallbackUnknownPayment(t *testing.T) {
	svc, _ := setupPaymentServiceTest(t)

	_, err := svc.HandleCallback(PaymentCallbackInput{
		PaymentID: 999,
		Status:    constants.PaymentStatusConfirmed,
	})
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected payment not found error, got: %v", err)
	}
}

func TestCreatePaymentCODConfirmsOrder(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "250.00", 0, 0)

	result, err := svc.CreatePayment(CreatePaymentInput{
		OrderID: order.ID,
		UserID:  1,
		Method:  constants.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("create cod payment failed: %v", err)
	}
	if !result.OrderPaid {
		t.Fatalf("expected cod order to be confirmed")
	}
	if result.Payment.Method != constants.PaymentMethodCOD {
		t.Fatalf("unexpected method: %s", result.Payment.Method)
	}
	if !result.Payment.Amount.Decimal.Equal(decimal.RequireFromString("250.00")) {
		t.Fatalf("expected payment amount frozen from order, got %s", result.Payment.Amount.String())
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %s", reloaded.Status)
	}
}

func TestCreatePaymentRejectsForeignOrder(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	createTestUser(t, db, 2)
	order := createPendingOrder(t, db, 1, "50.00", 0, 0)

	_, err := svc.CreatePayment(CreatePaymentInput{
		OrderID: order.ID,
		UserID:  2,
		Method:  constants.PaymentMethodCOD,
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected order not found for foreign user, got: %v", err)
	}
}

func TestCreatePaymentRejectsExpiredOrder(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "50.00", 0, 0)
	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("backdate expires_at failed: %v", err)
	}

	_, err := svc.CreatePayment(CreatePaymentInput{
		OrderID: order.ID,
		UserID:  1,
		Method:  constants.PaymentMethodCOD,
	})
	if !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected status invalid for expired order, got: %v", err)
	}
}

func TestCreatePaymentRejectsUnknownMethod(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "50.00", 0, 0)

	_, err := svc.CreatePayment(CreatePaymentInput{
		OrderID: order.ID,
		UserID:  1,
		Method:  "paypal",
	})
	if !errors.Is(err, ErrPaymentMethodNotSupported) {
		t.Fatalf("expected unsupported method error, got: %v", err)
	}
}

func TestCreatePaymentReusesPendingStripeSession(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "50.00", 0, 0)
	existing := createPendingPayment(t, db, order.ID, "50.00")
	if err := db.Model(&models.Payment{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
		"stripe_session_id": "cs_existing",
		"checkout_url":      "https://checkout.stripe.com/c/pay/cs_existing",
	}).Error; err != nil {
		t.Fatalf("backfill session failed: %v", err)
	}

	result, err := svc.CreatePayment(CreatePaymentInput{
		OrderID: order.ID,
		UserID:  1,
		Method:  constants.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if result.Payment.ID != existing.ID {
		t.Fatalf("expected pending session to be reused, got payment %d", result.Payment.ID)
	}
	if result.Payment.StripeSessionID != "cs_existing" {
		t.Fatalf("expected existing session id, got %s", result.Payment.StripeSessionID)
	}
}

func TestCreatePaymentCODReusesPrecreatedRow(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	createTestUser(t, db, 1)
	order := createPendingOrder(t, db, 1, "120.00", 0, 0)
	existing := createPendingPayment(t, db, order.ID, "120.00")

	result, err := svc.CreatePayment(CreatePaymentInput{
		OrderID: order.ID,
		UserID:  1,
		Method:  constants.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("create cod payment failed: %v", err)
	}
	if result.Payment.ID != existing.ID {
		t.Fatalf("expected precreated payment row to be reused, got payment %d", result.Payment.ID)
	}
	if result.Payment.Method != constants.PaymentMethodCOD {
		t.Fatalf("expected method switched to cod, got %s", result.Payment.Method)
	}

	var count int64
	if err := db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count payments failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single payment row, got %d", count)
	}
}

func TestMapStripeStatus(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"success", constants.PaymentStatusConfirmed, true},
		{"failed", constants.PaymentStatusCancelled, true},
		{"expired", constants.PaymentStatusCancelled, true},
		{"pending", constants.PaymentStatusPending, true},
		{"unknown", "", false},
	}
	for _, tc := range cases {
		got, ok := mapStripeStatus(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("mapStripeStatus(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
