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

func setupOrderServiceTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Address{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	cfg := &config.Config{}
	cfg.Order.PaymentExpireMinutes = 15
	cfg.Shop.Currency = "usd"
	svc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewCartRepository(db),
		repository.NewAddressRepository(db),
		repository.NewPaymentRepository(db),
		nil,
		cfg,
	)
	return svc, db
}

func createTestUser(t *testing.T, db *gorm.DB, id uint) {
	t.Helper()
	user := models.User{
		ID:           id,
		Email:        fmt.Sprintf("user_%d@example.com", id),
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
}

func createTestAddress(t *testing.T, db *gorm.DB, userID uint) *models.Address {
	t.Helper()
	now := time.Now()
	address := &models.Address{
		UserID:     userID,
		Recipient:  "Jane Smith",
		Phone:      "+14155550101",
		Line1:      "500 Market St",
		City:       "San Francisco",
		State:      "CA",
		PostalCode: "94105",
		Country:    "US",
		IsDefault:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Create(address).Error; err != nil {
		t.Fatalf("create address failed: %v", err)
	}
	return address
}

func createTestProduct(t *testing.T, db *gorm.DB, slug string, price string, stock int) *models.Product {
	t.Helper()
	now := time.Now()
	category := models.Category{
		Slug:      slug + "-category",
		Name:      "Rings",
		IsActive:  true,
		CreatedAt: now,
	}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product := &models.Product{
		CategoryID: category.ID,
		Slug:       slug,
		Name:       "Gold Band",
		Material:   constants.MaterialGold,
		Price:      models.NewMoneyFromDecimal(decimal.RequireFromString(price)),
		Stock:      stock,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func addCartItem(t *testing.T, db *gorm.DB, userID, productID uint, quantity int) {
	t.Helper()
	now := time.Now()
	item := models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create cart item failed: %v", err)
	}
}

func TestCreateOrderFreezesSnapshotAndDecrementsStock(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)
	product := createTestProduct(t, db, "aurora-ring", "120.50", 10)
	addCartItem(t, db, 1, product.ID, 2)

	order, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID, ClientIP: "203.0.113.10"})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if !order.TotalAmount.Decimal.Equal(decimal.RequireFromString("241.00")) {
		t.Fatalf("unexpected total amount: %s", order.TotalAmount.String())
	}
	if order.Recipient != "Jane Smith" || order.City != "San Francisco" || order.Country != "US" {
		t.Fatalf("address snapshot not frozen: %+v", order)
	}
	if order.ExpiresAt == nil || !order.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected future expires_at, got %v", order.ExpiresAt)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 order item, got %d", len(order.Items))
	}
	if !order.Items[0].UnitPrice.Decimal.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("unit price not frozen: %s", order.Items[0].UnitPrice.String())
	}

	var updated models.Product
	if err := db.First(&updated, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if updated.Stock != 8 {
		t.Fatalf("expected stock 8 after decrement, got %d", updated.Stock)
	}

	var cartCount int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&cartCount).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if cartCount != 0 {
		t.Fatalf("expected empty cart after order, got %d items", cartCount)
	}

	var payment models.Payment
	if err := db.Where("order_id = ?", order.ID).First(&payment).Error; err != nil {
		t.Fatalf("expected payment row created with order: %v", err)
	}
	if payment.Status != constants.PaymentStatusPending {
		t.Fatalf("expected pending payment, got %s", payment.Status)
	}
	if payment.Method != constants.PaymentMethodStripe {
		t.Fatalf("expected default stripe method, got %s", payment.Method)
	}
	if !payment.Amount.Decimal.Equal(order.TotalAmount.Decimal) {
		t.Fatalf("expected payment amount %s, got %s", order.TotalAmount.String(), payment.Amount.String())
	}
}

func TestCreateOrderUsesSalePrice(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)
	product := createTestProduct(t, db, "sale-ring", "200.00", 5)
	sale := models.NewMoneyFromDecimal(decimal.RequireFromString("149.00"))
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Update("sale_price", sale).Error; err != nil {
		t.Fatalf("set sale price failed: %v", err)
	}
	addCartItem(t, db, 1, product.ID, 1)

	order, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !order.TotalAmount.Decimal.Equal(decimal.RequireFromString("149.00")) {
		t.Fatalf("expected sale price to apply, got %s", order.TotalAmount.String())
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)

	_, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID})
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected cart empty error, got: %v", err)
	}
}

func TestCreateOrderAddressNotFound(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	product := createTestProduct(t, db, "no-address-ring", "50.00", 3)
	addCartItem(t, db, 1, product.ID, 1)

	_, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: 999})
	if !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("expected address not found error, got: %v", err)
	}
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)
	product := createTestProduct(t, db, "scarce-ring", "80.00", 1)
	addCartItem(t, db, 1, product.ID, 3)

	_, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID})
	if !errors.Is(err, ErrStockInsufficient) {
		t.Fatalf("expected stock insufficient error, got: %v", err)
	}
	var stockErr *StockInsufficientError
	if !errors.As(err, &stockErr) || stockErr.ProductName != "Gold Band" {
		t.Fatalf("expected error to name the offending product, got: %v", err)
	}

	var updated models.Product
	if err := db.First(&updated, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if updated.Stock != 1 {
		t.Fatalf("expected stock untouched after rollback, got %d", updated.Stock)
	}
	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no order rows after rollback, got %d", orderCount)
	}
	var paymentCount int64
	if err := db.Model(&models.Payment{}).Count(&paymentCount).Error; err != nil {
		t.Fatalf("count payments failed: %v", err)
	}
	if paymentCount != 0 {
		t.Fatalf("expected no payment rows after rollback, got %d", paymentCount)
	}
	var cartCount int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&cartCount).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if cartCount != 1 {
		t.Fatalf("expected cart preserved after rollback, got %d items", cartCount)
	}
}

func TestCreateOrderReadsCartInsideTransaction(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)
	first := createTestProduct(t, db, "early-ring", "100.00", 10)
	late := createTestProduct(t, db, "late-ring", "30.00", 5)
	addCartItem(t, db, 1, first.ID, 1)

	// 在事务内购物车查询执行前插入新行，模拟结算请求与加购并发。
	// 行集在事务内读取，后加入的行要么入单要么保留，不允许被清掉丢失。
	injected := false
	err := db.Callback().Query().Before("gorm:query").Register("order_test_concurrent_cart_line", func(tx *gorm.DB) {
		if injected || tx.Statement == nil {
			return
		}
		if _, ok := tx.Statement.Dest.(*[]models.CartItem); !ok {
			return
		}
		injected = true
		now := time.Now()
		line := models.CartItem{UserID: 1, ProductID: late.ID, Quantity: 2, CreatedAt: now, UpdatedAt: now}
		if err := db.Session(&gorm.Session{NewDB: true}).Create(&line).Error; err != nil {
			t.Errorf("inject cart line failed: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback failed: %v", err)
	}

	order, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !injected {
		t.Fatalf("expected concurrent cart line to be injected")
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected both cart lines ordered, got %d items", len(order.Items))
	}
	if !order.TotalAmount.Decimal.Equal(decimal.RequireFromString("160.00")) {
		t.Fatalf("unexpected total amount: %s", order.TotalAmount.String())
	}

	var cartCount int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&cartCount).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if cartCount != 0 {
		t.Fatalf("expected cart cleared after order, got %d lines", cartCount)
	}

	var lateProduct models.Product
	if err := db.First(&lateProduct, late.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if lateProduct.Stock != 3 {
		t.Fatalf("expected stock decremented for the late line, got %d", lateProduct.Stock)
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)
	product := createTestProduct(t, db, "cancel-ring", "60.00", 6)
	addCartItem(t, db, 1, product.ID, 2)

	order, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	cancelled, err := svc.CancelOrder(order.ID, 1)
	if err != nil {
		t.Fatalf("cancel order failed: %v", err)
	}
	if cancelled.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if cancelled.CanceledAt == nil {
		t.Fatalf("expected canceled_at to be set")
	}

	var updated models.Product
	if err := db.First(&updated, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if updated.Stock != 6 {
		t.Fatalf("expected stock restored to 6, got %d", updated.Stock)
	}
}

func TestCancelOrderRejectsNonPending(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)
	product := createTestProduct(t, db, "paid-ring", "60.00", 6)
	addCartItem(t, db, 1, product.ID, 1)

	order, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", constants.OrderStatusConfirmed).Error; err != nil {
		t.Fatalf("mark confirmed failed: %v", err)
	}

	_, err = svc.CancelOrder(order.ID, 1)
	if !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected status invalid error, got: %v", err)
	}
}

func TestUpdateOrderStatusTransitionGuard(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)
	product := createTestProduct(t, db, "guard-ring", "60.00", 6)
	addCartItem(t, db, 1, product.ID, 1)

	order, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// pending -> shipped 不允许，错误需带上起止状态
	_, err = svc.UpdateOrderStatus(order.ID, constants.OrderStatusShipped)
	if !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected pending->shipped to be rejected, got: %v", err)
	}
	var transitionErr *StatusTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected transition error to name the states, got: %v", err)
	}
	if transitionErr.From != constants.OrderStatusPending || transitionErr.To != constants.OrderStatusShipped {
		t.Fatalf("unexpected transition error states: from=%s to=%s", transitionErr.From, transitionErr.To)
	}

	// pending -> confirmed -> shipped -> delivered 顺序流转
	confirmed, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusConfirmed)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.PaidAt == nil {
		t.Fatalf("expected paid_at set on confirm")
	}

	// 人工确认时支付单同事务确认
	var payment models.Payment
	if err := db.Where("order_id = ?", order.ID).First(&payment).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if payment.Status != constants.PaymentStatusConfirmed {
		t.Fatalf("expected payment confirmed with order, got %s", payment.Status)
	}
	if payment.PaidAt == nil {
		t.Fatalf("expected payment paid_at set on confirm")
	}

	// 同状态不是合法流转
	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusConfirmed); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected confirmed->confirmed to be rejected, got: %v", err)
	}

	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusShipped); err != nil {
		t.Fatalf("ship failed: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusDelivered); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	// delivered 为终态
	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusCancelled); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected delivered->cancelled to be rejected, got: %v", err)
	}
}

func TestUpdateOrderStatusDeliveredConfirmsCODPayment(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)
	product := createTestProduct(t, db, "cod-ring", "90.00", 4)
	addCartItem(t, db, 1, product.ID, 1)

	order, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID, PaymentMethod: constants.PaymentMethodCOD})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 货到付款下单后订单已确认发货，支付单保持待支付直到签收
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"status":  constants.OrderStatusShipped,
		"paid_at": time.Now(),
	}).Error; err != nil {
		t.Fatalf("mark shipped failed: %v", err)
	}

	delivered, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if delivered.Status != constants.OrderStatusDelivered {
		t.Fatalf("expected delivered order, got %s", delivered.Status)
	}

	var payment models.Payment
	if err := db.Where("order_id = ?", order.ID).First(&payment).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if payment.Method != constants.PaymentMethodCOD {
		t.Fatalf("expected cod payment, got %s", payment.Method)
	}
	if payment.Status != constants.PaymentStatusConfirmed {
		t.Fatalf("expected payment confirmed at delivery, got %s", payment.Status)
	}
	if payment.PaidAt == nil {
		t.Fatalf("expected payment paid_at set at delivery")
	}
}

func TestGetOrderByUserLazyCancelsExpired(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)
	product := createTestProduct(t, db, "expired-ring", "60.00", 6)
	addCartItem(t, db, 1, product.ID, 2)

	order, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("backdate expires_at failed: %v", err)
	}

	got, err := svc.GetOrderByUser(order.ID, 1)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if got.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected expired order to be cancelled, got %s", got.Status)
	}

	var updated models.Product
	if err := db.First(&updated, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if updated.Stock != 6 {
		t.Fatalf("expected stock restored after lazy cancel, got %d", updated.Stock)
	}
}

func TestCancelExpiredOrderSkipsUnexpired(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	createTestUser(t, db, 1)
	address := createTestAddress(t, db, 1)
	product := createTestProduct(t, db, "fresh-ring", "60.00", 6)
	addCartItem(t, db, 1, product.ID, 1)

	order, err := svc.CreateOrder(CreateOrderInput{UserID: 1, AddressID: address.ID})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	got, err := svc.CancelExpiredOrder(order.ID)
	if err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	if got.Status != constants.OrderStatusPending {
		t.Fatalf("expected unexpired order to stay pending, got %s", got.Status)
	}
}

func TestGenerateOrderNoFormat(t *testing.T) {
	no := generateOrderNo()
	if len(no) != 2+14+6 {
		t.Fatalf("unexpected order no length: %s", no)
	}
	if no[:2] != "AU" {
		t.Fatalf("expected AU prefix, got %s", no)
	}
}
