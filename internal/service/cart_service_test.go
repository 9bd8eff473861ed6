package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCartServiceTest(t *testing.T) (*CartService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	svc := NewCartService(
		repository.NewCartRepository(db),
		repository.NewProductRepository(db),
		"usd",
	)
	return svc, db
}

func TestCartSummaryComputesTotals(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createTestUser(t, db, 1)
	ring := createTestProduct(t, db, "summary-ring", "120.50", 10)
	chain := createTestProduct(t, db, "summary-chain", "45.00", 2)
	addCartItem(t, db, 1, ring.ID, 2)
	addCartItem(t, db, 1, chain.ID, 3)

	summary, err := svc.Summary(1)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if len(summary.Items) != 2 {
		t.Fatalf("expected 2 cart items, got %d", len(summary.Items))
	}
	if summary.Currency != "usd" {
		t.Fatalf("unexpected currency: %s", summary.Currency)
	}
	if !summary.Subtotal.Decimal.Equal(decimal.RequireFromString("376.00")) {
		t.Fatalf("unexpected subtotal: %s", summary.Subtotal.String())
	}
	for _, item := range summary.Items {
		if item.ProductID == chain.ID && item.InStock {
			t.Fatalf("expected chain line to be flagged out of stock")
		}
		if item.ProductID == ring.ID && !item.InStock {
			t.Fatalf("expected ring line to be in stock")
		}
	}
}

func TestCartSummaryDropsInactiveProducts(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createTestUser(t, db, 1)
	product := createTestProduct(t, db, "inactive-ring", "60.00", 5)
	addCartItem(t, db, 1, product.ID, 1)
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}

	summary, err := svc.Summary(1)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if len(summary.Items) != 0 {
		t.Fatalf("expected inactive product removed, got %d items", len(summary.Items))
	}

	var count int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cart row removed, got %d", count)
	}
}

func TestUpsertCartItemReplacesQuantity(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createTestUser(t, db, 1)
	product := createTestProduct(t, db, "upsert-ring", "60.00", 10)

	if err := svc.UpsertItem(UpsertCartItemInput{UserID: 1, ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := svc.UpsertItem(UpsertCartItemInput{UserID: 1, ProductID: product.ID, Quantity: 5}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	var item models.CartItem
	if err := db.Where("user_id = ? AND product_id = ?", 1, product.ID).First(&item).Error; err != nil {
		t.Fatalf("load cart item failed: %v", err)
	}
	if item.Quantity != 5 {
		t.Fatalf("expected quantity replaced with 5, got %d", item.Quantity)
	}
	var count int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single cart row, got %d", count)
	}
}

func TestUpsertCartItemStockInsufficient(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createTestUser(t, db, 1)
	product := createTestProduct(t, db, "low-stock-ring", "60.00", 2)

	err := svc.UpsertItem(UpsertCartItemInput{UserID: 1, ProductID: product.ID, Quantity: 3})
	if !errors.Is(err, ErrStockInsufficient) {
		t.Fatalf("expected stock insufficient error, got: %v", err)
	}
}

func TestUpsertCartItemRejectsInvalidInput(t *testing.T) {
	svc, _ := setupCartServiceTest(t)

	if err := svc.UpsertItem(UpsertCartItemInput{UserID: 1, ProductID: 1, Quantity: 0}); !errors.Is(err, ErrInvalidCartItem) {
		t.Fatalf("expected invalid cart item for zero quantity, got: %v", err)
	}
	if err := svc.UpsertItem(UpsertCartItemInput{UserID: 0, ProductID: 1, Quantity: 1}); !errors.Is(err, ErrInvalidCartItem) {
		t.Fatalf("expected invalid cart item for missing user, got: %v", err)
	}
}

func TestRemoveAndClearCart(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createTestUser(t, db, 1)
	ring := createTestProduct(t, db, "remove-ring", "60.00", 10)
	chain := createTestProduct(t, db, "remove-chain", "45.00", 10)
	addCartItem(t, db, 1, ring.ID, 1)
	addCartItem(t, db, 1, chain.ID, 1)

	if err := svc.RemoveItem(1, ring.ID); err != nil {
		t.Fatalf("remove item failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 item after remove, got %d", count)
	}

	if err := svc.Clear(1); err != nil {
		t.Fatalf("clear cart failed: %v", err)
	}
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty cart after clear, got %d", count)
	}
}
