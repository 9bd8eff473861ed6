package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/aurelia-shop/internal/constants"
	"github.com/aurelia-shop/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupProductRepositoryTest(t *testing.T) (*GormProductRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:product_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("migrate product failed: %v", err)
	}
	return NewProductRepository(db), db
}

func createStockedProduct(t *testing.T, repo *GormProductRepository, slug string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID: 1,
		Slug:       slug,
		Name:       "Gold Band",
		Material:   constants.MaterialGold,
		Price:      models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Stock:      stock,
		IsActive:   true,
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestDecrementStockConditional(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)
	product := createStockedProduct(t, repo, "decrement-ring", 5)

	affected, err := repo.DecrementStock(product.ID, 3)
	if err != nil {
		t.Fatalf("decrement stock failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("decrement affected want 1 got %d", affected)
	}

	// 剩余 2，再扣 3 不得更新任何行
	affected, err = repo.DecrementStock(product.ID, 3)
	if err != nil {
		t.Fatalf("second decrement failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected conditional decrement to miss, affected %d", affected)
	}

	var got models.Product
	if err := db.First(&got, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if got.Stock != 2 {
		t.Fatalf("expected stock 2, got %d", got.Stock)
	}
}

func TestDecrementStockRejectsInvalidParams(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)

	if _, err := repo.DecrementStock(0, 1); err == nil {
		t.Fatalf("expected error for zero product id")
	}
	if _, err := repo.DecrementStock(1, 0); err == nil {
		t.Fatalf("expected error for zero quantity")
	}
}

func TestRestoreStock(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)
	product := createStockedProduct(t, repo, "restore-ring", 1)

	affected, err := repo.RestoreStock(product.ID, 4)
	if err != nil {
		t.Fatalf("restore stock failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("restore affected want 1 got %d", affected)
	}

	var got models.Product
	if err := db.First(&got, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if got.Stock != 5 {
		t.Fatalf("expected stock 5, got %d", got.Stock)
	}
}

func TestSetStock(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)
	product := createStockedProduct(t, repo, "set-stock-ring", 1)

	if err := repo.SetStock(product.ID, 20); err != nil {
		t.Fatalf("set stock failed: %v", err)
	}
	var got models.Product
	if err := db.First(&got, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if got.Stock != 20 {
		t.Fatalf("expected stock 20, got %d", got.Stock)
	}

	if err := repo.SetStock(product.ID, -1); err == nil {
		t.Fatalf("expected negative stock to be rejected")
	}
}

func TestProductListFilters(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)
	createStockedProduct(t, repo, "gold-ring", 5)
	silver := createStockedProduct(t, repo, "silver-ring", 0)
	if err := db.Model(&models.Product{}).Where("id = ?", silver.ID).Update("material", constants.MaterialSilver).Error; err != nil {
		t.Fatalf("update material failed: %v", err)
	}
	inactive := createStockedProduct(t, repo, "hidden-ring", 5)
	if err := db.Model(&models.Product{}).Where("id = ?", inactive.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}

	products, total, err := repo.List(ProductListFilter{OnlyActive: true})
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if total != 2 || len(products) != 2 {
		t.Fatalf("expected 2 active products, got total=%d len=%d", total, len(products))
	}

	products, total, err = repo.List(ProductListFilter{OnlyActive: true, InStockOnly: true})
	if err != nil {
		t.Fatalf("list in stock failed: %v", err)
	}
	if total != 1 || len(products) != 1 || products[0].Slug != "gold-ring" {
		t.Fatalf("expected only gold-ring in stock, got total=%d products=%+v", total, products)
	}

	products, total, err = repo.List(ProductListFilter{Material: constants.MaterialSilver})
	if err != nil {
		t.Fatalf("list by material failed: %v", err)
	}
	if total != 1 || products[0].Slug != "silver-ring" {
		t.Fatalf("expected silver-ring by material, got %+v", products)
	}

	_, total, err = repo.List(ProductListFilter{Search: "gold"})
	if err != nil {
		t.Fatalf("list by search failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 search match, got %d", total)
	}
}
