package service

import (
	"context"
	"strings"

	"github.com/aurelia-shop/internal/cache"
	"github.com/aurelia-shop/internal/constants"
	"github.com/aurelia-shop/internal/logger"
	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品业务服务
type ProductService struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, categoryRepo repository.CategoryRepository) *ProductService {
	return &ProductService{repo: repo, categoryRepo: categoryRepo}
}

// ProductInput 创建/更新商品输入
type ProductInput struct {
	CategoryID  uint
	Slug        string
	Name        string
	Description string
	Material    string
	Images      []string
	Price       decimal.Decimal
	SalePrice   *decimal.Decimal
	Stock       *int
	IsActive    *bool
	SortOrder   int
}

// ListPublic 获取公开商品列表
func (s *ProductService) ListPublic(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	filter.OnlyActive = true
	filter.WithCategory = true
	return s.repo.List(filter)
}

// GetPublicBySlug 获取公开商品详情
func (s *ProductService) GetPublicBySlug(slug string) (*models.Product, error) {
	product, err := s.repo.GetBySlug(strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// GetPublicByID 获取公开商品详情，走 Redis 缓存
func (s *ProductService) GetPublicByID(id uint) (*models.Product, error) {
	ctx := context.Background()
	var cached models.Product
	hit, err := cache.GetCachedProduct(ctx, id, &cached)
	if err != nil {
		logger.Warnw("product_cache_read_failed", "product_id", id, "error", err)
	}
	if hit && cached.ID != 0 && cached.IsActive {
		return &cached, nil
	}

	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrProductNotFound
	}
	if err := cache.SetCachedProduct(ctx, product.ID, product); err != nil {
		logger.Warnw("product_cache_write_failed", "product_id", id, "error", err)
	}
	return product, nil
}

// ListAdmin 获取后台商品列表
func (s *ProductService) ListAdmin(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	filter.OnlyActive = false
	filter.WithCategory = true
	return s.repo.List(filter)
}

// GetAdminByID 获取后台商品详情
func (s *ProductService) GetAdminByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	product := &models.Product{}
	if err := s.applyInput(product, input, true); err != nil {
		return nil, err
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update 更新商品
func (s *ProductService) Update(id uint, input ProductInput) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if err := s.applyInput(product, input, false); err != nil {
		return nil, err
	}
	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	if err := cache.InvalidateProduct(context.Background(), product.ID); err != nil {
		logger.Warnw("product_cache_invalidate_failed", "product_id", product.ID, "error", err)
	}
	return product, nil
}

// Delete 删除商品
func (s *ProductService) Delete(id uint) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	if err := cache.InvalidateProduct(context.Background(), id); err != nil {
		logger.Warnw("product_cache_invalidate_failed", "product_id", id, "error", err)
	}
	return nil
}

// SetStock 管理端直接设置库存
func (s *ProductService) SetStock(id uint, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, ErrInvalidInput
	}
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if err := s.repo.SetStock(id, stock); err != nil {
		return nil, err
	}
	product.Stock = stock
	if err := cache.InvalidateProduct(context.Background(), id); err != nil {
		logger.Warnw("product_cache_invalidate_failed", "product_id", id, "error", err)
	}
	return product, nil
}

func (s *ProductService) applyInput(product *models.Product, input ProductInput, isCreate bool) error {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" || input.CategoryID == 0 {
		return ErrInvalidInput
	}
	price := input.Price.Round(2)
	if price.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidInput
	}
	if input.SalePrice != nil {
		sale := input.SalePrice.Round(2)
		if sale.LessThanOrEqual(decimal.Zero) || sale.GreaterThanOrEqual(price) {
			return ErrInvalidInput
		}
	}
	if !isMaterialValid(input.Material) {
		return ErrInvalidInput
	}

	category, err := s.categoryRepo.GetByID(input.CategoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}

	var excludeID *uint
	if !isCreate {
		excludeID = &product.ID
	}
	count, err := s.repo.CountBySlug(slug, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrSlugTaken
	}

	product.CategoryID = input.CategoryID
	product.Slug = slug
	product.Name = name
	product.Description = strings.TrimSpace(input.Description)
	product.Material = strings.ToLower(strings.TrimSpace(input.Material))
	product.Images = models.StringArray(input.Images)
	product.Price = models.NewMoneyFromDecimal(price)
	if input.SalePrice != nil {
		sale := models.NewMoneyFromDecimal(input.SalePrice.Round(2))
		product.SalePrice = &sale
	} else {
		product.SalePrice = nil
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return ErrInvalidInput
		}
		product.Stock = *input.Stock
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	} else if isCreate {
		product.IsActive = true
	}
	product.SortOrder = input.SortOrder
	return nil
}

func isMaterialValid(material string) bool {
	switch strings.ToLower(strings.TrimSpace(material)) {
	case "", constants.MaterialGold, constants.MaterialSilver, constants.MaterialPlatinum, constants.MaterialGemstone:
		return true
	default:
		return false
	}
}
