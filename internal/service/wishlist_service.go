package service

import (
	"time"

	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/repository"

	"gorm.io/gorm"
)

// WishlistService 心愿单服务
type WishlistService struct {
	wishlistRepo repository.WishlistRepository
	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
}

// NewWishlistService 创建心愿单服务
func NewWishlistService(wishlistRepo repository.WishlistRepository, cartRepo repository.CartRepository, productRepo repository.ProductRepository) *WishlistService {
	return &WishlistService{
		wishlistRepo: wishlistRepo,
		cartRepo:     cartRepo,
		productRepo:  productRepo,
	}
}

// ListByUser 获取用户心愿单
func (s *WishlistService) ListByUser(userID uint) ([]models.WishlistItem, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.wishlistRepo.ListByUser(userID)
}

// Add 加入心愿单，重复加入为幂等操作
func (s *WishlistService) Add(userID, productID uint) error {
	if userID == 0 || productID == 0 {
		return ErrInvalidInput
	}
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return err
	}
	if product == nil || !product.IsActive {
		return ErrProductNotAvailable
	}
	now := time.Now()
	return s.wishlistRepo.Add(&models.WishlistItem{
		UserID:    userID,
		ProductID: productID,
		CreatedAt: now,
	})
}

// Remove 移出心愿单
func (s *WishlistService) Remove(userID, productID uint) error {
	if userID == 0 || productID == 0 {
		return ErrInvalidInput
	}
	return s.wishlistRepo.DeleteByUserAndProduct(userID, productID)
}

// MoveToCart 将心愿单商品移入购物车
func (s *WishlistService) MoveToCart(userID, productID uint) error {
	if userID == 0 || productID == 0 {
		return ErrInvalidInput
	}
	item, err := s.wishlistRepo.GetByUserAndProduct(userID, productID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrProductNotFound
	}
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return err
	}
	if product == nil || !product.IsActive {
		return ErrProductNotAvailable
	}
	if product.Stock < 1 {
		return ErrStockInsufficient
	}

	now := time.Now()
	return models.DB.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		wishlistRepo := s.wishlistRepo.WithTx(tx)
		if err := cartRepo.Upsert(&models.CartItem{
			UserID:    userID,
			ProductID: productID,
			Quantity:  1,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		return wishlistRepo.DeleteByUserAndProduct(userID, productID)
	})
}
