package service

import (
	"context"
	"strings"

	"github.com/aurelia-shop/internal/cache"
	"github.com/aurelia-shop/internal/logger"
	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/repository"
)

// CategoryService 分类业务服务
type CategoryService struct {
	repo repository.CategoryRepository
}

// NewCategoryService 创建分类服务
func NewCategoryService(repo repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// CategoryInput 创建/更新分类输入
type CategoryInput struct {
	Slug        string
	Name        string
	Description string
	Image       string
	IsActive    *bool
	SortOrder   int
}

// ListPublic 获取公开分类列表，走 Redis 缓存
func (s *CategoryService) ListPublic() ([]models.Category, error) {
	ctx := context.Background()
	var cached []models.Category
	hit, err := cache.GetCachedCategories(ctx, &cached)
	if err != nil {
		logger.Warnw("category_cache_read_failed", "error", err)
	}
	if hit {
		return cached, nil
	}

	categories, err := s.repo.List(true)
	if err != nil {
		return nil, err
	}
	if err := cache.SetCachedCategories(ctx, categories); err != nil {
		logger.Warnw("category_cache_write_failed", "error", err)
	}
	return categories, nil
}

// GetPublicBySlug 获取公开分类详情
func (s *CategoryService) GetPublicBySlug(slug string) (*models.Category, error) {
	category, err := s.repo.GetBySlug(strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	if category == nil || !category.IsActive {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

// ListAdmin 获取后台分类列表
func (s *CategoryService) ListAdmin() ([]models.Category, error) {
	return s.repo.List(false)
}

// GetByID 获取分类详情
func (s *CategoryService) GetByID(id uint) (*models.Category, error) {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

// Create 创建分类
func (s *CategoryService) Create(input CategoryInput) (*models.Category, error) {
	category := &models.Category{}
	if err := s.applyInput(category, input, true); err != nil {
		return nil, err
	}
	if err := s.repo.Create(category); err != nil {
		return nil, err
	}
	s.invalidateCache()
	return category, nil
}

// Update 更新分类
func (s *CategoryService) Update(id uint, input CategoryInput) (*models.Category, error) {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	if err := s.applyInput(category, input, false); err != nil {
		return nil, err
	}
	if err := s.repo.Update(category); err != nil {
		return nil, err
	}
	s.invalidateCache()
	return category, nil
}

// Delete 删除分类，仍挂有商品的分类不可删除
func (s *CategoryService) Delete(id uint) error {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	count, err := s.repo.CountProducts(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.invalidateCache()
	return nil
}

func (s *CategoryService) applyInput(category *models.Category, input CategoryInput, isCreate bool) error {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return ErrInvalidInput
	}

	var excludeID *uint
	if !isCreate {
		excludeID = &category.ID
	}
	count, err := s.repo.CountBySlug(slug, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrSlugTaken
	}

	category.Slug = slug
	category.Name = name
	category.Description = strings.TrimSpace(input.Description)
	category.Image = strings.TrimSpace(input.Image)
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	} else if isCreate {
		category.IsActive = true
	}
	category.SortOrder = input.SortOrder
	return nil
}

func (s *CategoryService) invalidateCache() {
	if err := cache.InvalidateCategories(context.Background()); err != nil {
		logger.Warnw("category_cache_invalidate_failed", "error", err)
	}
}
