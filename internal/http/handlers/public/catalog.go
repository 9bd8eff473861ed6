package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/aurelia-shop/internal/http/handlers/shared"
	"github.com/aurelia-shop/internal/http/response"
	"github.com/aurelia-shop/internal/repository"
	"github.com/aurelia-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCategories 获取公开分类列表
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.CategoryService.ListPublic()
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch categories", err)
		return
	}
	response.Success(c, categories)
}

// GetCategoryBySlug 获取公开分类详情
func (h *Handler) GetCategoryBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	category, err := h.CategoryService.GetPublicBySlug(slug)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, response.CodeNotFound, "category not found", nil)
		default:
			respondError(c, response.CodeInternal, "failed to fetch category", err)
		}
		return
	}
	response.Success(c, category)
}

// GetProducts 获取公开商品列表
func (h *Handler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	categoryID, _ := strconv.ParseUint(c.Query("category_id"), 10, 64)

	filter := repository.ProductListFilter{
		Page:        page,
		PageSize:    pageSize,
		CategoryID:  uint(categoryID),
		Search:      strings.TrimSpace(c.Query("search")),
		Material:    strings.ToLower(strings.TrimSpace(c.Query("material"))),
		InStockOnly: c.Query("in_stock") == "1" || c.Query("in_stock") == "true",
	}

	products, total, err := h.ProductService.ListPublic(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch products", err)
		return
	}

	response.SuccessWithPage(c, products, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetProductBySlug 获取公开商品详情
func (h *Handler) GetProductBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	product, err := h.ProductService.GetPublicBySlug(slug)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			respondError(c, response.CodeNotFound, "product not found", nil)
		default:
			respondError(c, response.CodeInternal, "failed to fetch product", err)
		}
		return
	}
	response.Success(c, product)
}
