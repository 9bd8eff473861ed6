package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	productDetailTTL  = 5 * time.Minute
	categoryListTTL   = 10 * time.Minute
	categoryListKey   = "catalog:categories"
	productDetailKeyF = "catalog:product:%d"
)

// GetCachedProduct 读取商品详情缓存
func GetCachedProduct(ctx context.Context, productID uint, dest interface{}) (bool, error) {
	return GetJSON(ctx, fmt.Sprintf(productDetailKeyF, productID), dest)
}

// SetCachedProduct 写入商品详情缓存
func SetCachedProduct(ctx context.Context, productID uint, value interface{}) error {
	return SetJSON(ctx, fmt.Sprintf(productDetailKeyF, productID), value, productDetailTTL)
}

// InvalidateProduct 删除商品详情缓存
func InvalidateProduct(ctx context.Context, productID uint) error {
	return Del(ctx, fmt.Sprintf(productDetailKeyF, productID))
}

// GetCachedCategories 读取分类列表缓存
func GetCachedCategories(ctx context.Context, dest interface{}) (bool, error) {
	return GetJSON(ctx, categoryListKey, dest)
}

// SetCachedCategories 写入分类列表缓存
func SetCachedCategories(ctx context.Context, value interface{}) error {
	return SetJSON(ctx, categoryListKey, value, categoryListTTL)
}

// InvalidateCategories 删除分类列表缓存
func InvalidateCategories(ctx context.Context) error {
	return Del(ctx, categoryListKey)
}
