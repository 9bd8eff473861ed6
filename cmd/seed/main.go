package main

import (
	"github.com/aurelia-shop/internal/config"
	"github.com/aurelia-shop/internal/constants"
	"github.com/aurelia-shop/internal/logger"
	"github.com/aurelia-shop/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加分类
	categories := []models.Category{
		{
			Slug:        "rings",
			Name:        "Rings",
			Description: "Engagement rings, wedding bands and statement rings.",
			IsActive:    true,
			SortOrder:   10,
		},
		{
			Slug:        "necklaces",
			Name:        "Necklaces",
			Description: "Pendants, chains and chokers in gold and silver.",
			IsActive:    true,
			SortOrder:   20,
		},
		{
			Slug:        "earrings",
			Name:        "Earrings",
			Description: "Studs, hoops and drop earrings.",
			IsActive:    true,
			SortOrder:   30,
		},
		{
			Slug:        "bracelets",
			Name:        "Bracelets",
			Description: "Bangles, cuffs and charm bracelets.",
			IsActive:    true,
			SortOrder:   40,
		},
	}

	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}

	// 获取分类ID
	categoryIDs := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Where("slug IN ?", []string{"rings", "necklaces", "earrings", "bracelets"}).Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
	}
	for _, cat := range categoryList {
		categoryIDs[cat.Slug] = cat.ID
	}

	salePrice := func(v float64) *models.Money {
		m := models.NewMoneyFromDecimal(decimal.NewFromFloat(v))
		return &m
	}

	// 添加商品
	products := []models.Product{
		{
			CategoryID:  categoryIDs["rings"],
			Slug:        "aurora-solitaire-ring",
			Name:        "Aurora Solitaire Ring",
			Description: "18k gold solitaire ring with a brilliant-cut lab gemstone.",
			Material:    constants.MaterialGold,
			Images: models.StringArray{
				"https://images.unsplash.com/photo-1605100804763-247f67b3557e?w=800",
			},
			Price:     models.NewMoneyFromDecimal(decimal.NewFromFloat(1290.00)),
			Stock:     12,
			IsActive:  true,
			SortOrder: 10,
		},
		{
			CategoryID:  categoryIDs["rings"],
			Slug:        "hammered-silver-band",
			Name:        "Hammered Silver Band",
			Description: "Sterling silver band with a hand-hammered finish.",
			Material:    constants.MaterialSilver,
			Images: models.StringArray{
				"https://images.unsplash.com/photo-1611591437281-460bfbe1220a?w=800",
			},
			Price:     models.NewMoneyFromDecimal(decimal.NewFromFloat(140.00)),
			SalePrice: salePrice(119.00),
			Stock:     40,
			IsActive:  true,
			SortOrder: 20,
		},
		{
			CategoryID:  categoryIDs["necklaces"],
			Slug:        "luna-pearl-pendant",
			Name:        "Luna Pearl Pendant",
			Description: "Freshwater pearl pendant on a fine gold chain.",
			Material:    constants.MaterialGold,
			Images: models.StringArray{
				"https://images.unsplash.com/photo-1599643478518-a784e5dc4c8f?w=800",
			},
			Price:     models.NewMoneyFromDecimal(decimal.NewFromFloat(320.00)),
			Stock:     25,
			IsActive:  true,
			SortOrder: 10,
		},
		{
			CategoryID:  categoryIDs["necklaces"],
			Slug:        "platinum-curb-chain",
			Name:        "Platinum Curb Chain",
			Description: "Heavy platinum curb chain, 50cm.",
			Material:    constants.MaterialPlatinum,
			Images: models.StringArray{
				"https://images.unsplash.com/photo-1515562141207-7a88fb7ce338?w=800",
			},
			Price:     models.NewMoneyFromDecimal(decimal.NewFromFloat(2450.00)),
			Stock:     5,
			IsActive:  true,
			SortOrder: 20,
		},
		{
			CategoryID:  categoryIDs["earrings"],
			Slug:        "emerald-drop-earrings",
			Name:        "Emerald Drop Earrings",
			Description: "Emerald drop earrings set in white gold.",
			Material:    constants.MaterialGemstone,
			Images: models.StringArray{
				"https://images.unsplash.com/photo-1535632066927-ab7c9ab60908?w=800",
			},
			Price:     models.NewMoneyFromDecimal(decimal.NewFromFloat(780.00)),
			SalePrice: salePrice(699.00),
			Stock:     8,
			IsActive:  true,
			SortOrder: 10,
		},
		{
			CategoryID:  categoryIDs["bracelets"],
			Slug:        "silver-charm-bracelet",
			Name:        "Silver Charm Bracelet",
			Description: "Sterling silver charm bracelet with toggle clasp.",
			Material:    constants.MaterialSilver,
			Images: models.StringArray{
				"https://images.unsplash.com/photo-1573408301185-9146fe634ad0?w=800",
			},
			Price:     models.NewMoneyFromDecimal(decimal.NewFromFloat(95.00)),
			Stock:     60,
			IsActive:  true,
			SortOrder: 10,
		},
	}

	for _, product := range products {
		if product.CategoryID == 0 {
			stdLog.Printf("Skipped product %s: category missing", product.Slug)
			continue
		}
		var existing models.Product
		if err := models.DB.Where("slug = ?", product.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", product.Slug)
			}
		} else {
			stdLog.Printf("Product already exists: %s", product.Slug)
		}
	}

	stdLog.Printf("Seed finished")
}
