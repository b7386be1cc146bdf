package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/models"
	"github.com/herbogene/storefront-api/services"
)

// productView is a Product decorated with derived stock fields
type productView struct {
	models.Product
	InStock  bool `json:"in_stock"`
	LowStock bool `json:"low_stock"`
}

func toProductView(p models.Product) productView {
	if p.ImageS3Key != nil {
		if svc := services.GetImageService(); svc != nil {
			if url, err := svc.GetImageURL(*p.ImageS3Key); err == nil && url != "" {
				p.ImageURL = &url
			}
		}
	}
	return productView{Product: p, InStock: p.InStock(), LowStock: p.LowStock()}
}

// ListProducts handles GET /api/v1/products - active catalog for the storefront
func ListProducts(c *gin.Context) {
	db := config.GetDB()

	query := db.Where("is_active = ?", true).Order("id ASC")

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if c.Query("inStock") == "true" {
		query = query.Where("stock_quantity > 0")
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		log.Printf("Error fetching products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch products",
			},
		})
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, toProductView(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": views,
	})
}

// GetProduct handles GET /api/v1/products/:id - product detail by id or slug
func GetProduct(c *gin.Context) {
	db := config.GetDB()
	idOrSlug := c.Param("id")

	query := db.Where("is_active = ?", true)
	if id, err := strconv.Atoi(idOrSlug); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("slug = ?", idOrSlug)
	}

	var product models.Product
	if err := query.First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Product not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": toProductView(product),
	})
}

// AdminListProducts handles GET /api/v1/admin/products - full catalog with filters
func AdminListProducts(c *gin.Context) {
	db := config.GetDB()

	query := db.Order("id ASC")

	if c.Query("low_stock") == "true" {
		query = query.Where("stock_quantity <= low_stock_threshold")
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		log.Printf("Error fetching products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch products",
			},
		})
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, toProductView(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": views,
	})
}

// CreateProductRequest represents the request body for creating a product
type CreateProductRequest struct {
	Name              string   `json:"name" binding:"required"`
	Slug              string   `json:"slug" binding:"required"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	Price             float64  `json:"price" binding:"required,gt=0"`
	MRP               *float64 `json:"mrp"`
	StockQuantity     int      `json:"stock_quantity" binding:"gte=0"`
	LowStockThreshold *int     `json:"low_stock_threshold"`
	IsActive          *bool    `json:"is_active"`
}

// AdminCreateProduct handles POST /api/v1/admin/products
func AdminCreateProduct(c *gin.Context) {
	db := config.GetDB()

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	var existing int64
	db.Model(&models.Product{}).Where("slug = ?", req.Slug).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DUPLICATE_SLUG",
				"message": "A product with this slug already exists",
			},
		})
		return
	}

	product := models.Product{
		Name:              req.Name,
		Slug:              req.Slug,
		Description:       req.Description,
		Category:          req.Category,
		Price:             req.Price,
		MRP:               req.MRP,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: 5,
		IsActive:          true,
	}
	if req.LowStockThreshold != nil {
		product.LowStockThreshold = *req.LowStockThreshold
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := db.Create(&product).Error; err != nil {
		log.Printf("Error creating product: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create product",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"product": toProductView(product),
	})
}

// UpdateProductRequest represents the partial-update body for a product
type UpdateProductRequest struct {
	Name              *string  `json:"name"`
	Slug              *string  `json:"slug"`
	Description       *string  `json:"description"`
	Category          *string  `json:"category"`
	Price             *float64 `json:"price"`
	MRP               *float64 `json:"mrp"`
	StockQuantity     *int     `json:"stock_quantity"`
	LowStockThreshold *int     `json:"low_stock_threshold"`
	IsActive          *bool    `json:"is_active"`
}

// AdminUpdateProduct handles PATCH /api/v1/admin/products/:id
func AdminUpdateProduct(c *gin.Context) {
	db := config.GetDB()

	var product models.Product
	if err := db.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Product not found",
			},
		})
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Slug != nil && *req.Slug != product.Slug {
		var existing int64
		db.Model(&models.Product{}).Where("slug = ? AND id <> ?", *req.Slug, product.ID).Count(&existing)
		if existing > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DUPLICATE_SLUG",
					"message": "A product with this slug already exists",
				},
			})
			return
		}
		updates["slug"] = *req.Slug
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Price must be positive",
				},
			})
			return
		}
		updates["price"] = *req.Price
	}
	if req.MRP != nil {
		updates["mrp"] = *req.MRP
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Invalid stock quantity",
				},
			})
			return
		}
		updates["stock_quantity"] = *req.StockQuantity
	}
	if req.LowStockThreshold != nil {
		updates["low_stock_threshold"] = *req.LowStockThreshold
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "No valid fields to update",
			},
		})
		return
	}

	if err := db.Model(&product).Updates(updates).Error; err != nil {
		log.Printf("Error updating product %d: %v", product.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update product",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": toProductView(product),
	})
}

// UpdateStockRequest represents the partial-update body for a product's
// inventory fields
type UpdateStockRequest struct {
	StockQuantity     *int  `json:"stock_quantity"`
	IsActive          *bool `json:"is_active"`
	LowStockThreshold *int  `json:"low_stock_threshold"`
}

// AdminUpdateProductStock handles PATCH /api/v1/admin/products/:id/stock
func AdminUpdateProductStock(c *gin.Context) {
	db := config.GetDB()

	var product models.Product
	if err := db.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Product not found",
			},
		})
		return
	}

	var req UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	updates := map[string]interface{}{}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Invalid stock quantity",
				},
			})
			return
		}
		updates["stock_quantity"] = *req.StockQuantity
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Invalid low stock threshold",
				},
			})
			return
		}
		updates["low_stock_threshold"] = *req.LowStockThreshold
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "No valid fields to update",
			},
		})
		return
	}

	if err := db.Model(&product).Updates(updates).Error; err != nil {
		log.Printf("Error updating product %d: %v", product.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update product",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product updated successfully",
		"product": toProductView(product),
	})
}

// AdminUploadProductImage handles POST /api/v1/admin/products/:id/image -
// attaches a PNG image to a product
func AdminUploadProductImage(c *gin.Context) {
	db := config.GetDB()

	var product models.Product
	if err := db.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Product not found",
			},
		})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Image file is required",
			},
		})
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_ERROR",
				"message": "Image storage is not configured",
			},
		})
		return
	}

	imageKey, err := imageService.UploadImage(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	// Replace any previous image; best effort, old objects may linger
	if product.ImageS3Key != nil && *product.ImageS3Key != imageKey {
		if err := imageService.DeleteImage(*product.ImageS3Key); err != nil {
			log.Printf("Failed to delete previous image %s: %v", *product.ImageS3Key, err)
		}
	}

	if err := db.Model(&product).Update("image_s3_key", imageKey).Error; err != nil {
		log.Printf("Error saving image key for product %d: %v", product.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save product image",
			},
		})
		return
	}
	product.ImageS3Key = &imageKey

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": toProductView(product),
	})
}
