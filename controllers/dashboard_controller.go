package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/models"
)

type periodStats struct {
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// Revenue only counts captured money, so cancelled and unpaid orders are out
func statsSince(db *gorm.DB, since time.Time) (periodStats, error) {
	var stats periodStats
	if err := db.Model(&models.Order{}).
		Where("created_at >= ?", since).
		Count(&stats.Orders).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Order{}).
		Where("created_at >= ? AND payment_status = ?", since, models.PaymentStatusPaid).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.Revenue).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

// DashboardStats handles GET /api/v1/admin/dashboard/stats
func DashboardStats(c *gin.Context) {
	db := config.GetDB()

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	fail := func(err error) {
		log.Printf("Error building dashboard stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch dashboard stats",
			},
		})
	}

	today, err := statsSince(db, startOfDay)
	if err != nil {
		fail(err)
		return
	}
	month, err := statsSince(db, startOfMonth)
	if err != nil {
		fail(err)
		return
	}

	var totalOrders int64
	if err := db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		fail(err)
		return
	}
	var totalRevenue float64
	if err := db.Model(&models.Order{}).
		Where("payment_status = ?", models.PaymentStatusPaid).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&totalRevenue).Error; err != nil {
		fail(err)
		return
	}
	var pendingOrders int64
	if err := db.Model(&models.Order{}).
		Where("order_status = ?", models.OrderStatusPending).
		Count(&pendingOrders).Error; err != nil {
		fail(err)
		return
	}

	var lowStockProducts []models.Product
	if err := db.Where("is_active = ? AND stock_quantity <= low_stock_threshold", true).
		Order("stock_quantity ASC").
		Find(&lowStockProducts).Error; err != nil {
		fail(err)
		return
	}

	var recentOrders []models.Order
	if err := db.Order("created_at DESC").Limit(10).Find(&recentOrders).Error; err != nil {
		fail(err)
		return
	}

	var statusRows []struct {
		OrderStatus string
		Count       int64
	}
	if err := db.Model(&models.Order{}).
		Select("order_status, COUNT(*) as count").
		Group("order_status").
		Scan(&statusRows).Error; err != nil {
		fail(err)
		return
	}
	statusBreakdown := map[string]int64{}
	for _, s := range models.ValidOrderStatuses {
		statusBreakdown[s] = 0
	}
	for _, row := range statusRows {
		statusBreakdown[row.OrderStatus] = row.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"today":              today,
			"month":              month,
			"total_orders":       totalOrders,
			"total_revenue":      totalRevenue,
			"pending_orders":     pendingOrders,
			"low_stock_products": lowStockProducts,
			"recent_orders":      recentOrders,
			"status_breakdown":   statusBreakdown,
		},
	})
}
