package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/herbogene/storefront-api/utils"
)

// GetUploadedImage handles GET /api/v1/uploads/:filename - serves locally
// stored product images when S3 is not configured
func GetUploadedImage(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	if filename == "." || filename == "/" || strings.Contains(filename, "..") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILENAME",
				"message": "Invalid filename",
			},
		})
		return
	}

	fullPath := filepath.Join(utils.UploadDir, filename)
	if _, err := os.Stat(fullPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Image not found",
			},
		})
		return
	}

	c.File(fullPath)
}
