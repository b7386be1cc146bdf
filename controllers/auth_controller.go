package controllers

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/middleware"
	"github.com/herbogene/storefront-api/models"
)

// loginLimiter throttles admin login attempts per email address
var loginLimiter = middleware.NewLoginLimiter()

// SetLoginLimiter replaces the login limiter (used in tests)
func SetLoginLimiter(l *middleware.LoginLimiter) {
	loginLimiter = l
}

// LoginRequest represents the admin login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin handles POST /api/v1/admin/auth/login. Wrong email and wrong
// password answer identically so the endpoint cannot be used to enumerate
// admin accounts.
func AdminLogin(c *gin.Context) {
	db := config.GetDB()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Email and password are required",
			},
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	if allowed, minutes := loginLimiter.Check(email); !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TOO_MANY_ATTEMPTS",
				"message": fmt.Sprintf("Too many login attempts. Try again in %d minutes.", minutes),
			},
		})
		return
	}

	invalidCredentials := func() {
		loginLimiter.Record(email)
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CREDENTIALS",
				"message": "Invalid email or password",
			},
		})
	}

	var admin models.AdminUser
	if err := db.Where("email = ?", email).First(&admin).Error; err != nil {
		invalidCredentials()
		return
	}
	if !admin.IsActive {
		invalidCredentials()
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		invalidCredentials()
		return
	}

	token, err := middleware.GenerateAdminToken(&admin)
	if err != nil {
		log.Printf("Failed to generate admin token for %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TOKEN_ERROR",
				"message": "Failed to create session",
			},
		})
		return
	}

	loginLimiter.Clear(email)
	now := time.Now()
	if err := db.Model(&admin).Update("last_login", now).Error; err != nil {
		log.Printf("Failed to stamp last login for %s: %v", email, err)
	}

	middleware.SetAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
			"role":  admin.Role,
		},
	})
}

// AdminMe handles GET /api/v1/admin/auth/me - returns the logged-in admin
func AdminMe(c *gin.Context) {
	claims, err := middleware.GetAdminClaims(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Not authenticated",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"admin": gin.H{
			"id":    claims.AdminID,
			"email": claims.Email,
			"name":  claims.Name,
			"role":  claims.Role,
		},
	})
}

// AdminLogout handles POST /api/v1/admin/auth/logout - clears the session cookie
func AdminLogout(c *gin.Context) {
	middleware.ClearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}
