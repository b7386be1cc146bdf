package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/models"
)

const (
	// AdminCookieName is the httpOnly cookie carrying the admin session token
	AdminCookieName = "admin_token"
	// AdminTokenExpiry is how long an admin session token is valid
	AdminTokenExpiry = 24 * time.Hour

	adminClaimsKey = "admin_claims"
)

// AdminClaims are the JWT claims carried by an admin session token
type AdminClaims struct {
	AdminID uint   `json:"admin_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAdminToken signs a session token for a back-office user
func GenerateAdminToken(admin *models.AdminUser) (string, error) {
	cfg := config.GetConfig()
	if cfg.AdminJWTSecret == "" {
		return "", fmt.Errorf("admin JWT secret not configured")
	}

	claims := AdminClaims{
		AdminID: admin.ID,
		Email:   admin.Email,
		Name:    admin.Name,
		Role:    admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AdminTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.AdminJWTSecret))
}

// ParseAdminToken validates a session token and returns its claims
func ParseAdminToken(tokenString string) (*AdminClaims, error) {
	cfg := config.GetConfig()
	if cfg.AdminJWTSecret == "" {
		return nil, fmt.Errorf("admin JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.AdminJWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// SetAuthCookie writes the admin session cookie on the response
func SetAuthCookie(c *gin.Context, token string) {
	cfg := config.GetConfig()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AdminCookieName, token, int(AdminTokenExpiry.Seconds()), "/", "", cfg.IsProduction(), true)
}

// ClearAuthCookie removes the admin session cookie
func ClearAuthCookie(c *gin.Context) {
	cfg := config.GetConfig()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AdminCookieName, "", -1, "/", "", cfg.IsProduction(), true)
}

// RequireAdmin is a middleware guarding the back-office routes. It validates
// the session cookie and stores the claims in the Gin context.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(AdminCookieName)
		if err != nil || tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Not authenticated",
				},
			})
			c.Abort()
			return
		}

		claims, err := ParseAdminToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Invalid or expired token",
				},
			})
			c.Abort()
			return
		}

		c.Set(adminClaimsKey, claims)
		c.Next()
	}
}

// GetAdminClaims extracts the validated admin claims from the Gin context
func GetAdminClaims(c *gin.Context) (*AdminClaims, error) {
	claims, exists := c.Get(adminClaimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Admin claims not found in context"}
	}

	adminClaims, ok := claims.(*AdminClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return adminClaims, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
