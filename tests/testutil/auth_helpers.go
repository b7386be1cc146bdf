package testutil

import (
	"net/http"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/herbogene/storefront-api/middleware"
	"github.com/herbogene/storefront-api/models"
)

// TestAdminPassword is the plaintext password of admins created by CreateTestAdmin
const TestAdminPassword = "correct-horse-battery"

// CreateTestAdmin inserts an active back-office user with a bcrypt-hashed password
func CreateTestAdmin(t *testing.T, db *gorm.DB, email string) *models.AdminUser {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash test admin password: %v", err)
	}

	admin := &models.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Test Admin",
		Role:         "admin",
		IsActive:     true,
	}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("Failed to create test admin: %v", err)
	}
	return admin
}

// AdminSessionCookie returns a signed session cookie for the given admin,
// bypassing the login endpoint. Requires config.SetConfig with a JWT secret.
func AdminSessionCookie(t *testing.T, admin *models.AdminUser) *http.Cookie {
	t.Helper()

	token, err := middleware.GenerateAdminToken(admin)
	if err != nil {
		t.Fatalf("Failed to generate admin token: %v", err)
	}
	return &http.Cookie{Name: middleware.AdminCookieName, Value: token}
}
