package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/middleware"
	"github.com/herbogene/storefront-api/models"
	"github.com/herbogene/storefront-api/services"
)

const testAdminPassword = "correct-horse-battery"

// setupTestDB opens an isolated in-memory database, migrates the full schema
// and installs it as the global connection
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.AdminUser{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	config.SetConfig(&config.Config{
		GoEnv:          "test",
		AdminJWTSecret: "test-jwt-secret",
		EmailFrom:      "orders@example.com",
		AppURL:         "http://localhost:3000",
	})
	return db
}

// setupTestServices installs mock gateway and email services and returns them
func setupTestServices(t *testing.T) (*services.MockRazorpayService, *services.MockEmailService) {
	t.Helper()

	mockGateway := services.NewMockRazorpayService()
	mockGateway.SetAsMockForTesting()
	mockEmail := services.NewMockEmailService()
	mockEmail.SetAsMockForTesting()

	t.Cleanup(func() {
		services.SetRazorpayService(nil)
		services.SetEmailService(nil)
	})
	return mockGateway, mockEmail
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// seedTestAdmin creates an active back-office user with a known password
func seedTestAdmin(t *testing.T, db *gorm.DB, email string) models.AdminUser {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}
	admin := models.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Test Admin",
		Role:         "admin",
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("Failed to seed admin user: %v", err)
	}
	return admin
}

// adminSessionCookie returns a valid session cookie for the given admin
func adminSessionCookie(t *testing.T, admin *models.AdminUser) *http.Cookie {
	t.Helper()

	token, err := middleware.GenerateAdminToken(admin)
	if err != nil {
		t.Fatalf("Failed to generate admin token: %v", err)
	}
	return &http.Cookie{Name: middleware.AdminCookieName, Value: token}
}

// performRequest runs one request through the router and returns the recorder
func performRequest(router *gin.Engine, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Response is not valid JSON: %v\nbody: %s", err, w.Body.String())
	}
	return response
}

func responseErrorCode(response map[string]interface{}) string {
	errData, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errData["code"].(string)
	return code
}

func seedTestProduct(t *testing.T, db *gorm.DB, name, slug string, price float64, stock int, active bool) models.Product {
	t.Helper()

	product := models.Product{
		Name:          name,
		Slug:          slug,
		Price:         price,
		StockQuantity: stock,
		IsActive:      active,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return product
}

func seedTestCoupon(t *testing.T, db *gorm.DB, coupon models.Coupon) models.Coupon {
	t.Helper()

	if coupon.ValidFrom.IsZero() {
		coupon.ValidFrom = time.Now().Add(-time.Hour)
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("Failed to seed coupon: %v", err)
	}
	return coupon
}

func testCustomerPayload() map[string]interface{} {
	return map[string]interface{}{
		"first_name": "Asha",
		"last_name":  "Nair",
		"email":      "asha@example.com",
		"phone":      "9876543210",
		"address":    "12 MG Road",
		"city":       "Kochi",
		"state":      "Kerala",
		"pincode":    "682001",
	}
}
