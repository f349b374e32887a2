package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sabin-khadka/khaja-ghar-api/config"
	"github.com/sabin-khadka/khaja-ghar-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func seedAdmin(db *gorm.DB, auth0ID string) models.User {
	admin := models.User{
		Auth0ID: auth0ID,
		Name:    "Test Admin",
		Email:   auth0ID + "@example.com",
		Role:    "admin",
	}
	db.Create(&admin)
	return admin
}

func TestListProductsFiltersUnavailable(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	seedProduct(db, "Chicken Momo", "250.00")
	unavailable := models.Product{
		Name:      "Seasonal Special",
		Category:  "momo",
		Price:     decimal.RequireFromString("400.00"),
		Available: false,
	}
	db.Create(&unavailable)

	router := setupTestRouter()
	router.GET("/api/v1/products", ListProducts)

	req := httptest.NewRequest("GET", "/api/v1/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	products := response["data"].([]interface{})
	assert.Len(t, products, 1)
	assert.Equal(t, "Chicken Momo", products[0].(map[string]interface{})["name"])
}

func TestListProductsByCategory(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	momo := seedProduct(db, "Buff Momo", "220.00")
	drink := models.Product{
		Name:      "Lassi",
		Category:  "drinks",
		Price:     decimal.RequireFromString("120.00"),
		Available: true,
	}
	db.Create(&drink)

	router := setupTestRouter()
	router.GET("/api/v1/products", ListProducts)

	req := httptest.NewRequest("GET", "/api/v1/products?category=momo", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	products := response["data"].([]interface{})
	assert.Len(t, products, 1)
	assert.Equal(t, momo.Name, products[0].(map[string]interface{})["name"])
}

func TestGetProductNotFound(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	router := setupTestRouter()
	router.GET("/api/v1/products/:id", GetProduct)

	req := httptest.NewRequest("GET", "/api/v1/products/999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "PRODUCT_NOT_FOUND", errorData["code"])
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	customer := seedCustomer(db, "auth0|prod-customer")

	router := setupTestRouter()
	router.POST("/api/v1/products",
		mockAuthMiddleware(customer.Auth0ID, "customer", "test-token"),
		CreateProduct)

	req := jsonRequest("POST", "/api/v1/products", map[string]interface{}{
		"name":  "Thukpa",
		"price": "300.00",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateProduct(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	admin := seedAdmin(db, "auth0|prod-admin")

	router := setupTestRouter()
	router.POST("/api/v1/products",
		mockAuthMiddleware(admin.Auth0ID, "admin", "test-token"),
		CreateProduct)

	req := jsonRequest("POST", "/api/v1/products", map[string]interface{}{
		"name":        "Thakali Thali",
		"description": "Dal, bhat, and seasonal vegetables",
		"category":    "thali",
		"price":       "550.555",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "Thakali Thali", data["name"])
	assert.Equal(t, true, data["available"])

	// Prices are rounded to two decimal places on the way in
	assertAmount(t, "550.56", data["price"])
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	admin := seedAdmin(db, "auth0|prod-admin2")

	router := setupTestRouter()
	router.POST("/api/v1/products",
		mockAuthMiddleware(admin.Auth0ID, "admin", "test-token"),
		CreateProduct)

	req := jsonRequest("POST", "/api/v1/products", map[string]interface{}{
		"name":  "Broken Item",
		"price": "-10.00",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_AMOUNT", errorData["code"])
}

func TestUpdateProductPartial(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	admin := seedAdmin(db, "auth0|prod-admin3")
	product := seedProduct(db, "Chatamari", "200.00")

	router := setupTestRouter()
	router.PUT("/api/v1/products/:id",
		mockAuthMiddleware(admin.Auth0ID, "admin", "test-token"),
		UpdateProduct)

	available := false
	req := jsonRequest("PUT", "/api/v1/products/1", map[string]interface{}{
		"price":     "225.00",
		"available": available,
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var stored models.Product
	assert.NoError(t, db.First(&stored, product.ID).Error)
	assert.Equal(t, product.Name, stored.Name, "untouched fields keep their values")
	assert.False(t, stored.Available)
	assert.True(t, decimal.RequireFromString("225.00").Equal(stored.Price))
}

func TestDeleteProductKeepsOrderHistory(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	admin := seedAdmin(db, "auth0|prod-admin4")
	customer := seedCustomer(db, "auth0|prod-buyer")
	product := seedProduct(db, "Sukuti", "350.00")

	// An existing order line references the product
	order := models.Order{
		PurchaseRef:     "khaja-history-1",
		UserID:          customer.ID,
		Status:          models.OrderStatusConfirmed,
		PaymentMethod:   models.PaymentMethodCash,
		PaymentStatus:   models.PaymentStatusPaid,
		Subtotal:        decimal.RequireFromString("350.00"),
		Tax:             decimal.RequireFromString("45.50"),
		TotalAmount:     decimal.RequireFromString("395.50"),
		DeliveryAddress: "Kathmandu",
		ContactNumber:   "9841000000",
	}
	assert.NoError(t, db.Create(&order).Error)
	item := models.OrderItem{
		OrderID:   order.ID,
		ProductID: product.ID,
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("350.00"),
	}
	assert.NoError(t, db.Create(&item).Error)

	router := setupTestRouter()
	router.DELETE("/api/v1/products/:id",
		mockAuthMiddleware(admin.Auth0ID, "admin", "test-token"),
		DeleteProduct)

	req := httptest.NewRequest("DELETE", "/api/v1/products/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var productCount int64
	db.Model(&models.Product{}).Count(&productCount)
	assert.Equal(t, int64(0), productCount)

	// The order line still carries its snapshotted price
	var storedItem models.OrderItem
	assert.NoError(t, db.First(&storedItem, item.ID).Error)
	assert.True(t, decimal.RequireFromString("350.00").Equal(storedItem.UnitPrice))
}
