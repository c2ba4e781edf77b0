package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mikepea/creatorhub/pkg/creatorhub/config"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)
	auth := r.Group("/auth")
	handler.RegisterRoutes(auth)
	return r
}

func register(t *testing.T, router *gin.Engine, email string) AuthResponse {
	body, _ := json.Marshal(RegisterRequest{Email: email, Password: "password123", Name: "Test User"})
	req, _ := http.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var response AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	return response
}

func TestPasswordHashing(t *testing.T) {
	password := "testpassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == password {
		t.Error("Hash should not equal plain password")
	}

	if !CheckPassword(password, hash) {
		t.Error("CheckPassword should return true for correct password")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Error("CheckPassword should return false for incorrect password")
	}

	if CheckPassword("", "") {
		t.Error("CheckPassword should return false for an empty hash")
	}
}

func TestJWTToken(t *testing.T) {
	token, err := GenerateToken(1, "test@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.UserID != 1 {
		t.Errorf("Expected UserID 1, got %d", claims.UserID)
	}

	if claims.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", claims.Email)
	}

	if claims.SystemRole != "user" {
		t.Errorf("Expected role user, got %s", claims.SystemRole)
	}

	if claims.SessionID == "" {
		t.Error("Expected a session id")
	}

	other, _ := GenerateToken(1, "test@example.com", "user")
	otherClaims, _ := ValidateToken(other)
	if otherClaims.SessionID == claims.SessionID {
		t.Error("Expected each token to carry its own session id")
	}
}

func TestInvalidToken(t *testing.T) {
	_, err := ValidateToken("invalid-token")
	if err == nil {
		t.Error("Expected error for invalid token")
	}
}

func TestExpiredToken(t *testing.T) {
	claims := &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(current().Secret))

	if _, err := ValidateToken(token); err != ErrExpiredToken {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestConfigureSecret(t *testing.T) {
	token, _ := GenerateToken(1, "a@example.com", "user")

	Configure(config.JWTConfig{Secret: "rotated-secret"})
	defer Configure(config.JWTConfig{Secret: config.DefaultJWTSecret})

	if _, err := ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken after rotating secret, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	response := register(t, router, "Test@Example.com")

	if response.Token == "" {
		t.Error("Expected token in response")
	}

	if response.User.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", response.User.Email)
	}

	if response.User.Onboarded {
		t.Error("Expected new user not to be onboarded")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	register(t, router, "test@example.com")

	body, _ := json.Marshal(RegisterRequest{Email: "test@example.com", Password: "password123", Name: "Test User"})
	req, _ := http.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", resp.Code)
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	register(t, router, "test@example.com")

	tests := []struct {
		name     string
		password string
		expected int
	}{
		{"correct password", "password123", http.StatusOK},
		{"wrong password", "wrongpassword", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		body, _ := json.Marshal(LoginRequest{Email: "test@example.com", Password: tt.password})
		req, _ := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != tt.expected {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.expected, resp.Code)
		}
	}
}

func TestMe(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	auth := register(t, router, "test@example.com")

	req, _ := http.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var user UserResponse
	json.Unmarshal(resp.Body.Bytes(), &user)
	if user.ID != auth.User.ID {
		t.Errorf("Expected user %d, got %d", auth.User.ID, user.ID)
	}
}

func TestMeUnauthorized(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"bad format", "Token abc"},
		{"invalid token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest("GET", "/auth/me", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected status 401, got %d", tt.name, resp.Code)
		}
	}
}

func TestUpdateMe(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	auth := register(t, router, "test@example.com")

	body := []byte(`{"display_name":"  Jane  ","bio":"I teach Go"}`)
	req, _ := http.NewRequest("PUT", "/auth/me", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var user UserResponse
	json.Unmarshal(resp.Body.Bytes(), &user)
	if user.DisplayName != "Jane" {
		t.Errorf("Expected display name Jane, got %q", user.DisplayName)
	}
	if user.Bio != "I teach Go" {
		t.Errorf("Expected bio to be saved, got %q", user.Bio)
	}
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", OptionalAuth(), func(c *gin.Context) {
		userID, ok := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "authenticated": ok})
	})

	token, _ := GenerateToken(42, "a@example.com", "user")

	tests := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{"anonymous", "/whoami", "", http.StatusOK, `{"authenticated":false,"user_id":0}`},
		{"garbage token stays anonymous", "/whoami", "Bearer nope", http.StatusOK, `{"authenticated":false,"user_id":0}`},
		{"valid token", "/whoami", "Bearer " + token, http.StatusOK, `{"authenticated":true,"user_id":42}`},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest("GET", tt.path, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if resp.Code != tt.code {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.code, resp.Code)
		}
		if tt.body != "" && resp.Body.String() != tt.body {
			t.Errorf("%s: expected body %s, got %s", tt.name, tt.body, resp.Body.String())
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AuthMiddleware(), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	userToken, _ := GenerateToken(1, "u@example.com", string(models.SystemRoleUser))
	adminToken, _ := GenerateToken(2, "a@example.com", string(models.SystemRoleAdmin))

	for token, expected := range map[string]int{userToken: http.StatusForbidden, adminToken: http.StatusNoContent} {
		req, _ := http.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != expected {
			t.Errorf("Expected status %d, got %d", expected, resp.Code)
		}
	}
}
