package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/auth"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"github.com/mikepea/creatorhub/pkg/creatorhub/onboarding"
	"github.com/mikepea/creatorhub/pkg/creatorhub/tenancy"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func setupFullServer(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(Deps{DB: db, BaseDomain: "creatorhub.test", WebhookSecret: "whsec_test"})
}

func request(router *gin.Engine, method, path string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// TestServerStartup verifies that all routes can be registered without conflicts
func TestServerStartup(t *testing.T) {
	db := setupTestDB(t)

	// This will panic if there are route conflicts
	router := setupFullServer(db)

	if router == nil {
		t.Fatal("Expected router to be created")
	}
}

// TestProtectedEndpointsRequireAuth verifies that protected endpoints return 401 without auth
func TestProtectedEndpointsRequireAuth(t *testing.T) {
	router := setupFullServer(setupTestDB(t))

	protectedEndpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/organizations"},
		{"POST", "/api/organizations"},
		{"GET", "/api/auth/me"},
		{"POST", "/api/onboarding/complete"},
		{"GET", "/api/tour"},
		{"POST", "/api/tour/dismiss"},
		{"GET", "/api/admin/stats"},
		{"GET", "/api/admin/organizations"},
	}

	for _, endpoint := range protectedEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			resp := request(router, endpoint.method, endpoint.path, nil, nil)
			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401 for %s %s, got %d", endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestPublicEndpointsNoAuth verifies that public endpoints don't require auth
func TestPublicEndpointsNoAuth(t *testing.T) {
	router := setupFullServer(setupTestDB(t))

	publicEndpoints := []struct {
		method       string
		path         string
		expectedCode int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/health", http.StatusOK},
		{"POST", "/api/auth/register", http.StatusBadRequest},
		{"POST", "/api/auth/login", http.StatusBadRequest},
		{"POST", "/api/billing/webhook", http.StatusBadRequest}, // unsigned
		{"GET", "/api/t/channels", http.StatusNotFound},         // no organization resolved
	}

	for _, endpoint := range publicEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			resp := request(router, endpoint.method, endpoint.path, nil, nil)
			if resp.Code != endpoint.expectedCode {
				t.Errorf("Expected status %d for %s %s, got %d", endpoint.expectedCode, endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

func TestAdminRequiresSystemAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	user := models.User{Email: "user@example.com", Name: "User", SystemRole: models.SystemRoleUser}
	admin := models.User{Email: "admin@example.com", Name: "Admin", SystemRole: models.SystemRoleAdmin}
	db.Create(&user)
	db.Create(&admin)

	for _, tc := range []struct {
		user models.User
		want int
	}{
		{user, http.StatusForbidden},
		{admin, http.StatusOK},
	} {
		token, _ := auth.GenerateToken(tc.user.ID, tc.user.Email, string(tc.user.SystemRole))
		resp := request(router, "GET", "/api/admin/stats", nil, map[string]string{"Authorization": "Bearer " + token})
		if resp.Code != tc.want {
			t.Errorf("%s: expected status %d, got %d", tc.user.Email, tc.want, resp.Code)
		}
	}
}

// TestCreatorJourney walks a creator from registration through onboarding to a
// member reading the community.
func TestCreatorJourney(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	register := func(email string) string {
		resp := request(router, "POST", "/api/auth/register", map[string]string{
			"email": email, "password": "password123", "name": "Someone",
		}, nil)
		if resp.Code != http.StatusCreated {
			t.Fatalf("Register %s: expected 201, got %d: %s", email, resp.Code, resp.Body.String())
		}
		var body auth.AuthResponse
		json.Unmarshal(resp.Body.Bytes(), &body)
		return "Bearer " + body.Token
	}

	creator := register("jane@example.com")
	resp := request(router, "POST", "/api/onboarding/complete", onboarding.Data{
		DisplayName:      "Jane",
		OrganizationName: "Jane's Yoga",
		UseCase:          "fitness",
		Features:         []string{onboarding.FeatureCourses},
		PrimaryColor:     "#112233",
		CommunityName:    "Yoga Friends",
		DefaultChannels:  []string{"general", "announcements"},
	}, map[string]string{"Authorization": creator})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Onboarding: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var org onboarding.CompleteResponse
	json.Unmarshal(resp.Body.Bytes(), &org)

	creatorHeaders := map[string]string{"Authorization": creator, tenancy.HeaderOrganizationSlug: org.OrganizationSlug}
	resp = request(router, "GET", "/api/t/channels", nil, creatorHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("Channels: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var chans []struct {
		ID      uint `json:"id"`
		CanPost bool `json:"can_post"`
	}
	json.Unmarshal(resp.Body.Bytes(), &chans)
	if len(chans) != 2 {
		t.Fatalf("Expected 2 channels, got %d", len(chans))
	}

	resp = request(router, "POST", fmt.Sprintf("/api/t/channels/%d/posts", chans[0].ID),
		map[string]string{"title": "Welcome", "body": "Hello everyone"}, creatorHeaders)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Create post: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	// A visitor with no membership cannot read posts
	visitor := map[string]string{tenancy.HeaderOrganizationSlug: org.OrganizationSlug}
	resp = request(router, "GET", fmt.Sprintf("/api/t/channels/%d/posts", chans[0].ID), nil, visitor)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Visitor posts: expected 403, got %d", resp.Code)
	}

	// After joining, the member can
	member := register("sam@example.com")
	resp = request(router, "POST", fmt.Sprintf("/api/organizations/%d/join", org.OrganizationID), nil, map[string]string{"Authorization": member})
	if resp.Code != http.StatusCreated && resp.Code != http.StatusOK {
		t.Fatalf("Join: expected success, got %d: %s", resp.Code, resp.Body.String())
	}
	memberHeaders := map[string]string{"Authorization": member, tenancy.HeaderOrganizationSlug: org.OrganizationSlug}
	resp = request(router, "GET", fmt.Sprintf("/api/t/channels/%d/posts", chans[0].ID), nil, memberHeaders)
	if resp.Code != http.StatusOK {
		t.Errorf("Member posts: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	// Livestreams were not picked during onboarding
	resp = request(router, "GET", "/api/t/livestreams", nil, memberHeaders)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Livestreams: expected 404, got %d", resp.Code)
	}
	resp = request(router, "GET", "/api/t/courses", nil, memberHeaders)
	if resp.Code != http.StatusOK {
		t.Errorf("Courses: expected 200, got %d", resp.Code)
	}
}

func TestServesFrontendBuild(t *testing.T) {
	dist := t.TempDir()
	if err := os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>creatorhub</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{DB: setupTestDB(t), WebDistPath: dist})

	for _, path := range []string{"/", "/dashboard", "/courses/42"} {
		resp := request(router, "GET", path, nil, nil)
		if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "creatorhub") {
			t.Errorf("%s: expected index.html, got %d", path, resp.Code)
		}
	}

	// API routes are untouched
	resp := request(router, "GET", "/api/health", nil, nil)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected API health 200, got %d", resp.Code)
	}
}
