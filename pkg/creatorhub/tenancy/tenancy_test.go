package tenancy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/auth"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"gorm.io/datatypes"
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

type fixture struct {
	owner  models.User
	member models.User
	org    models.Organization
}

func seed(t *testing.T, db *gorm.DB) fixture {
	var f fixture
	f.owner = models.User{Email: "owner@example.com", Name: "Owner"}
	f.member = models.User{Email: "member@example.com", Name: "Member"}
	db.Create(&f.owner)
	db.Create(&f.member)

	domain := "learn.janedoe.com"
	f.org = models.Organization{Name: "Jane", Slug: "jane", OwnerID: f.owner.ID, CustomDomain: &domain}
	if err := db.Create(&f.org).Error; err != nil {
		t.Fatalf("Failed to create organization: %v", err)
	}
	db.Create(&models.OrganizationDomain{OrganizationID: f.org.ID, Domain: "jane.example.org"})
	db.Create(&models.OrganizationMembership{OrganizationID: f.org.ID, UserID: f.member.ID, Role: models.OrgRoleModerator})
	return f
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	resolver := NewResolver(db, "creatorhub.test")
	r.GET("/whoami", resolver.Middleware(), auth.OptionalAuth(), ViewerMiddleware(db), func(c *gin.Context) {
		v := GetViewer(c)
		c.JSON(http.StatusOK, gin.H{
			"org":    v.Organization.Slug,
			"user":   v.UserID,
			"owner":  v.IsOwner(),
			"role":   v.Role().String(),
			"member": v.Membership != nil,
		})
	})
	r.GET("/moderate", resolver.Middleware(), auth.OptionalAuth(), ViewerMiddleware(db), RequireRole(access.RoleModerator), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestResolveHost(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	resolver := NewResolver(db, "CreatorHub.test")

	tests := []struct {
		host  string
		found bool
	}{
		{"jane.creatorhub.test", true},
		{"JANE.creatorhub.test:8080", true},
		{"learn.janedoe.com", true},
		{"jane.example.org", true},
		{"nobody.creatorhub.test", false},
		{"a.jane.creatorhub.test", false},
		{"creatorhub.test", false},
		{"example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		org, err := resolver.ResolveHost(tt.host)
		if tt.found {
			if err != nil {
				t.Errorf("%q: unexpected error %v", tt.host, err)
				continue
			}
			if org.ID != f.org.ID {
				t.Errorf("%q: expected org %d, got %d", tt.host, f.org.ID, org.ID)
			}
		} else if err != ErrNotFound {
			t.Errorf("%q: expected ErrNotFound, got %v", tt.host, err)
		}
	}
}

func TestResolveHeaders(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	resolver := NewResolver(db, "creatorhub.test")

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "other.creatorhub.test"
	req.Header.Set(HeaderOrganizationID, strconv.Itoa(int(f.org.ID)))
	if org, err := resolver.Resolve(req); err != nil || org.ID != f.org.ID {
		t.Errorf("Expected header id to win over host, got %v %v", org, err)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderOrganizationSlug, "Jane")
	if org, err := resolver.Resolve(req); err != nil || org.ID != f.org.ID {
		t.Errorf("Expected slug header to resolve, got %v %v", org, err)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderOrganizationID, "abc")
	if _, err := resolver.Resolve(req); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for bad id, got %v", err)
	}
}

func TestViewerMiddleware(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	router := setupTestRouter(db)

	ownerToken, _ := auth.GenerateToken(f.owner.ID, f.owner.Email, "user")
	memberToken, _ := auth.GenerateToken(f.member.ID, f.member.Email, "user")

	tests := []struct {
		name   string
		token  string
		owner  bool
		role   string
		member bool
	}{
		{"visitor", "", false, "MEMBER", false},
		{"owner without membership row", ownerToken, true, "OWNER", false},
		{"moderator", memberToken, false, "MODERATOR", true},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest("GET", "/whoami", nil)
		req.Host = "jane.creatorhub.test"
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", tt.name, resp.Code)
		}
		var body struct {
			Org    string `json:"org"`
			Owner  bool   `json:"owner"`
			Role   string `json:"role"`
			Member bool   `json:"member"`
		}
		json.Unmarshal(resp.Body.Bytes(), &body)
		if body.Org != "jane" || body.Owner != tt.owner || body.Role != tt.role || body.Member != tt.member {
			t.Errorf("%s: unexpected viewer %+v", tt.name, body)
		}
	}
}

func TestUnknownTenant(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Host = "ghost.creatorhub.test"
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestRequireRole(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	router := setupTestRouter(db)

	outsider := models.User{Email: "out@example.com", Name: "Out"}
	db.Create(&outsider)

	ownerToken, _ := auth.GenerateToken(f.owner.ID, f.owner.Email, "user")
	memberToken, _ := auth.GenerateToken(f.member.ID, f.member.Email, "user")
	outsiderToken, _ := auth.GenerateToken(outsider.ID, outsider.Email, "user")

	tests := []struct {
		name     string
		token    string
		expected int
	}{
		{"visitor", "", http.StatusUnauthorized},
		{"outsider", outsiderToken, http.StatusForbidden},
		{"moderator", memberToken, http.StatusNoContent},
		{"owner", ownerToken, http.StatusNoContent},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest("GET", "/moderate", nil)
		req.Host = "jane.creatorhub.test"
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tt.expected {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.expected, resp.Code)
		}
	}

	// Paused moderators lose moderation rights
	db.Model(&models.OrganizationMembership{}).Where("user_id = ?", f.member.ID).Update("status", access.StatusPaused)
	req, _ := http.NewRequest("GET", "/moderate", nil)
	req.Host = "jane.creatorhub.test"
	req.Header.Set("Authorization", "Bearer "+memberToken)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for paused moderator, got %d", resp.Code)
	}
}

func TestRequireFeature(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	courses := func(fs models.FeatureSettings) *bool { return fs.Courses }
	r.GET("/courses", NewResolver(db, "creatorhub.test").Middleware(), RequireFeature("Courses", courses), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	get := func() int {
		req, _ := http.NewRequest("GET", "/courses", nil)
		req.Header.Set(HeaderOrganizationSlug, "jane")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := get(); code != http.StatusOK {
		t.Errorf("Expected features to default on, got %d", code)
	}

	settings := models.OrganizationSettings{Features: models.FeatureSettings{Courses: models.Bool(false)}}
	db.Model(&f.org).Update("settings", datatypes.NewJSONType(settings))

	if code := get(); code != http.StatusNotFound {
		t.Errorf("Expected status 404 for a disabled feature, got %d", code)
	}
}
