package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/apierror"
	"github.com/mikepea/creatorhub/pkg/creatorhub/auth"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"gorm.io/gorm"
)

const timeFormat = "2006-01-02T15:04:05Z"

// Handler handles platform admin requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID                 uint   `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	SystemRole         string `json:"system_role"`
	CreatedAt          string `json:"created_at"`
	Onboarded          bool   `json:"onboarded"`
	OwnedOrganizations int64  `json:"owned_organizations"`
	Memberships        int64  `json:"memberships"`
}

// UpdateUserRequest represents the request to update a user
type UpdateUserRequest struct {
	Name       *string `json:"name"`
	SystemRole *string `json:"system_role"`
}

// OrganizationResponse summarises an organization for platform admins
type OrganizationResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	OwnerID       uint   `json:"owner_id"`
	CreatedAt     string `json:"created_at"`
	ActiveMembers int64  `json:"active_members"`
	Tiers         int64  `json:"tiers"`
}

// StatsResponse represents platform statistics
type StatsResponse struct {
	TotalUsers         int64 `json:"total_users"`
	AdminUsers         int64 `json:"admin_users"`
	OnboardedUsers     int64 `json:"onboarded_users"`
	TotalOrganizations int64 `json:"total_organizations"`
	ActiveMemberships  int64 `json:"active_memberships"`
	PastDueMemberships int64 `json:"past_due_memberships"`
	PaidMemberships    int64 `json:"paid_memberships"`
	TotalTiers         int64 `json:"total_tiers"`
	TotalCourses       int64 `json:"total_courses"`
	TotalPosts         int64 `json:"total_posts"`
	LiveNow            int64 `json:"live_now"`
}

func (h *Handler) userResponse(user models.User) UserResponse {
	var owned, memberships int64
	h.db.Model(&models.Organization{}).Where("owner_id = ?", user.ID).Count(&owned)
	h.db.Model(&models.OrganizationMembership{}).Where("user_id = ?", user.ID).Count(&memberships)

	return UserResponse{
		ID:                 user.ID,
		Email:              user.Email,
		Name:               user.Name,
		SystemRole:         string(user.SystemRole),
		CreatedAt:          user.CreatedAt.Format(timeFormat),
		Onboarded:          user.OnboardedAt != nil,
		OwnedOrganizations: owned,
		Memberships:        memberships,
	}
}

// ListUsers returns all users
// @Summary List users
// @Tags admin
// @Produce json
// @Param q query string false "Search by email or name"
// @Param role query string false "Filter by system role"
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User

	query := h.db.Order("created_at DESC")
	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("system_role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		apierror.Internal(c, "list users", err)
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = h.userResponse(user)
	}
	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user
// @Summary Get a user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, h.userResponse(user))
}

// UpdateUser changes a user's name or system role
// @Summary Update a user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Changes"
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /admin/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID && req.SystemRole != nil && *req.SystemRole != string(models.SystemRoleAdmin) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote yourself"})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.SystemRole != nil {
		role := models.SystemRole(*req.SystemRole)
		if role != models.SystemRoleAdmin && role != models.SystemRoleUser {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid system role"})
			return
		}
		updates["system_role"] = role
	}

	if len(updates) > 0 {
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			apierror.Internal(c, "update user", err)
			return
		}
	}

	h.db.First(&user, id)
	c.JSON(http.StatusOK, h.userResponse(user))
}

// DeleteUser soft-deletes a user and removes their memberships. Users who own
// an organization must transfer it first.
// @Summary Delete a user
// @Tags admin
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string "User owns organizations"
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var owned int64
	h.db.Model(&models.Organization{}).Where("owner_id = ?", user.ID).Count(&owned)
	if owned > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "User owns organizations; transfer ownership first"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&models.OrganizationMembership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		apierror.Internal(c, "delete user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// ListOrganizations returns every organization on the platform
// @Summary List organizations
// @Tags admin
// @Produce json
// @Param q query string false "Search by name or slug"
// @Success 200 {array} OrganizationResponse
// @Security BearerAuth
// @Router /admin/organizations [get]
func (h *Handler) ListOrganizations(c *gin.Context) {
	var orgs []models.Organization

	query := h.db.Order("created_at DESC")
	if search := c.Query("q"); search != "" {
		query = query.Where("name LIKE ? OR slug LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := query.Find(&orgs).Error; err != nil {
		apierror.Internal(c, "list organizations", err)
		return
	}

	responses := make([]OrganizationResponse, len(orgs))
	for i, org := range orgs {
		var members, tiers int64
		h.db.Model(&models.OrganizationMembership{}).
			Where("organization_id = ? AND status = ?", org.ID, access.StatusActive).
			Count(&members)
		h.db.Model(&models.MembershipTier{}).Where("organization_id = ?", org.ID).Count(&tiers)

		responses[i] = OrganizationResponse{
			ID:            org.ID,
			Name:          org.Name,
			Slug:          org.Slug,
			OwnerID:       org.OwnerID,
			CreatedAt:     org.CreatedAt.Format(timeFormat),
			ActiveMembers: members,
			Tiers:         tiers,
		}
	}
	c.JSON(http.StatusOK, responses)
}

// GetStats returns platform-wide statistics
// @Summary Platform statistics
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&stats.AdminUsers)
	h.db.Model(&models.User{}).Where("onboarded_at IS NOT NULL").Count(&stats.OnboardedUsers)
	h.db.Model(&models.Organization{}).Count(&stats.TotalOrganizations)
	h.db.Model(&models.OrganizationMembership{}).Where("status = ?", access.StatusActive).Count(&stats.ActiveMemberships)
	h.db.Model(&models.OrganizationMembership{}).Where("status = ?", access.StatusPastDue).Count(&stats.PastDueMemberships)
	h.db.Model(&models.OrganizationMembership{}).Where("tier_id IS NOT NULL").Count(&stats.PaidMemberships)
	h.db.Model(&models.MembershipTier{}).Count(&stats.TotalTiers)
	h.db.Model(&models.Course{}).Count(&stats.TotalCourses)
	h.db.Model(&models.Post{}).Count(&stats.TotalPosts)
	h.db.Model(&models.Livestream{}).Where("status = ?", models.LivestreamLive).Count(&stats.LiveNow)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group. The group
// must require a platform admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/organizations", h.ListOrganizations)
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.PUT("/users/:id", h.UpdateUser)
	rg.DELETE("/users/:id", h.DeleteUser)
}
