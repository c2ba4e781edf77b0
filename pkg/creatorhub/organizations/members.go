package organizations

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/apierror"
	"github.com/mikepea/creatorhub/pkg/creatorhub/auth"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"gorm.io/gorm"
)

// MemberResponse represents a member in API responses
type MemberResponse struct {
	ID        uint    `json:"id"`
	UserID    uint    `json:"user_id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	RoleLabel string  `json:"role_label"`
	Status    string  `json:"status"`
	TierID    *string `json:"tier_id"`
	JoinedAt  string  `json:"joined_at"`
}

// AddMemberRequest represents the request to add a member
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=ADMIN MODERATOR MEMBER"`
}

// UpdateMemberRequest represents the request to update a member's role
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required,oneof=ADMIN MODERATOR MEMBER"`
}

// TransferRequest names the admin who becomes the new owner
type TransferRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

func memberResponse(m *models.OrganizationMembership) MemberResponse {
	return MemberResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		Email:     m.User.Email,
		Name:      m.User.PublicName(),
		Role:      string(m.Role),
		RoleLabel: m.Role.Rank().Label(),
		Status:    string(m.Status),
		TierID:    m.TierID,
		JoinedAt:  m.JoinedAt.Format(timeFormat),
	}
}

// canAssign reports whether a caller of rank actor may give or take away role
// target. Only the owner manages admins; nobody assigns OWNER here.
func canAssign(actor, target access.Role) bool {
	if target == access.RoleOwner {
		return false
	}
	if target == access.RoleAdmin {
		return actor == access.RoleOwner
	}
	return actor.AtLeast(access.RoleAdmin)
}

// ListMembers returns all members of an organization
// @Summary List organization members
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {array} MemberResponse
// @Failure 404 {object} map[string]string "Organization not found"
// @Security BearerAuth
// @Router /organizations/{id}/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	org, _, ok := h.loadOrg(c)
	if !ok {
		return
	}

	var memberships []models.OrganizationMembership
	if err := h.db.Preload("User").Where("organization_id = ?", org.ID).Order("joined_at").Find(&memberships).Error; err != nil {
		apierror.Internal(c, "list members", err)
		return
	}

	members := make([]MemberResponse, len(memberships))
	for i := range memberships {
		members[i] = memberResponse(&memberships[i])
	}

	c.JSON(http.StatusOK, members)
}

// AddMember adds a user to an organization (admin or owner)
// @Summary Add a member to an organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body AddMemberRequest true "Member details"
// @Success 201 {object} MemberResponse
// @Failure 403 {object} map[string]string "Admin access required"
// @Security BearerAuth
// @Router /organizations/{id}/members [post]
func (h *Handler) AddMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	org, membership, ok := h.loadOrg(c)
	if !ok {
		return
	}

	role := roleOf(org, membership, userID)
	if !role.AtLeast(access.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !canAssign(role, access.ParseRole(req.Role)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can grant admin access"})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var existing models.OrganizationMembership
	if err := h.db.Where("organization_id = ? AND user_id = ?", org.ID, user.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User is already a member"})
		return
	}

	added := models.OrganizationMembership{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           models.OrgRole(req.Role),
		Status:         access.StatusActive,
	}
	if err := h.db.Create(&added).Error; err != nil {
		apierror.Internal(c, "add member", err)
		return
	}
	added.User = user

	c.JSON(http.StatusCreated, memberResponse(&added))
}

// UpdateMember updates a member's role
// @Summary Update a member's role
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param userId path int true "User ID"
// @Param request body UpdateMemberRequest true "Updated role"
// @Success 200 {object} MemberResponse
// @Failure 403 {object} map[string]string "Admin access required"
// @Security BearerAuth
// @Router /organizations/{id}/members/{userId} [put]
func (h *Handler) UpdateMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	org, membership, ok := h.loadOrg(c)
	if !ok {
		return
	}
	targetUserID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	role := roleOf(org, membership, userID)
	if !role.AtLeast(access.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if org.IsOwner(uint(targetUserID)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The owner's role cannot be changed; transfer ownership instead"})
		return
	}

	var target models.OrganizationMembership
	if err := h.db.Preload("User").Where("organization_id = ? AND user_id = ?", org.ID, targetUserID).First(&target).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	newRole := access.ParseRole(req.Role)
	if !canAssign(role, newRole) || !canAssign(role, target.Role.Rank()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can change admin access"})
		return
	}

	if err := h.db.Model(&target).Update("role", models.OrgRole(newRole.String())).Error; err != nil {
		apierror.Internal(c, "update member", err)
		return
	}
	target.Role = models.OrgRole(newRole.String())

	c.JSON(http.StatusOK, memberResponse(&target))
}

// RemoveMember removes a member from an organization (admin, or self-removal)
// @Summary Remove a member from an organization
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]string "Member removed"
// @Failure 403 {object} map[string]string "Admin access required"
// @Security BearerAuth
// @Router /organizations/{id}/members/{userId} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	org, membership, ok := h.loadOrg(c)
	if !ok {
		return
	}
	targetUserID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if org.IsOwner(uint(targetUserID)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The owner cannot be removed"})
		return
	}

	var target models.OrganizationMembership
	if err := h.db.Where("organization_id = ? AND user_id = ?", org.ID, targetUserID).First(&target).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	if userID != uint(targetUserID) {
		role := roleOf(org, membership, userID)
		if !role.AtLeast(access.RoleAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		if !canAssign(role, target.Role.Rank()) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can remove admins"})
			return
		}
	}

	// Hard delete so the user can join again later
	if err := h.db.Unscoped().Delete(&target).Error; err != nil {
		apierror.Internal(c, "remove member", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// Transfer hands ownership to an admin. The previous owner stays on as admin.
// @Summary Transfer ownership
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body TransferRequest true "New owner"
// @Success 200 {object} OrgResponse
// @Failure 403 {object} map[string]string "Owner access required"
// @Security BearerAuth
// @Router /organizations/{id}/transfer [post]
func (h *Handler) Transfer(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	org, _, ok := h.loadOrg(c)
	if !ok {
		return
	}

	if !org.IsOwner(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Owner access required"})
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You already own this organization"})
		return
	}

	var target models.OrganizationMembership
	if err := h.db.Where("organization_id = ? AND user_id = ?", org.ID, req.UserID).First(&target).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	if target.Role != models.OrgRoleAdmin || target.Status != access.StatusActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ownership can only be transferred to an active admin"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OrganizationMembership{}).
			Where("organization_id = ? AND user_id = ?", org.ID, userID).
			Update("role", models.OrgRoleAdmin).Error; err != nil {
			return err
		}
		if err := tx.Model(&target).Update("role", models.OrgRoleOwner).Error; err != nil {
			return err
		}
		return tx.Model(org).Update("owner_id", req.UserID).Error
	})
	if err != nil {
		apierror.Internal(c, "transfer ownership", err)
		return
	}
	org.OwnerID = req.UserID

	c.JSON(http.StatusOK, h.orgResponse(org, userID, access.RoleAdmin))
}

// Join adds the current user to an organization on the free tier. A cancelled
// membership is reactivated; any other existing membership is a conflict.
// @Summary Join an organization
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 201 {object} MemberResponse
// @Failure 409 {object} map[string]string "Already a member"
// @Security BearerAuth
// @Router /organizations/{id}/join [post]
func (h *Handler) Join(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var membership models.OrganizationMembership
	err = h.db.Where("organization_id = ? AND user_id = ?", org.ID, userID).First(&membership).Error
	switch {
	case err == nil && membership.Status == access.StatusCancelled:
		// Rejoining starts over as a free member
		membership.Status = access.StatusActive
		membership.Role = models.OrgRoleMember
		membership.TierID = nil
		if err := h.db.Save(&membership).Error; err != nil {
			apierror.Internal(c, "rejoin organization", err)
			return
		}
	case err == nil:
		c.JSON(http.StatusConflict, gin.H{"error": "Already a member"})
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		membership = models.OrganizationMembership{
			OrganizationID: org.ID,
			UserID:         userID,
			Role:           models.OrgRoleMember,
			Status:         access.StatusActive,
		}
		if err := h.db.Create(&membership).Error; err != nil {
			apierror.Internal(c, "join organization", err)
			return
		}
	default:
		apierror.Internal(c, "load membership", err)
		return
	}
	membership.User = user

	c.JSON(http.StatusCreated, memberResponse(&membership))
}
