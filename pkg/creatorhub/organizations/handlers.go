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
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const timeFormat = "2006-01-02T15:04:05Z"

// Handler handles organization-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new organizations handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateOrgRequest represents the request to create an organization
type CreateOrgRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
	Slug string `json:"slug" binding:"required,min=1,max=50"`
}

// UpdateOrgRequest represents the request to update an organization.
// An empty custom_domain string clears the custom domain.
type UpdateOrgRequest struct {
	Name         string                       `json:"name" binding:"omitempty,min=2,max=100"`
	CustomDomain *string                      `json:"custom_domain"`
	Settings     *models.OrganizationSettings `json:"settings"`
}

// OrgResponse represents an organization in API responses
type OrgResponse struct {
	ID           uint                        `json:"id"`
	Name         string                      `json:"name"`
	Slug         string                      `json:"slug"`
	CustomDomain *string                     `json:"custom_domain,omitempty"`
	OwnerID      uint                        `json:"owner_id"`
	IsOwner      bool                        `json:"is_owner"`
	Role         string                      `json:"role,omitempty"` // User's role in this org
	MemberCount  int                         `json:"member_count,omitempty"`
	Settings     models.OrganizationSettings `json:"settings"`
	CreatedAt    string                      `json:"created_at"`
}

func (h *Handler) orgResponse(org *models.Organization, userID uint, role access.Role) OrgResponse {
	var memberCount int64
	h.db.Model(&models.OrganizationMembership{}).Where("organization_id = ?", org.ID).Count(&memberCount)

	return OrgResponse{
		ID:           org.ID,
		Name:         org.Name,
		Slug:         org.Slug,
		CustomDomain: org.CustomDomain,
		OwnerID:      org.OwnerID,
		IsOwner:      org.IsOwner(userID),
		Role:         role.String(),
		MemberCount:  int(memberCount),
		Settings:     org.ResolvedSettings(),
		CreatedAt:    org.CreatedAt.Format(timeFormat),
	}
}

// errNoAccess means the user neither owns nor belongs to the organization
var errNoAccess = errors.New("no access to organization")

// loadOrg parses :id and loads the organization with the caller's membership.
// It writes the error response itself and returns ok=false on failure.
func (h *Handler) loadOrg(c *gin.Context) (*models.Organization, *models.OrganizationMembership, bool) {
	userID, _ := auth.GetUserID(c)
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return nil, nil, false
	}

	org, membership, err := h.lookup(uint(orgID), userID)
	if err != nil {
		if errors.Is(err, errNoAccess) || errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		} else {
			apierror.Internal(c, "load organization", err)
		}
		return nil, nil, false
	}
	return org, membership, true
}

func (h *Handler) lookup(orgID, userID uint) (*models.Organization, *models.OrganizationMembership, error) {
	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		return nil, nil, err
	}

	var membership models.OrganizationMembership
	err := h.db.Where("user_id = ? AND organization_id = ?", userID, orgID).First(&membership).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		if !org.IsOwner(userID) {
			return nil, nil, errNoAccess
		}
		return &org, nil, nil
	}
	return &org, &membership, nil
}

// roleOf returns the caller's effective rank. Inactive memberships carry no
// management rights.
func roleOf(org *models.Organization, membership *models.OrganizationMembership, userID uint) access.Role {
	if org.IsOwner(userID) {
		return access.RoleOwner
	}
	if !membership.Access().Active() {
		return access.RoleMember
	}
	return membership.Role.Rank()
}

// List returns all organizations the current user is a member of
// @Summary List organizations
// @Description Get all organizations the current user is a member of
// @Tags organizations
// @Produce json
// @Success 200 {array} OrgResponse
// @Security BearerAuth
// @Router /organizations [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var memberships []models.OrganizationMembership
	if err := h.db.Preload("Organization").Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		apierror.Internal(c, "list organizations", err)
		return
	}

	orgs := make([]OrgResponse, 0, len(memberships))
	for i := range memberships {
		m := &memberships[i]
		if m.Organization.ID == 0 {
			continue
		}
		orgs = append(orgs, h.orgResponse(&m.Organization, userID, roleOf(&m.Organization, m, userID)))
	}

	c.JSON(http.StatusOK, orgs)
}

// Create creates a new organization owned by the current user
// @Summary Create an organization
// @Description Create a new organization with the current user as owner
// @Tags organizations
// @Accept json
// @Produce json
// @Param request body CreateOrgRequest true "Organization details"
// @Success 201 {object} OrgResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /organizations [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var org *models.Organization
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		org, err = Provision(tx, NewOrganization{
			Name:    req.Name,
			Slug:    NormalizeSlug(req.Slug),
			OwnerID: userID,
		})
		return err
	})
	if err != nil {
		if IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		apierror.Internal(c, "create organization", err)
		return
	}

	c.JSON(http.StatusCreated, h.orgResponse(org, userID, access.RoleOwner))
}

// Get returns a specific organization
// @Summary Get an organization
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {object} OrgResponse
// @Failure 404 {object} map[string]string "Organization not found"
// @Security BearerAuth
// @Router /organizations/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	org, membership, ok := h.loadOrg(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.orgResponse(org, userID, roleOf(org, membership, userID)))
}

// Update updates an organization (admin or owner)
// @Summary Update an organization
// @Description Update name, custom domain, and settings
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body UpdateOrgRequest true "Updated organization details"
// @Success 200 {object} OrgResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Admin access required"
// @Security BearerAuth
// @Router /organizations/{id} [put]
func (h *Handler) Update(c *gin.Context) {
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

	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		org.Name = strings.TrimSpace(req.Name)
	}

	if req.CustomDomain != nil {
		host := NormalizeHost(*req.CustomDomain)
		if host == "" {
			org.CustomDomain = nil
		} else {
			if err := ValidateDomain(h.db, host, org.ID); err != nil {
				if IsValidationError(err) {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				} else {
					apierror.Internal(c, "validate domain", err)
				}
				return
			}
			org.CustomDomain = &host
		}
	}

	if req.Settings != nil {
		if req.Settings.PrimaryColor != "" {
			if err := ValidatePrimaryColor(req.Settings.PrimaryColor); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		org.Settings = datatypes.NewJSONType(org.Settings.Data().Merge(*req.Settings))
	}

	if err := h.db.Save(org).Error; err != nil {
		apierror.Internal(c, "update organization", err)
		return
	}

	c.JSON(http.StatusOK, h.orgResponse(org, userID, role))
}

// Delete deletes an organization (owner only, soft delete)
// @Summary Delete an organization
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {object} map[string]string "Organization deleted"
// @Failure 403 {object} map[string]string "Owner access required"
// @Security BearerAuth
// @Router /organizations/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	org, _, ok := h.loadOrg(c)
	if !ok {
		return
	}

	if !org.IsOwner(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Owner access required"})
		return
	}

	if err := h.db.Delete(org).Error; err != nil {
		apierror.Internal(c, "delete organization", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Organization deleted"})
}

// RegisterRoutes registers organization routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/join", h.Join)
	rg.POST("/:id/transfer", h.Transfer)
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/members", h.ListMembers)
	rg.POST("/:id/members", h.AddMember)
	rg.PUT("/:id/members/:userId", h.UpdateMember)
	rg.DELETE("/:id/members/:userId", h.RemoveMember)
}

// RegisterDomainRoutes registers custom domain routes
func (h *Handler) RegisterDomainRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/domains", h.ListDomains)
	rg.POST("/:id/domains", h.AddDomain)
	rg.DELETE("/:id/domains/:domainId", h.RemoveDomain)
}
