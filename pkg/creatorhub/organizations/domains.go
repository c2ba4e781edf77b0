package organizations

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

// AddDomainRequest represents the request to map a domain to an organization
type AddDomainRequest struct {
	Domain    string `json:"domain" binding:"required,max=253"`
	IsPrimary bool   `json:"is_primary"`
}

// DomainResponse represents a domain in API responses
type DomainResponse struct {
	ID        uint   `json:"id"`
	Domain    string `json:"domain"`
	IsPrimary bool   `json:"is_primary"`
	CreatedAt string `json:"created_at"`
}

func domainResponse(d *models.OrganizationDomain) DomainResponse {
	return DomainResponse{
		ID:        d.ID,
		Domain:    d.Domain,
		IsPrimary: d.IsPrimary,
		CreatedAt: d.CreatedAt.Format(timeFormat),
	}
}

// ListDomains returns the extra domains of an organization
// @Summary List organization domains
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {array} DomainResponse
// @Security BearerAuth
// @Router /organizations/{id}/domains [get]
func (h *Handler) ListDomains(c *gin.Context) {
	org, _, ok := h.loadOrg(c)
	if !ok {
		return
	}

	var domains []models.OrganizationDomain
	if err := h.db.Where("organization_id = ?", org.ID).Order("domain").Find(&domains).Error; err != nil {
		apierror.Internal(c, "list domains", err)
		return
	}

	resp := make([]DomainResponse, len(domains))
	for i := range domains {
		resp[i] = domainResponse(&domains[i])
	}
	c.JSON(http.StatusOK, resp)
}

// AddDomain maps a domain to the organization (admin or owner).
// Ownership of the domain is not verified.
// @Summary Add a domain
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body AddDomainRequest true "Domain"
// @Success 201 {object} DomainResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /organizations/{id}/domains [post]
func (h *Handler) AddDomain(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	org, membership, ok := h.loadOrg(c)
	if !ok {
		return
	}
	if !roleOf(org, membership, userID).AtLeast(access.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	var req AddDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	host := NormalizeHost(req.Domain)
	if err := ValidateDomain(h.db, host, 0); err != nil {
		if IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			apierror.Internal(c, "validate domain", err)
		}
		return
	}

	domain := models.OrganizationDomain{OrganizationID: org.ID, Domain: host, IsPrimary: req.IsPrimary}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if req.IsPrimary {
			if err := tx.Model(&models.OrganizationDomain{}).
				Where("organization_id = ?", org.ID).
				Update("is_primary", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&domain).Error
	})
	if err != nil {
		apierror.Internal(c, "add domain", err)
		return
	}

	c.JSON(http.StatusCreated, domainResponse(&domain))
}

// RemoveDomain unmaps a domain (admin or owner)
// @Summary Remove a domain
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Param domainId path int true "Domain ID"
// @Success 200 {object} map[string]string "Domain removed"
// @Security BearerAuth
// @Router /organizations/{id}/domains/{domainId} [delete]
func (h *Handler) RemoveDomain(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	org, membership, ok := h.loadOrg(c)
	if !ok {
		return
	}
	if !roleOf(org, membership, userID).AtLeast(access.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	domainID, err := strconv.ParseUint(c.Param("domainId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid domain ID"})
		return
	}

	var domain models.OrganizationDomain
	if err := h.db.Where("id = ? AND organization_id = ?", domainID, org.ID).First(&domain).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Domain not found"})
		return
	}

	// Hard delete so the host name can be claimed again
	if err := h.db.Unscoped().Delete(&domain).Error; err != nil {
		apierror.Internal(c, "remove domain", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Domain removed"})
}
