package tiers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/apierror"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"github.com/mikepea/creatorhub/pkg/creatorhub/tenancy"
	"gorm.io/gorm"
)

// Handler handles membership tier requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new tiers handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateTierRequest represents the request to create a tier
type CreateTierRequest struct {
	Name          string `json:"name" binding:"required,min=1,max=100"`
	Description   string `json:"description" binding:"max=2000"`
	PriceCents    int64  `json:"price_cents" binding:"min=0"`
	Currency      string `json:"currency" binding:"omitempty,len=3"`
	Interval      string `json:"interval" binding:"omitempty,oneof=month year one_time"`
	Position      *int   `json:"position"`
	StripePriceID string `json:"stripe_price_id"`
}

// UpdateTierRequest represents the request to update a tier
type UpdateTierRequest struct {
	Name          *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description   *string `json:"description" binding:"omitempty,max=2000"`
	PriceCents    *int64  `json:"price_cents" binding:"omitempty,min=0"`
	Position      *int    `json:"position"`
	Active        *bool   `json:"active"`
	StripePriceID *string `json:"stripe_price_id"`
}

// TierResponse represents a tier in API responses
type TierResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
	Position    int    `json:"position"`
	Active      bool   `json:"active"`
	IsCurrent   bool   `json:"is_current"`
	IsUpgrade   bool   `json:"is_upgrade"`
}

// NewTierResponse builds the API view of a tier relative to the viewer's
// current tier, which may be nil
func NewTierResponse(t *models.MembershipTier, current *access.Tier) TierResponse {
	return TierResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		PriceCents:  t.PriceCents,
		Currency:    t.Currency,
		Interval:    string(t.Interval),
		Position:    t.Position,
		Active:      t.Active,
		IsCurrent:   current != nil && current.ID == t.ID,
		IsUpgrade:   t.Active && access.IsUpgrade(current, t.Access()),
	}
}

// Load returns an organization's tiers in display order. Inactive tiers are
// included only when includeInactive is set.
func Load(db *gorm.DB, orgID uint, includeInactive bool) ([]models.MembershipTier, error) {
	var tiers []models.MembershipTier
	q := db.Where("organization_id = ?", orgID)
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	if err := q.Order("position").Order("price_cents").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// ErrUnknownTier means an access list names a tier the organization does not have
var ErrUnknownTier = errors.New("unknown tier")

// CheckIDs verifies that every id in an access list names one of the
// organization's tiers. Inactive tiers are allowed.
func CheckIDs(db *gorm.DB, orgID uint, ids []string) error {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.MembershipTier{}).
		Where("organization_id = ? AND id IN ?", orgID, unique).
		Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(unique) {
		return fmt.Errorf("%w in access_tier_ids", ErrUnknownTier)
	}
	return nil
}

// currentTier finds the viewer's tier among tiers. A tier id that no longer
// resolves is treated as the free tier.
func currentTier(viewer *tenancy.Viewer, tiers []models.MembershipTier) *access.Tier {
	id := viewer.TierID()
	if id == "" {
		return nil
	}
	for i := range tiers {
		if tiers[i].ID == id {
			t := tiers[i].Access()
			return &t
		}
	}
	return nil
}

// UpgradeOptions returns the tiers the viewer could upgrade to, in display
// order. It backs the upgrade prompt shown on locked content.
func UpgradeOptions(db *gorm.DB, viewer *tenancy.Viewer) ([]TierResponse, error) {
	if viewer.Organization == nil {
		return []TierResponse{}, nil
	}
	all, err := Load(db, viewer.Organization.ID, true)
	if err != nil {
		return nil, err
	}
	current := currentTier(viewer, all)

	byID := make(map[string]*models.MembershipTier, len(all))
	candidates := make([]access.Tier, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
		candidates[i] = all[i].Access()
	}

	options := access.UpgradeOptions(current, candidates)
	resp := make([]TierResponse, len(options))
	for i, o := range options {
		resp[i] = NewTierResponse(byID[o.ID], current)
	}
	return resp, nil
}

// List returns the organization's tiers. Admins also see inactive tiers.
// @Summary List membership tiers
// @Tags tiers
// @Produce json
// @Success 200 {array} TierResponse
// @Router /t/tiers [get]
func (h *Handler) List(c *gin.Context) {
	viewer := tenancy.GetViewer(c)
	isAdmin := access.HasRole(viewer.Context(), access.RoleAdmin)

	all, err := Load(h.db, viewer.Organization.ID, true)
	if err != nil {
		apierror.Internal(c, "list tiers", err)
		return
	}
	current := currentTier(viewer, all)

	resp := make([]TierResponse, 0, len(all))
	for i := range all {
		if !all[i].Active && !isAdmin {
			continue
		}
		resp = append(resp, NewTierResponse(&all[i], current))
	}
	c.JSON(http.StatusOK, resp)
}

// Upgrades returns the viewer's upgrade options
// @Summary List upgrade options
// @Tags tiers
// @Produce json
// @Success 200 {array} TierResponse
// @Router /t/tiers/upgrades [get]
func (h *Handler) Upgrades(c *gin.Context) {
	options, err := UpgradeOptions(h.db, tenancy.GetViewer(c))
	if err != nil {
		apierror.Internal(c, "load upgrade options", err)
		return
	}
	c.JSON(http.StatusOK, options)
}

// Create creates a tier (admin or owner)
// @Summary Create a membership tier
// @Tags tiers
// @Accept json
// @Produce json
// @Param request body CreateTierRequest true "Tier details"
// @Success 201 {object} TierResponse
// @Security BearerAuth
// @Router /t/tiers [post]
func (h *Handler) Create(c *gin.Context) {
	viewer := tenancy.GetViewer(c)

	var req CreateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tier := models.MembershipTier{
		OrganizationID: viewer.Organization.ID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		PriceCents:     req.PriceCents,
		Currency:       strings.ToLower(req.Currency),
		Interval:       models.TierInterval(req.Interval),
		Active:         true,
		StripePriceID:  req.StripePriceID,
	}
	if tier.Currency == "" {
		tier.Currency = "usd"
	}
	if tier.Interval == "" {
		tier.Interval = models.IntervalMonth
	}

	if req.Position != nil {
		tier.Position = *req.Position
	} else {
		var count int64
		if err := h.db.Model(&models.MembershipTier{}).
			Where("organization_id = ?", viewer.Organization.ID).
			Count(&count).Error; err != nil {
			apierror.Internal(c, "count tiers", err)
			return
		}
		tier.Position = int(count)
	}

	if err := h.db.Create(&tier).Error; err != nil {
		apierror.Internal(c, "create tier", err)
		return
	}

	c.JSON(http.StatusCreated, NewTierResponse(&tier, nil))
}

func (h *Handler) find(c *gin.Context) (*models.MembershipTier, bool) {
	viewer := tenancy.GetViewer(c)
	var tier models.MembershipTier
	err := h.db.Where("id = ? AND organization_id = ?", c.Param("tierId"), viewer.Organization.ID).First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tier not found"})
		} else {
			apierror.Internal(c, "load tier", err)
		}
		return nil, false
	}
	return &tier, true
}

// Update updates a tier (admin or owner)
// @Summary Update a membership tier
// @Tags tiers
// @Accept json
// @Produce json
// @Param tierId path string true "Tier ID"
// @Param request body UpdateTierRequest true "Tier fields"
// @Success 200 {object} TierResponse
// @Security BearerAuth
// @Router /t/tiers/{tierId} [put]
func (h *Handler) Update(c *gin.Context) {
	tier, ok := h.find(c)
	if !ok {
		return
	}

	var req UpdateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		tier.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		tier.Description = *req.Description
	}
	if req.PriceCents != nil {
		tier.PriceCents = *req.PriceCents
	}
	if req.Position != nil {
		tier.Position = *req.Position
	}
	if req.Active != nil {
		tier.Active = *req.Active
	}
	if req.StripePriceID != nil {
		tier.StripePriceID = *req.StripePriceID
	}

	if err := h.db.Save(tier).Error; err != nil {
		apierror.Internal(c, "update tier", err)
		return
	}

	c.JSON(http.StatusOK, NewTierResponse(tier, nil))
}

// Delete removes a tier nobody holds (admin or owner). Tiers with members
// must be deactivated instead.
// @Summary Delete a membership tier
// @Tags tiers
// @Produce json
// @Param tierId path string true "Tier ID"
// @Success 200 {object} map[string]string "Tier deleted"
// @Failure 409 {object} map[string]string "Tier has members"
// @Security BearerAuth
// @Router /t/tiers/{tierId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	tier, ok := h.find(c)
	if !ok {
		return
	}

	var holders int64
	if err := h.db.Model(&models.OrganizationMembership{}).Where("tier_id = ?", tier.ID).Count(&holders).Error; err != nil {
		apierror.Internal(c, "count tier members", err)
		return
	}
	if holders > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Tier has members; deactivate it instead"})
		return
	}

	if err := h.db.Delete(tier).Error; err != nil {
		apierror.Internal(c, "delete tier", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tier deleted"})
}

// RegisterRoutes registers tier routes on a tenant-scoped group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := tenancy.RequireRole(access.RoleAdmin)

	rg.GET("/tiers", h.List)
	rg.GET("/tiers/upgrades", h.Upgrades)
	rg.POST("/tiers", admin, h.Create)
	rg.PUT("/tiers/:tierId", admin, h.Update)
	rg.DELETE("/tiers/:tierId", admin, h.Delete)
}
