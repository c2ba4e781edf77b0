package livestreams

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/apierror"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"github.com/mikepea/creatorhub/pkg/creatorhub/tenancy"
	"github.com/mikepea/creatorhub/pkg/creatorhub/tiers"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const timeFormat = "2006-01-02T15:04:05Z"

// liveFirst orders streams that are on air ahead of the rest
const liveFirst = "CASE WHEN status = 'LIVE' THEN 0 ELSE 1 END"

// Handler handles livestream requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new livestreams handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateLivestreamRequest represents the request to schedule a livestream
type CreateLivestreamRequest struct {
	Title         string    `json:"title" binding:"required,min=1,max=200"`
	Description   string    `json:"description" binding:"max=5000"`
	ScheduledAt   time.Time `json:"scheduled_at" binding:"required"`
	IsPublic      bool      `json:"is_public"`
	AccessTierIDs []string  `json:"access_tier_ids"`
	PlaybackID    string    `json:"playback_id"`
}

// StatusRequest moves a livestream to a new status
type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=SCHEDULED LIVE ENDED"`
}

// LivestreamResponse represents a livestream as seen by the current viewer.
// The playback id is withheld while locked.
type LivestreamResponse struct {
	ID            uint     `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ScheduledAt   string   `json:"scheduled_at"`
	Status        string   `json:"status"`
	IsPublic      bool     `json:"is_public"`
	AccessTierIDs []string `json:"access_tier_ids"`
	PlaybackID    string   `json:"playback_id,omitempty"`
	Locked        bool     `json:"locked"`
}

func livestreamResponse(l *models.Livestream, viewer *tenancy.Viewer) LivestreamResponse {
	canView := access.CanAccessResource(l.Access(), viewer.Access(), viewer.IsOwner())
	tierIDs := []string(l.AccessTierIDs)
	if tierIDs == nil {
		tierIDs = []string{}
	}
	resp := LivestreamResponse{
		ID:            l.ID,
		Title:         l.Title,
		Description:   l.Description,
		ScheduledAt:   l.ScheduledAt.UTC().Format(timeFormat),
		Status:        string(l.Status),
		IsPublic:      l.IsPublic,
		AccessTierIDs: tierIDs,
		Locked:        !canView,
	}
	if canView {
		resp.PlaybackID = l.PlaybackID
	}
	return resp
}

func (h *Handler) find(c *gin.Context) (*models.Livestream, bool) {
	viewer := tenancy.GetViewer(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid livestream ID"})
		return nil, false
	}

	var stream models.Livestream
	if err := h.db.Where("id = ? AND organization_id = ?", id, viewer.Organization.ID).First(&stream).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Livestream not found"})
		} else {
			apierror.Internal(c, "load livestream", err)
		}
		return nil, false
	}
	return &stream, true
}

// List returns livestreams, live ones first, then by schedule. Ended streams
// are included only with ?include_ended=true.
// @Summary List livestreams
// @Tags livestreams
// @Produce json
// @Param include_ended query bool false "Include ended streams"
// @Success 200 {array} LivestreamResponse
// @Router /t/livestreams [get]
func (h *Handler) List(c *gin.Context) {
	viewer := tenancy.GetViewer(c)

	q := h.db.Where("organization_id = ?", viewer.Organization.ID)
	if c.Query("include_ended") != "true" {
		q = q.Where("status <> ?", models.LivestreamEnded)
	}

	var streams []models.Livestream
	err := q.Order(liveFirst).Order("scheduled_at").Order("id").Find(&streams).Error
	if err != nil {
		apierror.Internal(c, "list livestreams", err)
		return
	}

	resp := make([]LivestreamResponse, len(streams))
	for i := range streams {
		resp[i] = livestreamResponse(&streams[i], viewer)
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns a livestream. Viewers without access get the upgrade prompt.
// @Summary Get a livestream
// @Tags livestreams
// @Produce json
// @Param id path int true "Livestream ID"
// @Success 200 {object} LivestreamResponse
// @Failure 403 {object} map[string]interface{} "Locked"
// @Router /t/livestreams/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	viewer := tenancy.GetViewer(c)
	stream, ok := h.find(c)
	if !ok {
		return
	}

	resp := livestreamResponse(stream, viewer)
	if resp.Locked {
		options, err := tiers.UpgradeOptions(h.db, viewer)
		if err != nil {
			apierror.Internal(c, "load upgrade options", err)
			return
		}
		apierror.Locked(c, "Upgrade your membership to watch this livestream", options)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Create schedules a livestream (admin or owner)
// @Summary Schedule a livestream
// @Tags livestreams
// @Accept json
// @Produce json
// @Param request body CreateLivestreamRequest true "Livestream details"
// @Success 201 {object} LivestreamResponse
// @Security BearerAuth
// @Router /t/livestreams [post]
func (h *Handler) Create(c *gin.Context) {
	viewer := tenancy.GetViewer(c)

	var req CreateLivestreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := tiers.CheckIDs(h.db, viewer.Organization.ID, req.AccessTierIDs); err != nil {
		if errors.Is(err, tiers.ErrUnknownTier) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			apierror.Internal(c, "check tiers", err)
		}
		return
	}

	stream := models.Livestream{
		OrganizationID: viewer.Organization.ID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		ScheduledAt:    req.ScheduledAt.UTC(),
		Status:         models.LivestreamScheduled,
		IsPublic:       req.IsPublic,
		AccessTierIDs:  datatypes.JSONSlice[string](req.AccessTierIDs),
		PlaybackID:     req.PlaybackID,
	}
	if err := h.db.Create(&stream).Error; err != nil {
		apierror.Internal(c, "create livestream", err)
		return
	}

	c.JSON(http.StatusCreated, livestreamResponse(&stream, viewer))
}

// UpdateStatus moves a livestream forward (admin or owner)
// @Summary Change livestream status
// @Tags livestreams
// @Accept json
// @Produce json
// @Param id path int true "Livestream ID"
// @Param request body StatusRequest true "New status"
// @Success 200 {object} LivestreamResponse
// @Failure 409 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /t/livestreams/{id}/status [post]
func (h *Handler) UpdateStatus(c *gin.Context) {
	stream, ok := h.find(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	next := models.LivestreamStatus(req.Status)
	if !stream.Status.CanTransitionTo(next) {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot move livestream from " + string(stream.Status) + " to " + req.Status})
		return
	}

	if err := h.db.Model(&models.Livestream{}).Where("id = ?", stream.ID).Update("status", next).Error; err != nil {
		apierror.Internal(c, "update livestream status", err)
		return
	}
	stream.Status = next

	c.JSON(http.StatusOK, livestreamResponse(stream, tenancy.GetViewer(c)))
}

// RegisterRoutes registers livestream routes on a tenant-scoped group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	enabled := tenancy.RequireFeature("Livestreams", func(f models.FeatureSettings) *bool { return f.Livestreams })
	admin := tenancy.RequireRole(access.RoleAdmin)

	streams := rg.Group("/livestreams", enabled)
	streams.GET("", h.List)
	streams.POST("", admin, h.Create)
	streams.GET("/:id", h.Get)
	streams.POST("/:id/status", admin, h.UpdateStatus)
}
