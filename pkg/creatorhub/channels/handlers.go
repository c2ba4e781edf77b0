package channels

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

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

// Handler handles community channel and post requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new channels handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateChannelRequest represents the request to create a channel
type CreateChannelRequest struct {
	Name          string   `json:"name" binding:"required,min=1,max=80"`
	Description   string   `json:"description" binding:"max=500"`
	Type          string   `json:"type" binding:"omitempty,oneof=DISCUSSION ANNOUNCEMENTS EVENTS RESOURCES LIVESTREAM"`
	IsPublic      bool     `json:"is_public"`
	AccessTierIDs []string `json:"access_tier_ids"`
	Position      *int     `json:"position"`
}

// UpdateChannelRequest represents the request to update a channel.
// A non-nil access_tier_ids replaces the list; an empty list opens the
// channel to every active member.
type UpdateChannelRequest struct {
	Name          *string   `json:"name" binding:"omitempty,min=1,max=80"`
	Description   *string   `json:"description" binding:"omitempty,max=500"`
	Type          *string   `json:"type" binding:"omitempty,oneof=DISCUSSION ANNOUNCEMENTS EVENTS RESOURCES LIVESTREAM"`
	IsPublic      *bool     `json:"is_public"`
	AccessTierIDs *[]string `json:"access_tier_ids"`
	Position      *int      `json:"position"`
}

// ChannelResponse represents a channel as seen by the current viewer
type ChannelResponse struct {
	ID            uint     `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Type          string   `json:"type"`
	Icon          string   `json:"icon"`
	IsPublic      bool     `json:"is_public"`
	AccessTierIDs []string `json:"access_tier_ids"`
	Position      int      `json:"position"`
	CanView       bool     `json:"can_view"`
	CanPost       bool     `json:"can_post"`
	Locked        bool     `json:"locked"`
}

func channelResponse(ch *models.Channel, viewer *tenancy.Viewer) ChannelResponse {
	rules := ch.Access()
	canView := access.CanAccessResource(rules.Resource, viewer.Access(), viewer.IsOwner())
	tierIDs := []string(ch.AccessTierIDs)
	if tierIDs == nil {
		tierIDs = []string{}
	}
	return ChannelResponse{
		ID:            ch.ID,
		Name:          ch.Name,
		Description:   ch.Description,
		Type:          string(ch.Type),
		Icon:          ch.Type.Icon(),
		IsPublic:      ch.IsPublic,
		AccessTierIDs: tierIDs,
		Position:      ch.Position,
		CanView:       canView,
		CanPost:       access.CanPostInChannel(rules, viewer.Access(), viewer.IsOwner()),
		Locked:        !canView,
	}
}

// community returns the organization's community, creating it when the
// organization predates one
func (h *Handler) community(org *models.Organization) (*models.Community, error) {
	community := models.Community{OrganizationID: org.ID}
	err := h.db.Where(models.Community{OrganizationID: org.ID}).
		Attrs(models.Community{Name: org.Name}).
		FirstOrCreate(&community).Error
	if err != nil {
		return nil, err
	}
	return &community, nil
}

// findChannel loads :channelId within the viewer's organization. It writes
// the error response itself and returns ok=false on failure.
func (h *Handler) findChannel(c *gin.Context) (*models.Channel, bool) {
	viewer := tenancy.GetViewer(c)

	channelID, err := strconv.ParseUint(c.Param("channelId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel ID"})
		return nil, false
	}

	var ch models.Channel
	err = h.db.Joins("JOIN communities ON communities.id = channels.community_id").
		Where("channels.id = ? AND communities.organization_id = ?", channelID, viewer.Organization.ID).
		First(&ch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		} else {
			apierror.Internal(c, "load channel", err)
		}
		return nil, false
	}
	return &ch, true
}

// locked writes the upgrade prompt for content the viewer cannot open
func (h *Handler) locked(c *gin.Context, msg string) {
	options, err := tiers.UpgradeOptions(h.db, tenancy.GetViewer(c))
	if err != nil {
		apierror.Internal(c, "load upgrade options", err)
		return
	}
	apierror.Locked(c, msg, options)
}

// checkTiers validates an access list, writing a 400 on unknown tiers
func (h *Handler) checkTiers(c *gin.Context, ids []string) bool {
	err := tiers.CheckIDs(h.db, tenancy.GetViewer(c).Organization.ID, ids)
	if err == nil {
		return true
	}
	if errors.Is(err, tiers.ErrUnknownTier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	} else {
		apierror.Internal(c, "check tiers", err)
	}
	return false
}

// List returns the community's channels with the viewer's access to each.
// Locked channels are listed so members, lapsed ones included, can be offered
// an upgrade; visitors only see them when the organization enables public
// preview.
// @Summary List channels
// @Tags channels
// @Produce json
// @Success 200 {array} ChannelResponse
// @Router /t/channels [get]
func (h *Handler) List(c *gin.Context) {
	viewer := tenancy.GetViewer(c)

	var channels []models.Channel
	err := h.db.Joins("JOIN communities ON communities.id = channels.community_id").
		Where("communities.organization_id = ?", viewer.Organization.ID).
		Order("channels.position").Order("channels.id").
		Find(&channels).Error
	if err != nil {
		apierror.Internal(c, "list channels", err)
		return
	}

	settings := viewer.Organization.ResolvedSettings()
	showLocked := viewer.IsOwner() || viewer.Membership != nil || models.Enabled(settings.Community.PublicPreview)

	resp := make([]ChannelResponse, 0, len(channels))
	for i := range channels {
		r := channelResponse(&channels[i], viewer)
		if r.Locked && !showLocked {
			continue
		}
		resp = append(resp, r)
	}
	c.JSON(http.StatusOK, resp)
}

// Create creates a channel (admin or owner)
// @Summary Create a channel
// @Tags channels
// @Accept json
// @Produce json
// @Param request body CreateChannelRequest true "Channel details"
// @Success 201 {object} ChannelResponse
// @Security BearerAuth
// @Router /t/channels [post]
func (h *Handler) Create(c *gin.Context) {
	viewer := tenancy.GetViewer(c)

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.checkTiers(c, req.AccessTierIDs) {
		return
	}

	community, err := h.community(viewer.Organization)
	if err != nil {
		apierror.Internal(c, "load community", err)
		return
	}

	ch := models.Channel{
		CommunityID:   community.ID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Type:          access.ChannelType(req.Type),
		IsPublic:      req.IsPublic,
		AccessTierIDs: datatypes.JSONSlice[string](req.AccessTierIDs),
	}
	if ch.Type == "" {
		ch.Type = access.ChannelDiscussion
	}
	if req.Position != nil {
		ch.Position = *req.Position
	} else {
		var count int64
		if err := h.db.Model(&models.Channel{}).Where("community_id = ?", community.ID).Count(&count).Error; err != nil {
			apierror.Internal(c, "count channels", err)
			return
		}
		ch.Position = int(count)
	}

	if err := h.db.Create(&ch).Error; err != nil {
		apierror.Internal(c, "create channel", err)
		return
	}

	c.JSON(http.StatusCreated, channelResponse(&ch, viewer))
}

// Update updates a channel (admin or owner)
// @Summary Update a channel
// @Tags channels
// @Accept json
// @Produce json
// @Param channelId path int true "Channel ID"
// @Param request body UpdateChannelRequest true "Channel fields"
// @Success 200 {object} ChannelResponse
// @Security BearerAuth
// @Router /t/channels/{channelId} [put]
func (h *Handler) Update(c *gin.Context) {
	ch, ok := h.findChannel(c)
	if !ok {
		return
	}

	var req UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		ch.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		ch.Description = *req.Description
	}
	if req.Type != nil {
		ch.Type = access.ChannelType(*req.Type)
	}
	if req.IsPublic != nil {
		ch.IsPublic = *req.IsPublic
	}
	if req.AccessTierIDs != nil {
		if !h.checkTiers(c, *req.AccessTierIDs) {
			return
		}
		ch.AccessTierIDs = datatypes.JSONSlice[string](*req.AccessTierIDs)
	}
	if req.Position != nil {
		ch.Position = *req.Position
	}

	if err := h.db.Save(ch).Error; err != nil {
		apierror.Internal(c, "update channel", err)
		return
	}

	c.JSON(http.StatusOK, channelResponse(ch, tenancy.GetViewer(c)))
}

// Delete removes a channel and its posts (admin or owner)
// @Summary Delete a channel
// @Tags channels
// @Produce json
// @Param channelId path int true "Channel ID"
// @Success 200 {object} map[string]string "Channel deleted"
// @Security BearerAuth
// @Router /t/channels/{channelId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	ch, ok := h.findChannel(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", ch.ID).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		return tx.Delete(ch).Error
	})
	if err != nil {
		apierror.Internal(c, "delete channel", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Channel deleted"})
}

// RegisterRoutes registers channel, post and permission routes on a
// tenant-scoped group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := tenancy.RequireRole(access.RoleAdmin)
	moderator := tenancy.RequireRole(access.RoleModerator)
	member := tenancy.RequireRole(access.RoleMember)

	rg.GET("/channels", h.List)
	rg.POST("/channels", admin, h.Create)
	rg.PUT("/channels/:channelId", admin, h.Update)
	rg.DELETE("/channels/:channelId", admin, h.Delete)

	rg.GET("/channels/:channelId/posts", h.ListPosts)
	rg.POST("/channels/:channelId/posts", member, h.CreatePost)
	rg.PUT("/posts/:postId", member, h.UpdatePost)
	rg.DELETE("/posts/:postId", member, h.DeletePost)
	rg.POST("/posts/:postId/pin", moderator, h.PinPost)

	rg.GET("/me/permissions", h.Permissions)
}
