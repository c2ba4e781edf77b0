package channels

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/apierror"
	"github.com/mikepea/creatorhub/pkg/creatorhub/logger"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"github.com/mikepea/creatorhub/pkg/creatorhub/tenancy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreatePostRequest represents the request to create a post.
// Drafts are only visible to their author.
type CreatePostRequest struct {
	Title string `json:"title" binding:"max=200"`
	Body  string `json:"body" binding:"required,min=1,max=20000"`
	Draft bool   `json:"draft"`
}

// UpdatePostRequest represents the request to update a post
type UpdatePostRequest struct {
	Title     *string `json:"title" binding:"omitempty,max=200"`
	Body      *string `json:"body" binding:"omitempty,min=1,max=20000"`
	Published *bool   `json:"published"`
}

// PinRequest sets the pinned flag. Without a body the flag is toggled.
type PinRequest struct {
	Pinned *bool `json:"pinned"`
}

// PostResponse represents a post in API responses
type PostResponse struct {
	ID         uint   `json:"id"`
	ChannelID  uint   `json:"channel_id"`
	AuthorID   uint   `json:"author_id"`
	AuthorName string `json:"author_name"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Pinned     bool   `json:"pinned"`
	Published  bool   `json:"published"`
	CanModify  bool   `json:"can_modify"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func postResponse(p *models.Post, viewer *tenancy.Viewer) PostResponse {
	return PostResponse{
		ID:         p.ID,
		ChannelID:  p.ChannelID,
		AuthorID:   p.AuthorID,
		AuthorName: p.Author.PublicName(),
		Title:      p.Title,
		Body:       p.Body,
		Pinned:     p.Pinned,
		Published:  p.Published,
		CanModify:  viewer.UserID != 0 && access.CanModifyPost(viewer.Context(), p.Access()),
		CreatedAt:  p.CreatedAt.Format(timeFormat),
		UpdatedAt:  p.UpdatedAt.Format(timeFormat),
	}
}

// findPost loads :postId within the viewer's organization
func (h *Handler) findPost(c *gin.Context) (*models.Post, bool) {
	viewer := tenancy.GetViewer(c)

	postID, err := strconv.ParseUint(c.Param("postId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return nil, false
	}

	var post models.Post
	err = h.db.Preload("Author").
		Joins("JOIN channels ON channels.id = posts.channel_id AND channels.deleted_at IS NULL").
		Joins("JOIN communities ON communities.id = channels.community_id").
		Where("posts.id = ? AND communities.organization_id = ?", postID, viewer.Organization.ID).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		} else {
			apierror.Internal(c, "load post", err)
		}
		return nil, false
	}
	return &post, true
}

// ListPosts returns a channel's posts, pinned first. Viewers without access
// get the upgrade prompt.
// @Summary List posts in a channel
// @Tags channels
// @Produce json
// @Param channelId path int true "Channel ID"
// @Success 200 {array} PostResponse
// @Failure 403 {object} map[string]interface{} "Locked"
// @Router /t/channels/{channelId}/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	viewer := tenancy.GetViewer(c)
	ch, ok := h.findChannel(c)
	if !ok {
		return
	}

	if !access.CanAccessResource(ch.Access().Resource, viewer.Access(), viewer.IsOwner()) {
		h.locked(c, "Upgrade your membership to view this channel")
		return
	}

	var posts []models.Post
	err := h.db.Preload("Author").
		Where("channel_id = ?", ch.ID).
		Where("published = ? OR author_id = ?", true, viewer.UserID).
		Order("pinned DESC").Order("created_at DESC").Order("id DESC").
		Find(&posts).Error
	if err != nil {
		apierror.Internal(c, "list posts", err)
		return
	}

	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postResponse(&posts[i], viewer)
	}
	c.JSON(http.StatusOK, resp)
}

// CreatePost writes a post. Plain members can only post in discussion
// channels they can view.
// @Summary Create a post
// @Tags channels
// @Accept json
// @Produce json
// @Param channelId path int true "Channel ID"
// @Param request body CreatePostRequest true "Post"
// @Success 201 {object} PostResponse
// @Security BearerAuth
// @Router /t/channels/{channelId}/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	viewer := tenancy.GetViewer(c)
	ch, ok := h.findChannel(c)
	if !ok {
		return
	}

	rules := ch.Access()
	if !access.CanPostInChannel(rules, viewer.Access(), viewer.IsOwner()) {
		if !access.CanAccessResource(rules.Resource, viewer.Access(), viewer.IsOwner()) {
			h.locked(c, "Upgrade your membership to post in this channel")
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can post in this channel"})
		}
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post body cannot be empty"})
		return
	}

	post := models.Post{
		ChannelID: ch.ID,
		AuthorID:  viewer.UserID,
		Title:     strings.TrimSpace(req.Title),
		Body:      req.Body,
		Published: !req.Draft,
	}
	if err := h.db.Create(&post).Error; err != nil {
		apierror.Internal(c, "create post", err)
		return
	}
	// The post is saved; a missing author only blanks the name in the reply
	if err := h.db.First(&post.Author, viewer.UserID).Error; err != nil {
		logger.Ctx(c.Request.Context()).Warn("load post author",
			zap.Uint("post_id", post.ID),
			zap.Uint("user_id", viewer.UserID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusCreated, postResponse(&post, viewer))
}

// UpdatePost edits a post (author, moderator or above)
// @Summary Update a post
// @Tags channels
// @Accept json
// @Produce json
// @Param postId path int true "Post ID"
// @Param request body UpdatePostRequest true "Post fields"
// @Success 200 {object} PostResponse
// @Security BearerAuth
// @Router /t/posts/{postId} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	viewer := tenancy.GetViewer(c)
	post, ok := h.findPost(c)
	if !ok {
		return
	}
	if !access.CanModifyPost(viewer.Context(), post.Access()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot edit this post"})
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		post.Title = strings.TrimSpace(*req.Title)
		updates["title"] = post.Title
	}
	if req.Body != nil {
		if strings.TrimSpace(*req.Body) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Post body cannot be empty"})
			return
		}
		post.Body = *req.Body
		updates["body"] = post.Body
	}
	if req.Published != nil {
		post.Published = *req.Published
		updates["published"] = post.Published
	}

	if len(updates) > 0 {
		if err := h.db.Model(post).Updates(updates).Error; err != nil {
			apierror.Internal(c, "update post", err)
			return
		}
	}

	c.JSON(http.StatusOK, postResponse(post, viewer))
}

// DeletePost removes a post (author, moderator or above)
// @Summary Delete a post
// @Tags channels
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} map[string]string "Post deleted"
// @Security BearerAuth
// @Router /t/posts/{postId} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	viewer := tenancy.GetViewer(c)
	post, ok := h.findPost(c)
	if !ok {
		return
	}
	if !access.CanModifyPost(viewer.Context(), post.Access()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot delete this post"})
		return
	}

	if err := h.db.Delete(&models.Post{}, post.ID).Error; err != nil {
		apierror.Internal(c, "delete post", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// PinPost pins or unpins a post (moderator or above)
// @Summary Pin a post
// @Tags channels
// @Accept json
// @Produce json
// @Param postId path int true "Post ID"
// @Param request body PinRequest false "Pinned flag"
// @Success 200 {object} PostResponse
// @Security BearerAuth
// @Router /t/posts/{postId}/pin [post]
func (h *Handler) PinPost(c *gin.Context) {
	viewer := tenancy.GetViewer(c)
	post, ok := h.findPost(c)
	if !ok {
		return
	}

	var req PinRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	pinned := !post.Pinned
	if req.Pinned != nil {
		pinned = *req.Pinned
	}

	if err := h.db.Model(post).Update("pinned", pinned).Error; err != nil {
		apierror.Internal(c, "pin post", err)
		return
	}
	post.Pinned = pinned

	c.JSON(http.StatusOK, postResponse(post, viewer))
}

// PermissionsResponse describes what the viewer may do in the organization
type PermissionsResponse struct {
	Role         string              `json:"role"`
	RoleLabel    string              `json:"role_label"`
	IsOwner      bool                `json:"is_owner"`
	IsMember     bool                `json:"is_member"`
	Status       string              `json:"status,omitempty"`
	TierID       string              `json:"tier_id,omitempty"`
	Capabilities []access.Capability `json:"capabilities"`
}

// Permissions returns the viewer's role and capability set
// @Summary Get my permissions
// @Tags channels
// @Produce json
// @Success 200 {object} PermissionsResponse
// @Router /t/me/permissions [get]
func (h *Handler) Permissions(c *gin.Context) {
	viewer := tenancy.GetViewer(c)
	role := viewer.Role()

	resp := PermissionsResponse{
		Role:         role.String(),
		RoleLabel:    role.Label(),
		IsOwner:      viewer.IsOwner(),
		IsMember:     viewer.Access().Active(),
		TierID:       viewer.TierID(),
		Capabilities: []access.Capability{},
	}
	if viewer.Membership != nil {
		resp.Status = string(viewer.Membership.Status)
	}
	// Capabilities need a standing membership; a lapsed moderator moderates nothing
	if viewer.IsOwner() || resp.IsMember {
		resp.Capabilities = access.CapabilitiesFor(role).List()
	}

	c.JSON(http.StatusOK, resp)
}
