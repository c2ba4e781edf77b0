package tenancy

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/apierror"
	"github.com/mikepea/creatorhub/pkg/creatorhub/auth"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"gorm.io/gorm"
)

// ContextKeyViewer is the key for the request's Viewer in gin context
const ContextKeyViewer = "viewer"

// Viewer is who is looking at the current organization. UserID is zero for
// visitors; Membership is nil when the user has not joined.
type Viewer struct {
	UserID       uint
	Organization *models.Organization
	Membership   *models.OrganizationMembership
}

// IsOwner reports whether the viewer owns the organization
func (v *Viewer) IsOwner() bool {
	return v.Organization != nil && v.Organization.IsOwner(v.UserID)
}

// Access returns the viewer's membership as the evaluator sees it
func (v *Viewer) Access() *access.Membership {
	return v.Membership.Access()
}

// Role returns the viewer's rank. The owner always ranks as owner, whatever
// the stored membership says; visitors rank as members.
func (v *Viewer) Role() access.Role {
	if v.IsOwner() {
		return access.RoleOwner
	}
	if v.Membership == nil {
		return access.RoleMember
	}
	return v.Membership.Role.Rank()
}

// Context returns the viewer for role checks
func (v *Viewer) Context() access.Context {
	return access.Context{UserID: v.UserID, Role: v.Role()}
}

// TierID returns the viewer's current tier id, empty for the free tier
func (v *Viewer) TierID() string {
	if v.Membership == nil || v.Membership.TierID == nil {
		return ""
	}
	return *v.Membership.TierID
}

// ViewerMiddleware loads the viewer's membership in the resolved organization.
// It must run after the tenant middleware and OptionalAuth.
func ViewerMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, ok := GetOrganization(c)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			c.Abort()
			return
		}

		viewer := &Viewer{Organization: org}
		if userID, ok := auth.GetUserID(c); ok {
			viewer.UserID = userID

			var membership models.OrganizationMembership
			err := db.Where("organization_id = ? AND user_id = ?", org.ID, userID).First(&membership).Error
			switch {
			case err == nil:
				viewer.Membership = &membership
			case !errors.Is(err, gorm.ErrRecordNotFound):
				apierror.Internal(c, "load membership", err)
				c.Abort()
				return
			}
		}

		c.Set(ContextKeyViewer, viewer)
		c.Next()
	}
}

// GetViewer returns the request's viewer. Without ViewerMiddleware it
// returns an anonymous viewer with no organization.
func GetViewer(c *gin.Context) *Viewer {
	if v, exists := c.Get(ContextKeyViewer); exists {
		if viewer, ok := v.(*Viewer); ok {
			return viewer
		}
	}
	return &Viewer{}
}

// RequireRole rejects viewers ranked below minimum
func RequireRole(minimum access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := GetViewer(c)
		if viewer.UserID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		if !viewer.IsOwner() && !viewer.Membership.Access().Active() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Active membership required"})
			c.Abort()
			return
		}
		if !access.HasRole(viewer.Context(), minimum) {
			c.JSON(http.StatusForbidden, gin.H{"error": minimum.Label() + " access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
