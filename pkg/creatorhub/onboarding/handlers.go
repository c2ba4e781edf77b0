package onboarding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/apierror"
	"github.com/mikepea/creatorhub/pkg/creatorhub/auth"
	"github.com/mikepea/creatorhub/pkg/creatorhub/logger"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"github.com/mikepea/creatorhub/pkg/creatorhub/organizations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler serves the onboarding and tour endpoints
type Handler struct {
	db    *gorm.DB
	guard SessionGuard
}

// NewHandler creates a new onboarding handler. guard dedupes tour dismissals
// within a session.
func NewHandler(db *gorm.DB, guard SessionGuard) *Handler {
	return &Handler{db: db, guard: guard}
}

// CompleteResponse is returned after onboarding succeeds
type CompleteResponse struct {
	OrganizationID   uint   `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	OrganizationSlug string `json:"organization_slug"`
}

// TourResponse describes the guided tour for the current user
type TourResponse struct {
	Steps     []TourStep `json:"steps"`
	Dismissed bool       `json:"dismissed"`
}

// DismissResponse reports the outcome of a dismissal
type DismissResponse struct {
	Dismissed bool `json:"dismissed"`
	Recorded  bool `json:"recorded"`
}

// Complete replays the wizard over the submitted data and completes it.
// A step whose predicate fails is reported with its name.
// @Summary Complete onboarding
// @Tags onboarding
// @Accept json
// @Produce json
// @Param request body Data true "Wizard data"
// @Success 201 {object} CompleteResponse
// @Failure 400 {object} map[string]string "Invalid step"
// @Failure 409 {object} map[string]string "Already onboarded"
// @Security BearerAuth
// @Router /onboarding/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var data Data
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	completer := NewStoreCompleter(h.db, userID)
	w := NewWizard(completer)
	*w.Data() = data
	for !w.IsFinal() {
		if !w.Next() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Step %q is incomplete", w.Step()),
				"step":  w.Step(),
			})
			return
		}
	}

	if err := w.Complete(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyOnboarded):
			c.JSON(http.StatusConflict, gin.H{"error": "You have already completed onboarding"})
		case organizations.IsValidationError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": w.Error()})
		default:
			apierror.Internal(c, "complete onboarding", err)
		}
		return
	}

	org := completer.Organization
	c.JSON(http.StatusCreated, CompleteResponse{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		OrganizationSlug: org.Slug,
	})
}

// Tour returns the tour steps and whether the user dismissed the tour
// @Summary Get the guided tour
// @Tags onboarding
// @Produce json
// @Success 200 {object} TourResponse
// @Security BearerAuth
// @Router /tour [get]
func (h *Handler) Tour(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			apierror.Internal(c, "load user", err)
		}
		return
	}

	c.JSON(http.StatusOK, TourResponse{Steps: TourSteps, Dismissed: user.TourDismissedAt != nil})
}

// DismissTour records that the user dismissed the tour. The flag is written at
// most once per session; a failed write is logged and not retried.
// @Summary Dismiss the guided tour
// @Tags onboarding
// @Produce json
// @Success 200 {object} DismissResponse
// @Security BearerAuth
// @Router /tour/dismiss [post]
func (h *Handler) DismissTour(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := auth.GetUserID(c)
	sessionID, _ := auth.GetSessionID(c)

	first, err := h.guard.First(ctx, fmt.Sprintf("tour-dismissed:%d:%s", userID, sessionID))
	if err != nil {
		// Without the guard we may write twice, which is harmless
		logger.Ctx(ctx).Warn("session guard unavailable", zap.Error(err))
		first = true
	}
	if !first {
		c.JSON(http.StatusOK, DismissResponse{Dismissed: true})
		return
	}

	tour := NewTour(nil, DismisserFunc(func(ctx context.Context) error {
		return h.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ? AND tour_dismissed_at IS NULL", userID).
			Update("tour_dismissed_at", time.Now().UTC()).Error
	}), "")

	recorded := true
	if err := tour.Dismiss(ctx); err != nil {
		logger.Ctx(ctx).Warn("record tour dismissal", zap.Uint("user_id", userID), zap.Error(err))
		recorded = false
	}

	c.JSON(http.StatusOK, DismissResponse{Dismissed: tour.Dismissed(), Recorded: recorded})
}

// RegisterRoutes registers onboarding routes. The group must require
// authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/onboarding/complete", h.Complete)
	rg.GET("/tour", h.Tour)
	rg.POST("/tour/dismiss", h.DismissTour)
}
