package courses

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

// Handler handles course and lesson requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new courses handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateCourseRequest represents the request to create a course
type CreateCourseRequest struct {
	Title         string   `json:"title" binding:"required,min=1,max=200"`
	Description   string   `json:"description" binding:"max=5000"`
	AccessType    string   `json:"access_type" binding:"omitempty,oneof=FREE TIER"`
	AccessTierIDs []string `json:"access_tier_ids"`
	Published     bool     `json:"published"`
}

// UpdateCourseRequest represents the request to update a course
type UpdateCourseRequest struct {
	Title         *string   `json:"title" binding:"omitempty,min=1,max=200"`
	Description   *string   `json:"description" binding:"omitempty,max=5000"`
	AccessType    *string   `json:"access_type" binding:"omitempty,oneof=FREE TIER"`
	AccessTierIDs *[]string `json:"access_tier_ids"`
	Published     *bool     `json:"published"`
}

// CreateLessonRequest represents the request to add a lesson
type CreateLessonRequest struct {
	Title           string `json:"title" binding:"required,min=1,max=200"`
	Description     string `json:"description" binding:"max=5000"`
	Position        *int   `json:"position"`
	VideoAssetID    string `json:"video_asset_id"`
	DurationSeconds int    `json:"duration_seconds" binding:"min=0"`
	IsFreePreview   bool   `json:"is_free_preview"`
}

// LessonResponse represents a lesson. Video details are withheld while locked.
type LessonResponse struct {
	ID              uint   `json:"id"`
	CourseID        uint   `json:"course_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Position        int    `json:"position"`
	DurationSeconds int    `json:"duration_seconds"`
	IsFreePreview   bool   `json:"is_free_preview"`
	VideoAssetID    string `json:"video_asset_id,omitempty"`
	Locked          bool   `json:"locked"`
}

// CourseResponse represents a course as seen by the current viewer
type CourseResponse struct {
	ID             uint                 `json:"id"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	AccessType     string               `json:"access_type"`
	AccessTierIDs  []string             `json:"access_tier_ids"`
	Published      bool                 `json:"published"`
	LessonCount    int                  `json:"lesson_count"`
	CanView        bool                 `json:"can_view"`
	Locked         bool                 `json:"locked"`
	Lessons        []LessonResponse     `json:"lessons,omitempty"`
	UpgradeOptions []tiers.TierResponse `json:"upgrade_options,omitempty"`
}

func courseResponse(course *models.Course, viewer *tenancy.Viewer) CourseResponse {
	canView := access.CanAccessResource(course.Access(), viewer.Access(), viewer.IsOwner())
	tierIDs := []string(course.AccessTierIDs)
	if tierIDs == nil {
		tierIDs = []string{}
	}
	return CourseResponse{
		ID:            course.ID,
		Title:         course.Title,
		Description:   course.Description,
		AccessType:    string(course.AccessType),
		AccessTierIDs: tierIDs,
		Published:     course.Published,
		LessonCount:   len(course.Lessons),
		CanView:       canView,
		Locked:        !canView,
	}
}

func lessonResponse(course *models.Course, lesson *models.Lesson, viewer *tenancy.Viewer) LessonResponse {
	canView := access.CanViewLesson(course.Access(), lesson.Access(), viewer.Access(), viewer.IsOwner())
	resp := LessonResponse{
		ID:              lesson.ID,
		CourseID:        lesson.CourseID,
		Title:           lesson.Title,
		Description:     lesson.Description,
		Position:        lesson.Position,
		DurationSeconds: lesson.DurationSeconds,
		IsFreePreview:   lesson.IsFreePreview,
		Locked:          !canView,
	}
	if canView {
		resp.VideoAssetID = lesson.VideoAssetID
	}
	return resp
}

// canManage reports whether the viewer may see drafts and edit courses
func canManage(viewer *tenancy.Viewer) bool {
	if !viewer.IsOwner() && !viewer.Access().Active() {
		return false
	}
	return access.HasRole(viewer.Context(), access.RoleAdmin)
}

func (h *Handler) findCourse(c *gin.Context) (*models.Course, bool) {
	viewer := tenancy.GetViewer(c)

	courseID, err := strconv.ParseUint(c.Param("courseId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return nil, false
	}

	var course models.Course
	err = h.db.Preload("Lessons", func(db *gorm.DB) *gorm.DB {
		return db.Order("position").Order("id")
	}).Where("id = ? AND organization_id = ?", courseID, viewer.Organization.ID).First(&course).Error
	if err == nil && !course.Published && !canManage(viewer) {
		err = gorm.ErrRecordNotFound
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		} else {
			apierror.Internal(c, "load course", err)
		}
		return nil, false
	}
	return &course, true
}

func (h *Handler) findLesson(c *gin.Context) (*models.Lesson, bool) {
	viewer := tenancy.GetViewer(c)

	lessonID, err := strconv.ParseUint(c.Param("lessonId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lesson ID"})
		return nil, false
	}

	var lesson models.Lesson
	err = h.db.Preload("Course").
		Joins("JOIN courses ON courses.id = lessons.course_id AND courses.deleted_at IS NULL").
		Where("lessons.id = ? AND courses.organization_id = ?", lessonID, viewer.Organization.ID).
		First(&lesson).Error
	if err == nil && !lesson.Course.Published && !canManage(viewer) {
		err = gorm.ErrRecordNotFound
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lesson not found"})
		} else {
			apierror.Internal(c, "load lesson", err)
		}
		return nil, false
	}
	return &lesson, true
}

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

// List returns the organization's courses. Drafts are only listed for admins.
// @Summary List courses
// @Tags courses
// @Produce json
// @Success 200 {array} CourseResponse
// @Router /t/courses [get]
func (h *Handler) List(c *gin.Context) {
	viewer := tenancy.GetViewer(c)

	q := h.db.Preload("Lessons").Where("organization_id = ?", viewer.Organization.ID)
	if !canManage(viewer) {
		q = q.Where("published = ?", true)
	}

	var courses []models.Course
	if err := q.Order("created_at DESC").Order("id DESC").Find(&courses).Error; err != nil {
		apierror.Internal(c, "list courses", err)
		return
	}

	resp := make([]CourseResponse, len(courses))
	for i := range courses {
		resp[i] = courseResponse(&courses[i], viewer)
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns a course with its lessons. Locked courses still list their
// lessons, each flagged, with upgrade options attached.
// @Summary Get a course
// @Tags courses
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} CourseResponse
// @Router /t/courses/{courseId} [get]
func (h *Handler) Get(c *gin.Context) {
	viewer := tenancy.GetViewer(c)
	course, ok := h.findCourse(c)
	if !ok {
		return
	}

	resp := courseResponse(course, viewer)
	resp.Lessons = make([]LessonResponse, len(course.Lessons))
	for i := range course.Lessons {
		resp.Lessons[i] = lessonResponse(course, &course.Lessons[i], viewer)
	}
	if resp.Locked {
		options, err := tiers.UpgradeOptions(h.db, viewer)
		if err != nil {
			apierror.Internal(c, "load upgrade options", err)
			return
		}
		resp.UpgradeOptions = options
	}

	c.JSON(http.StatusOK, resp)
}

// Create creates a course (admin or owner)
// @Summary Create a course
// @Tags courses
// @Accept json
// @Produce json
// @Param request body CreateCourseRequest true "Course details"
// @Success 201 {object} CourseResponse
// @Security BearerAuth
// @Router /t/courses [post]
func (h *Handler) Create(c *gin.Context) {
	viewer := tenancy.GetViewer(c)

	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.checkTiers(c, req.AccessTierIDs) {
		return
	}

	course := models.Course{
		OrganizationID: viewer.Organization.ID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		AccessType:     access.CourseAccess(req.AccessType),
		AccessTierIDs:  datatypes.JSONSlice[string](req.AccessTierIDs),
		Published:      req.Published,
	}
	if course.AccessType == "" {
		course.AccessType = access.CourseFree
	}

	if err := h.db.Create(&course).Error; err != nil {
		apierror.Internal(c, "create course", err)
		return
	}

	c.JSON(http.StatusCreated, courseResponse(&course, viewer))
}

// Update updates a course (admin or owner)
// @Summary Update a course
// @Tags courses
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param request body UpdateCourseRequest true "Course fields"
// @Success 200 {object} CourseResponse
// @Security BearerAuth
// @Router /t/courses/{courseId} [put]
func (h *Handler) Update(c *gin.Context) {
	course, ok := h.findCourse(c)
	if !ok {
		return
	}

	var req UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
		updates["title"] = course.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
		updates["description"] = course.Description
	}
	if req.AccessType != nil {
		course.AccessType = access.CourseAccess(*req.AccessType)
		updates["access_type"] = course.AccessType
	}
	if req.AccessTierIDs != nil {
		if !h.checkTiers(c, *req.AccessTierIDs) {
			return
		}
		course.AccessTierIDs = datatypes.JSONSlice[string](*req.AccessTierIDs)
		updates["access_tier_ids"] = course.AccessTierIDs
	}
	if req.Published != nil {
		course.Published = *req.Published
		updates["published"] = course.Published
	}

	if len(updates) > 0 {
		if err := h.db.Model(&models.Course{}).Where("id = ?", course.ID).Updates(updates).Error; err != nil {
			apierror.Internal(c, "update course", err)
			return
		}
	}

	c.JSON(http.StatusOK, courseResponse(course, tenancy.GetViewer(c)))
}

// Delete removes a course and its lessons (admin or owner)
// @Summary Delete a course
// @Tags courses
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} map[string]string "Course deleted"
// @Security BearerAuth
// @Router /t/courses/{courseId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	course, ok := h.findCourse(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Course{}, course.ID).Error
	})
	if err != nil {
		apierror.Internal(c, "delete course", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course deleted"})
}

// AddLesson appends a lesson to a course (admin or owner)
// @Summary Add a lesson
// @Tags courses
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param request body CreateLessonRequest true "Lesson details"
// @Success 201 {object} LessonResponse
// @Security BearerAuth
// @Router /t/courses/{courseId}/lessons [post]
func (h *Handler) AddLesson(c *gin.Context) {
	course, ok := h.findCourse(c)
	if !ok {
		return
	}

	var req CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lesson := models.Lesson{
		CourseID:        course.ID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Position:        len(course.Lessons),
		VideoAssetID:    req.VideoAssetID,
		DurationSeconds: req.DurationSeconds,
		IsFreePreview:   req.IsFreePreview,
	}
	if req.Position != nil {
		lesson.Position = *req.Position
	}

	if err := h.db.Create(&lesson).Error; err != nil {
		apierror.Internal(c, "create lesson", err)
		return
	}

	c.JSON(http.StatusCreated, lessonResponse(course, &lesson, tenancy.GetViewer(c)))
}

// GetLesson returns a lesson. Free previews open regardless of course access;
// other locked lessons get the upgrade prompt.
// @Summary Get a lesson
// @Tags courses
// @Produce json
// @Param lessonId path int true "Lesson ID"
// @Success 200 {object} LessonResponse
// @Failure 403 {object} map[string]interface{} "Locked"
// @Router /t/lessons/{lessonId} [get]
func (h *Handler) GetLesson(c *gin.Context) {
	viewer := tenancy.GetViewer(c)
	lesson, ok := h.findLesson(c)
	if !ok {
		return
	}

	resp := lessonResponse(&lesson.Course, lesson, viewer)
	if resp.Locked {
		options, err := tiers.UpgradeOptions(h.db, viewer)
		if err != nil {
			apierror.Internal(c, "load upgrade options", err)
			return
		}
		apierror.Locked(c, "Upgrade your membership to watch this lesson", options)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteLesson removes a lesson (admin or owner)
// @Summary Delete a lesson
// @Tags courses
// @Produce json
// @Param lessonId path int true "Lesson ID"
// @Success 200 {object} map[string]string "Lesson deleted"
// @Security BearerAuth
// @Router /t/lessons/{lessonId} [delete]
func (h *Handler) DeleteLesson(c *gin.Context) {
	lesson, ok := h.findLesson(c)
	if !ok {
		return
	}

	if err := h.db.Delete(&models.Lesson{}, lesson.ID).Error; err != nil {
		apierror.Internal(c, "delete lesson", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Lesson deleted"})
}

// RegisterRoutes registers course routes on a tenant-scoped group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	enabled := tenancy.RequireFeature("Courses", func(f models.FeatureSettings) *bool { return f.Courses })
	admin := tenancy.RequireRole(access.RoleAdmin)

	courses := rg.Group("", enabled)
	courses.GET("/courses", h.List)
	courses.POST("/courses", admin, h.Create)
	courses.GET("/courses/:courseId", h.Get)
	courses.PUT("/courses/:courseId", admin, h.Update)
	courses.DELETE("/courses/:courseId", admin, h.Delete)
	courses.POST("/courses/:courseId/lessons", admin, h.AddLesson)
	courses.GET("/lessons/:lessonId", h.GetLesson)
	courses.DELETE("/lessons/:lessonId", admin, h.DeleteLesson)
}
