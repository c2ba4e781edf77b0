package models

import (
	"time"

	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course is an ordered set of video lessons
type Course struct {
	ID             uint                        `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	DeletedAt      gorm.DeletedAt              `gorm:"index" json:"-"`
	OrganizationID uint                        `gorm:"not null;index" json:"organization_id"`
	Title          string                      `gorm:"not null" json:"title"`
	Description    string                      `json:"description"`
	AccessType     access.CourseAccess         `gorm:"type:varchar(10);default:'FREE'" json:"access_type"`
	AccessTierIDs  datatypes.JSONSlice[string] `json:"access_tier_ids"`
	Published      bool                        `json:"published"`

	// Relationships
	Lessons []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

// Access returns the course's visibility record
func (c *Course) Access() access.Resource {
	return access.CourseResource(c.AccessType, []string(c.AccessTierIDs))
}

// Lesson is a single video within a course
type Lesson struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID        uint           `gorm:"not null;index" json:"course_id"`
	Title           string         `gorm:"not null" json:"title"`
	Description     string         `json:"description"`
	Position        int            `gorm:"default:0" json:"position"`
	VideoAssetID    string         `json:"video_asset_id,omitempty"`
	DurationSeconds int            `json:"duration_seconds"`
	IsFreePreview   bool           `json:"is_free_preview"`

	// Relationships
	Course Course `gorm:"foreignKey:CourseID" json:"-"`
}

// Access returns the lesson fields that affect visibility
func (l *Lesson) Access() access.Lesson {
	return access.Lesson{IsFreePreview: l.IsFreePreview}
}
