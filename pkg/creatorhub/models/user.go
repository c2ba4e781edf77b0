package models

import (
	"time"

	"gorm.io/gorm"
)

// SystemRole represents a user's platform-wide role
type SystemRole string

const (
	SystemRoleAdmin SystemRole = "admin"
	SystemRoleUser  SystemRole = "user"
)

// User represents a user in the system
type User struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Email           string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string         `json:"-"`
	Name            string         `gorm:"not null" json:"name"`
	DisplayName     string         `json:"display_name,omitempty"`
	Bio             string         `json:"bio,omitempty"`
	SystemRole      SystemRole     `gorm:"type:varchar(20);default:'user'" json:"system_role"`
	OnboardedAt     *time.Time     `json:"onboarded_at,omitempty"`
	TourDismissedAt *time.Time     `json:"tour_dismissed_at,omitempty"`

	// Relationships
	OrganizationMemberships []OrganizationMembership `gorm:"foreignKey:UserID" json:"organization_memberships,omitempty"`
}

// PublicName is the name shown to other members
func (u *User) PublicName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}
