package models

import (
	"time"

	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrgRole represents a user's role within an organization
type OrgRole string

const (
	OrgRoleOwner     OrgRole = "OWNER"
	OrgRoleAdmin     OrgRole = "ADMIN"
	OrgRoleModerator OrgRole = "MODERATOR"
	OrgRoleMember    OrgRole = "MEMBER"
)

// Rank returns the comparable rank of the stored role name
func (r OrgRole) Rank() access.Role {
	return access.ParseRole(string(r))
}

// Organization is a creator's tenant. It is addressed by its slug as a
// subdomain of the platform base domain, or by a custom domain.
// Exactly one user owns an organization.
type Organization struct {
	ID           uint                                     `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time                                `json:"created_at"`
	UpdatedAt    time.Time                                `json:"updated_at"`
	DeletedAt    gorm.DeletedAt                           `gorm:"index" json:"-"`
	Name         string                                   `gorm:"not null" json:"name"`
	Slug         string                                   `gorm:"uniqueIndex;not null" json:"slug"`          // Subdomain key, unique across all orgs
	CustomDomain *string                                  `gorm:"uniqueIndex" json:"custom_domain,omitempty"` // e.g. "learn.janedoe.com"
	OwnerID      uint                                     `gorm:"not null;index" json:"owner_id"`
	Settings     datatypes.JSONType[OrganizationSettings] `json:"settings"`

	// Relationships
	Members []OrganizationMembership `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
	Domains []OrganizationDomain     `gorm:"foreignKey:OrganizationID" json:"domains,omitempty"`
	Tiers   []MembershipTier         `gorm:"foreignKey:OrganizationID" json:"tiers,omitempty"`
}

// IsOwner reports whether userID owns the organization
func (o *Organization) IsOwner(userID uint) bool {
	return userID != 0 && o.OwnerID == userID
}

// ResolvedSettings returns the organization's settings with defaults applied
func (o *Organization) ResolvedSettings() OrganizationSettings {
	return o.Settings.Data().Resolve()
}

// OrganizationMembership links a user to an organization with a role, a
// billing status, and an optional paid tier. A nil TierID is the free tier.
type OrganizationMembership struct {
	ID                   uint           `gorm:"primarykey" json:"id"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID       uint           `gorm:"not null;uniqueIndex:idx_org_user" json:"organization_id"`
	UserID               uint           `gorm:"not null;uniqueIndex:idx_org_user" json:"user_id"`
	Role                 OrgRole        `gorm:"type:varchar(20);default:'MEMBER'" json:"role"`
	Status               access.Status  `gorm:"type:varchar(20);default:'ACTIVE';index" json:"status"`
	TierID               *string        `gorm:"type:varchar(64);index" json:"tier_id"`
	JoinedAt             time.Time      `json:"joined_at"`
	StripeSubscriptionID string         `gorm:"index" json:"-"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// BeforeCreate stamps JoinedAt
func (m *OrganizationMembership) BeforeCreate(tx *gorm.DB) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	return nil
}

// Access converts the membership into the evaluator's view of it.
// A nil receiver yields a nil membership.
func (m *OrganizationMembership) Access() *access.Membership {
	if m == nil {
		return nil
	}
	am := &access.Membership{
		UserID: m.UserID,
		Status: m.Status,
		Role:   m.Role.Rank(),
	}
	if m.TierID != nil {
		am.TierID = *m.TierID
	}
	return am
}

// OrganizationDomain is an additional host name that maps to an organization.
// Incoming Host headers are matched against these when resolving the tenant.
type OrganizationDomain struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	Domain         string         `gorm:"uniqueIndex;not null" json:"domain"`
	IsPrimary      bool           `gorm:"default:false" json:"is_primary"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}
