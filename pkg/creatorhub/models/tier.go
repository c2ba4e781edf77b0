package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"gorm.io/gorm"
)

// TierInterval is a billing interval
type TierInterval string

const (
	IntervalMonth   TierInterval = "month"
	IntervalYear    TierInterval = "year"
	IntervalOneTime TierInterval = "one_time"
)

// TierIDPrefix prefixes every generated tier id
const TierIDPrefix = "tier_"

// MembershipTier is a priced level of access within an organization.
// Position defines display order; price defines upgrade order.
type MembershipTier struct {
	ID             string         `gorm:"primarykey;type:varchar(64)" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	Name           string         `gorm:"not null" json:"name"`
	Description    string         `json:"description"`
	PriceCents     int64          `gorm:"not null;default:0" json:"price_cents"`
	Currency       string         `gorm:"type:varchar(3);default:'usd'" json:"currency"`
	Interval       TierInterval   `gorm:"type:varchar(16);default:'month'" json:"interval"`
	Position       int            `gorm:"default:0" json:"position"`
	Active         bool           `json:"active"`
	StripePriceID  string         `json:"stripe_price_id,omitempty"`
}

// NewTierID generates a tier id
func NewTierID() string {
	return TierIDPrefix + uuid.NewString()
}

// BeforeCreate assigns an id when none was set
func (t *MembershipTier) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewTierID()
	}
	return nil
}

// Access converts the tier for upgrade comparisons
func (t *MembershipTier) Access() access.Tier {
	return access.Tier{
		ID:         t.ID,
		PriceCents: t.PriceCents,
		Position:   t.Position,
		Active:     t.Active,
	}
}
