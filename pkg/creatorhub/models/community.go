package models

import (
	"time"

	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Community is the discussion space of an organization. Each organization has one.
type Community struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID uint           `gorm:"not null;uniqueIndex" json:"organization_id"`
	Name           string         `gorm:"not null" json:"name"`
	Description    string         `json:"description"`

	// Relationships
	Channels []Channel `gorm:"foreignKey:CommunityID" json:"channels,omitempty"`
}

// Channel is a feed of posts inside a community.
// An empty AccessTierIDs opens the channel to every active member.
type Channel struct {
	ID            uint                        `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
	DeletedAt     gorm.DeletedAt              `gorm:"index" json:"-"`
	CommunityID   uint                        `gorm:"not null;index" json:"community_id"`
	Name          string                      `gorm:"not null" json:"name"`
	Description   string                      `json:"description"`
	Type          access.ChannelType          `gorm:"type:varchar(20);default:'DISCUSSION'" json:"type"`
	IsPublic      bool                        `json:"is_public"`
	AccessTierIDs datatypes.JSONSlice[string] `json:"access_tier_ids"`
	Position      int                         `gorm:"default:0" json:"position"`

	// Relationships
	Community Community `gorm:"foreignKey:CommunityID" json:"-"`
}

// Access converts the channel into the evaluator's visibility record
func (ch *Channel) Access() access.Channel {
	return access.Channel{
		Resource: access.Resource{
			IsPublic:      ch.IsPublic,
			AccessTierIDs: []string(ch.AccessTierIDs),
		},
		Type: ch.Type,
	}
}

// Post is a message in a channel
type Post struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	ChannelID uint           `gorm:"not null;index" json:"channel_id"`
	AuthorID  uint           `gorm:"not null;index" json:"author_id"`
	Title     string         `json:"title"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	Pinned    bool           `json:"pinned"`
	Published bool           `json:"published"`

	// Relationships
	Channel Channel `gorm:"foreignKey:ChannelID" json:"-"`
	Author  User    `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// Access returns the fields moderation decisions depend on
func (p *Post) Access() access.Post {
	return access.Post{AuthorID: p.AuthorID}
}
