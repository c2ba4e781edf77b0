package models

import (
	"time"

	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LivestreamStatus is the broadcast state of a livestream
type LivestreamStatus string

const (
	LivestreamScheduled LivestreamStatus = "SCHEDULED"
	LivestreamLive      LivestreamStatus = "LIVE"
	LivestreamEnded     LivestreamStatus = "ENDED"
)

// CanTransitionTo reports whether a livestream may move from s to next.
// Streams only move forward: SCHEDULED -> LIVE -> ENDED, or SCHEDULED -> ENDED.
func (s LivestreamStatus) CanTransitionTo(next LivestreamStatus) bool {
	switch s {
	case LivestreamScheduled:
		return next == LivestreamLive || next == LivestreamEnded
	case LivestreamLive:
		return next == LivestreamEnded
	}
	return false
}

// Livestream is a scheduled live broadcast
type Livestream struct {
	ID             uint                        `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	DeletedAt      gorm.DeletedAt              `gorm:"index" json:"-"`
	OrganizationID uint                        `gorm:"not null;index" json:"organization_id"`
	Title          string                      `gorm:"not null" json:"title"`
	Description    string                      `json:"description"`
	ScheduledAt    time.Time                   `json:"scheduled_at"`
	Status         LivestreamStatus            `gorm:"type:varchar(20);default:'SCHEDULED'" json:"status"`
	IsPublic       bool                        `json:"is_public"`
	AccessTierIDs  datatypes.JSONSlice[string] `json:"access_tier_ids"`
	PlaybackID     string                      `json:"playback_id,omitempty"`
}

// Access returns the livestream's visibility record
func (l *Livestream) Access() access.Resource {
	return access.Resource{
		IsPublic:      l.IsPublic,
		AccessTierIDs: []string(l.AccessTierIDs),
	}
}
