// Package access decides what a viewer may see and do inside an organization.
//
// Every function here is pure: decisions depend only on the arguments, nothing
// is cached or mutated, and all functions are safe for concurrent use. Denial is
// an ordinary false result; callers turn it into a locked or upgrade prompt.
package access

// Status is the billing state of a membership
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusCancelled Status = "CANCELLED"
	StatusPastDue   Status = "PAST_DUE"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled, StatusPastDue:
		return true
	}
	return false
}

// Membership is the viewer's relationship to the organization that owns a resource.
// An empty TierID means the free tier.
type Membership struct {
	UserID uint
	Status Status
	TierID string
	Role   Role
}

// Active reports whether the membership currently grants member access
func (m *Membership) Active() bool {
	return m != nil && m.Status == StatusActive
}

// Resource is the visibility record of a channel, course, or livestream.
// A nil or empty AccessTierIDs means every active member may view it.
type Resource struct {
	IsPublic      bool
	AccessTierIDs []string
}

// CanAccessResource reports whether the viewer may view res.
//
// Owners see everything. Public resources are visible to anyone. Otherwise the
// viewer needs an ACTIVE membership and, when the resource lists tiers, a tier
// from that list.
func CanAccessResource(res Resource, m *Membership, isOrgOwner bool) bool {
	if isOrgOwner {
		return true
	}
	if !m.Active() {
		return res.IsPublic
	}
	if res.IsPublic {
		return true
	}
	// An empty tier list opens the resource to all active members, not to nobody.
	if len(res.AccessTierIDs) == 0 {
		return true
	}
	if m.TierID == "" {
		return false
	}
	for _, id := range res.AccessTierIDs {
		if id == m.TierID {
			return true
		}
	}
	return false
}

// ChannelType is the closed set of channel kinds
type ChannelType string

const (
	ChannelDiscussion    ChannelType = "DISCUSSION"
	ChannelAnnouncements ChannelType = "ANNOUNCEMENTS"
	ChannelEvents        ChannelType = "EVENTS"
	ChannelResources     ChannelType = "RESOURCES"
	ChannelLivestream    ChannelType = "LIVESTREAM"
)

// ChannelTypes lists every channel type
var ChannelTypes = []ChannelType{
	ChannelDiscussion,
	ChannelAnnouncements,
	ChannelEvents,
	ChannelResources,
	ChannelLivestream,
}

// Valid reports whether t is a known channel type
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelDiscussion, ChannelAnnouncements, ChannelEvents, ChannelResources, ChannelLivestream:
		return true
	}
	return false
}

// Icon returns the icon name used when listing the channel
func (t ChannelType) Icon() string {
	switch t {
	case ChannelDiscussion:
		return "message-square"
	case ChannelAnnouncements:
		return "megaphone"
	case ChannelEvents:
		return "calendar"
	case ChannelResources:
		return "folder"
	case ChannelLivestream:
		return "video"
	}
	return "hash"
}

// MembersCanPost reports whether plain members may write in channels of this type
func (t ChannelType) MembersCanPost() bool {
	return t == ChannelDiscussion
}

// Channel is a channel's visibility record plus its type
type Channel struct {
	Resource
	Type ChannelType
}

// CanPostInChannel reports whether the viewer may create posts in ch. It
// requires view access and either a DISCUSSION channel or an admin or owner.
func CanPostInChannel(ch Channel, m *Membership, isOrgOwner bool) bool {
	if isOrgOwner {
		return true
	}
	if !m.Active() {
		return false
	}
	if !CanAccessResource(ch.Resource, m, false) {
		return false
	}
	return ch.Type.MembersCanPost() || m.Role.AtLeast(RoleAdmin)
}

// CourseAccess is how a course is gated
type CourseAccess string

const (
	CourseFree CourseAccess = "FREE"
	CourseTier CourseAccess = "TIER"
)

// CourseResource builds the visibility record of a course. FREE courses are
// open to every active member; TIER courses follow their tier list.
func CourseResource(accessType CourseAccess, tierIDs []string) Resource {
	if accessType == CourseFree {
		return Resource{}
	}
	return Resource{AccessTierIDs: tierIDs}
}

// Lesson carries the lesson fields that affect visibility
type Lesson struct {
	IsFreePreview bool
}

// CanViewLesson reports whether a lesson is visible. Free previews are visible
// to anyone regardless of course access.
func CanViewLesson(course Resource, lesson Lesson, m *Membership, isOrgOwner bool) bool {
	if lesson.IsFreePreview {
		return true
	}
	return CanAccessResource(course, m, isOrgOwner)
}
