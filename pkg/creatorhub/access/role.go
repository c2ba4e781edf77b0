package access

import "strings"

// Role is a member's rank within an organization. Roles are totally ordered:
// RoleMember < RoleModerator < RoleAdmin < RoleOwner.
type Role int

const (
	RoleMember Role = iota
	RoleModerator
	RoleAdmin
	RoleOwner
)

// ParseRole maps a stored role name to its rank. Unknown or empty names
// resolve to RoleMember.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OWNER":
		return RoleOwner
	case "ADMIN":
		return RoleAdmin
	case "MODERATOR":
		return RoleModerator
	default:
		return RoleMember
	}
}

// String returns the stored name of the role
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "OWNER"
	case RoleAdmin:
		return "ADMIN"
	case RoleModerator:
		return "MODERATOR"
	case RoleMember:
		return "MEMBER"
	}
	return "MEMBER"
}

// Valid reports whether r is one of the four defined roles
func (r Role) Valid() bool {
	return r >= RoleMember && r <= RoleOwner
}

// Label returns the badge text shown next to a member's name
func (r Role) Label() string {
	switch r {
	case RoleOwner:
		return "Owner"
	case RoleAdmin:
		return "Admin"
	case RoleModerator:
		return "Moderator"
	case RoleMember:
		return "Member"
	}
	return "Member"
}

// AtLeast reports whether r ranks at or above min
func (r Role) AtLeast(min Role) bool {
	return normalize(r) >= normalize(min)
}

// normalize clamps out-of-range ranks to RoleMember
func normalize(r Role) Role {
	if !r.Valid() {
		return RoleMember
	}
	return r
}

// Context identifies the viewer for permission checks
type Context struct {
	UserID uint
	Role   Role
}

// Post carries the fields of a post that moderation decisions depend on
type Post struct {
	AuthorID uint
}

// HasRole reports whether the viewer's role is at least minimum
func HasRole(ctx Context, minimum Role) bool {
	return ctx.Role.AtLeast(minimum)
}

// CanModifyPost reports whether the viewer may edit or delete the post:
// its author always can, otherwise moderators and above.
func CanModifyPost(ctx Context, post Post) bool {
	if ctx.UserID != 0 && ctx.UserID == post.AuthorID {
		return true
	}
	return HasRole(ctx, RoleModerator)
}

// Capability is a single moderation or management permission
type Capability string

const (
	CapPinPost       Capability = "pin_post"
	CapDeleteAnyPost Capability = "delete_any_post"
	CapManageMembers Capability = "manage_members"
	CapManageContent Capability = "manage_content"
	CapManageTiers   Capability = "manage_tiers"
	CapManageBilling Capability = "manage_billing"
)

// Capabilities is a set of capabilities
type Capabilities map[Capability]bool

// Has reports whether the set contains c
func (cs Capabilities) Has(c Capability) bool {
	return cs[c]
}

// List returns the capabilities in a stable order
func (cs Capabilities) List() []Capability {
	out := make([]Capability, 0, len(cs))
	for _, c := range allCapabilities {
		if cs[c] {
			out = append(out, c)
		}
	}
	return out
}

var allCapabilities = []Capability{
	CapPinPost,
	CapDeleteAnyPost,
	CapManageMembers,
	CapManageContent,
	CapManageTiers,
	CapManageBilling,
}

// CapabilitiesFor returns the capability set granted to a role
func CapabilitiesFor(role Role) Capabilities {
	caps := Capabilities{}
	switch normalize(role) {
	case RoleOwner:
		caps[CapManageBilling] = true
		fallthrough
	case RoleAdmin:
		caps[CapManageMembers] = true
		caps[CapManageContent] = true
		caps[CapManageTiers] = true
		fallthrough
	case RoleModerator:
		caps[CapPinPost] = true
		caps[CapDeleteAnyPost] = true
	case RoleMember:
	}
	return caps
}
