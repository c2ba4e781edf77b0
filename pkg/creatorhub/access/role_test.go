package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var orderedRoles = []Role{RoleMember, RoleModerator, RoleAdmin, RoleOwner}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"OWNER":     RoleOwner,
		"admin":     RoleAdmin,
		" Moderator": RoleModerator,
		"MEMBER":    RoleMember,
		"":          RoleMember,
		"superuser": RoleMember,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseRole(in), "ParseRole(%q)", in)
	}

	for _, r := range orderedRoles {
		assert.Equal(t, r, ParseRole(r.String()), "round trip %s", r)
	}
}

func TestHasRole_TotalOrder(t *testing.T) {
	for i, have := range orderedRoles {
		for j, min := range orderedRoles {
			assert.Equal(t, i >= j, HasRole(Context{Role: have}, min), "%s >= %s", have, min)
		}
	}
}

func TestHasRole_Monotonic(t *testing.T) {
	for _, r := range append(orderedRoles, Role(-1), Role(42)) {
		ctx := Context{Role: r}
		for j := 1; j < len(orderedRoles); j++ {
			if HasRole(ctx, orderedRoles[j]) {
				assert.True(t, HasRole(ctx, orderedRoles[j-1]), "role %d: %s implies %s", r, orderedRoles[j], orderedRoles[j-1])
			}
		}
	}
}

func TestHasRole_UnknownRoleIsMember(t *testing.T) {
	ctx := Context{Role: Role(42)}
	assert.True(t, HasRole(ctx, RoleMember))
	assert.False(t, HasRole(ctx, RoleModerator))
	assert.Equal(t, "MEMBER", Role(42).String())
	assert.Equal(t, "Member", Role(-3).Label())
}

func TestCanModifyPost(t *testing.T) {
	post := Post{AuthorID: 10}

	assert.True(t, CanModifyPost(Context{UserID: 10, Role: RoleMember}, post), "author")
	assert.False(t, CanModifyPost(Context{UserID: 11, Role: RoleMember}, post), "other member")
	assert.True(t, CanModifyPost(Context{UserID: 11, Role: RoleModerator}, post), "moderator")
	assert.True(t, CanModifyPost(Context{UserID: 11, Role: RoleOwner}, post), "owner")
	assert.False(t, CanModifyPost(Context{UserID: 0, Role: RoleMember}, Post{AuthorID: 0}), "anonymous")
}

func TestCapabilitiesFor(t *testing.T) {
	assert.Empty(t, CapabilitiesFor(RoleMember).List())
	assert.Equal(t, []Capability{CapPinPost, CapDeleteAnyPost}, CapabilitiesFor(RoleModerator).List())

	admin := CapabilitiesFor(RoleAdmin)
	assert.True(t, admin.Has(CapManageMembers))
	assert.True(t, admin.Has(CapPinPost))
	assert.False(t, admin.Has(CapManageBilling))

	owner := CapabilitiesFor(RoleOwner)
	assert.Len(t, owner.List(), len(allCapabilities))

	assert.Empty(t, CapabilitiesFor(Role(99)).List())
}
