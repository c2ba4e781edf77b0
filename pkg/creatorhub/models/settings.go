package models

// DefaultPrimaryColor is the brand color used when an organization has not set one
const DefaultPrimaryColor = "#6366f1"

// OrganizationSettings is stored as a JSON column on Organization.
// Feature and community flags are pointers so that an unset flag can be told
// apart from an explicit false; Resolve fills them in.
type OrganizationSettings struct {
	PrimaryColor string            `json:"primary_color,omitempty"`
	UseCase      string            `json:"use_case,omitempty"`
	Features     FeatureSettings   `json:"features"`
	Community    CommunitySettings `json:"community"`
}

// FeatureSettings toggles product areas for an organization
type FeatureSettings struct {
	Courses        *bool `json:"courses,omitempty"`
	Livestreams    *bool `json:"livestreams,omitempty"`
	DirectMessages *bool `json:"direct_messages,omitempty"`
	Events         *bool `json:"events,omitempty"`
}

// CommunitySettings controls what visitors see of the community
type CommunitySettings struct {
	PublicPreview   *bool `json:"public_preview,omitempty"`
	ShowMemberCount *bool `json:"show_member_count,omitempty"`
}

// Resolve returns a copy with every unset field replaced by its default.
// Features default on; PublicPreview defaults off; ShowMemberCount defaults on.
func (s OrganizationSettings) Resolve() OrganizationSettings {
	if s.PrimaryColor == "" {
		s.PrimaryColor = DefaultPrimaryColor
	}
	s.Features.Courses = orDefault(s.Features.Courses, true)
	s.Features.Livestreams = orDefault(s.Features.Livestreams, true)
	s.Features.DirectMessages = orDefault(s.Features.DirectMessages, true)
	s.Features.Events = orDefault(s.Features.Events, true)
	s.Community.PublicPreview = orDefault(s.Community.PublicPreview, false)
	s.Community.ShowMemberCount = orDefault(s.Community.ShowMemberCount, true)
	return s
}

// Merge overlays the fields set in patch onto s
func (s OrganizationSettings) Merge(patch OrganizationSettings) OrganizationSettings {
	if patch.PrimaryColor != "" {
		s.PrimaryColor = patch.PrimaryColor
	}
	if patch.UseCase != "" {
		s.UseCase = patch.UseCase
	}
	overlay(&s.Features.Courses, patch.Features.Courses)
	overlay(&s.Features.Livestreams, patch.Features.Livestreams)
	overlay(&s.Features.DirectMessages, patch.Features.DirectMessages)
	overlay(&s.Features.Events, patch.Features.Events)
	overlay(&s.Community.PublicPreview, patch.Community.PublicPreview)
	overlay(&s.Community.ShowMemberCount, patch.Community.ShowMemberCount)
	return s
}

// Enabled reports a resolved flag; unset reads as false
func Enabled(flag *bool) bool {
	return flag != nil && *flag
}

// Bool returns a pointer to b
func Bool(b bool) *bool {
	return &b
}

func orDefault(v *bool, def bool) *bool {
	if v != nil {
		return v
	}
	return Bool(def)
}

func overlay(dst **bool, src *bool) {
	if src != nil {
		*dst = Bool(*src)
	}
}
