package organizations

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	slugRegex  = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)
	colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	hostRegex  = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`)
)

var reservedSlugs = []string{"api", "app", "www", "health", "admin", "login", "logout", "register", "auth", "billing", "static"}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NormalizeSlug lowercases and trims a slug
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ValidateSlug checks if an organization slug is valid and available
func ValidateSlug(db *gorm.DB, slug string, excludeID uint) error {
	if slug == "" {
		return &ValidationError{"Slug is required"}
	}

	if len(slug) > 50 {
		return &ValidationError{"Slug must be at most 50 characters"}
	}

	// Check format (lowercase alphanumeric with hyphens, no leading/trailing hyphens)
	if !slugRegex.MatchString(slug) {
		return &ValidationError{"Slug must contain only lowercase letters, numbers, and hyphens (no leading/trailing hyphens)"}
	}

	for _, r := range reservedSlugs {
		if strings.EqualFold(slug, r) {
			return &ValidationError{"This slug is reserved"}
		}
	}

	var existing models.Organization
	query := db.Unscoped().Where("slug = ?", slug)
	if excludeID > 0 {
		query = query.Where("id != ?", excludeID)
	}
	err := query.First(&existing).Error
	switch {
	case err == nil:
		return &ValidationError{"This slug is already taken"}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	}
	return fmt.Errorf("check slug: %w", err)
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// SlugFromName derives an available slug from an organization name, adding a
// numeric suffix when the plain form is taken or reserved.
func SlugFromName(db *gorm.DB, name string) (string, error) {
	base := strings.Trim(slugInvalidChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(base) > 40 {
		base = strings.TrimRight(base[:40], "-")
	}
	if base == "" {
		base = "community"
	}

	for i := 1; i <= 100; i++ {
		slug := base
		if i > 1 {
			slug = fmt.Sprintf("%s-%d", base, i)
		}
		err := ValidateSlug(db, slug, 0)
		if err == nil {
			return slug, nil
		}
		if !IsValidationError(err) {
			return "", err
		}
	}
	return "", &ValidationError{"Could not find an available slug for this name"}
}

// NormalizeHost lowercases a domain name and strips a trailing dot
func NormalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

// ValidateDomain checks that a custom domain is a plausible host name that no
// organization uses yet, either as its custom domain or as an extra domain.
func ValidateDomain(db *gorm.DB, host string, excludeOrgID uint) error {
	if !hostRegex.MatchString(host) {
		return &ValidationError{"Domain must be a valid host name"}
	}

	var count int64
	q := db.Model(&models.Organization{}).Where("custom_domain = ?", host)
	if excludeOrgID > 0 {
		q = q.Where("id != ?", excludeOrgID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &ValidationError{"This domain is already in use"}
	}

	q = db.Model(&models.OrganizationDomain{}).Where("domain = ?", host)
	if excludeOrgID > 0 {
		q = q.Where("organization_id != ?", excludeOrgID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &ValidationError{"This domain is already in use"}
	}
	return nil
}

// ValidatePrimaryColor checks a #RRGGBB brand color
func ValidatePrimaryColor(color string) error {
	if !colorRegex.MatchString(color) {
		return &ValidationError{"Primary color must be a hex color like #6366f1"}
	}
	return nil
}

// DefaultChannel describes a channel created alongside a new community
type DefaultChannel struct {
	Name     string
	Type     access.ChannelType
	IsPublic bool
}

// DefaultChannels are used when a caller does not name any
var DefaultChannels = []DefaultChannel{
	{Name: "general", Type: access.ChannelDiscussion},
	{Name: "announcements", Type: access.ChannelAnnouncements},
}

// ChannelNamed returns the default channel settings for name. Names that are
// not defaults become discussion channels.
func ChannelNamed(name string) DefaultChannel {
	name = strings.TrimSpace(name)
	for _, dc := range DefaultChannels {
		if strings.EqualFold(dc.Name, name) {
			return dc
		}
	}
	if strings.EqualFold(name, "events") {
		return DefaultChannel{Name: name, Type: access.ChannelEvents}
	}
	if strings.EqualFold(name, "resources") {
		return DefaultChannel{Name: name, Type: access.ChannelResources}
	}
	return DefaultChannel{Name: name, Type: access.ChannelDiscussion}
}

// NewOrganization holds everything needed to provision an organization
type NewOrganization struct {
	Name          string
	Slug          string
	OwnerID       uint
	Settings      models.OrganizationSettings
	Description   string
	CommunityName string
	Channels      []DefaultChannel
}

// Provision creates an organization with its owner membership, its community
// and the community's channels. It must run inside a transaction.
func Provision(tx *gorm.DB, n NewOrganization) (*models.Organization, error) {
	if err := ValidateSlug(tx, n.Slug, 0); err != nil {
		return nil, err
	}

	org := models.Organization{
		Name:     strings.TrimSpace(n.Name),
		Slug:     n.Slug,
		OwnerID:  n.OwnerID,
		Settings: datatypes.NewJSONType(n.Settings),
	}
	if err := tx.Create(&org).Error; err != nil {
		return nil, err
	}

	membership := models.OrganizationMembership{
		OrganizationID: org.ID,
		UserID:         n.OwnerID,
		Role:           models.OrgRoleOwner,
		Status:         access.StatusActive,
	}
	if err := tx.Create(&membership).Error; err != nil {
		return nil, err
	}

	communityName := strings.TrimSpace(n.CommunityName)
	if communityName == "" {
		communityName = org.Name
	}
	community := models.Community{OrganizationID: org.ID, Name: communityName, Description: n.Description}
	if err := tx.Create(&community).Error; err != nil {
		return nil, err
	}

	channels := n.Channels
	if len(channels) == 0 {
		channels = DefaultChannels
	}
	for i, dc := range channels {
		ch := models.Channel{
			CommunityID: community.ID,
			Name:        dc.Name,
			Type:        dc.Type,
			IsPublic:    dc.IsPublic,
			Position:    i,
		}
		if err := tx.Create(&ch).Error; err != nil {
			return nil, err
		}
	}

	return &org, nil
}
