package onboarding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"github.com/mikepea/creatorhub/pkg/creatorhub/organizations"
	"gorm.io/gorm"
)

// ErrAlreadyOnboarded is returned when the user has finished onboarding before
var ErrAlreadyOnboarded = errors.New("onboarding: already onboarded")

// StoreCompleter finishes onboarding for one user in the database: it updates
// the profile, provisions the organization with its community and channels,
// and marks the user onboarded, all in one transaction.
type StoreCompleter struct {
	db     *gorm.DB
	userID uint

	// Organization is set after a successful Complete
	Organization *models.Organization
}

// NewStoreCompleter creates a completer for userID
func NewStoreCompleter(db *gorm.DB, userID uint) *StoreCompleter {
	return &StoreCompleter{db: db, userID: userID}
}

// Complete applies data atomically
func (s *StoreCompleter) Complete(ctx context.Context, data Data) error {
	var org *models.Organization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, s.userID).Error; err != nil {
			return err
		}
		if user.OnboardedAt != nil {
			return ErrAlreadyOnboarded
		}

		slug, err := organizations.SlugFromName(tx, data.OrganizationName)
		if err != nil {
			return err
		}

		org, err = organizations.Provision(tx, organizations.NewOrganization{
			Name:          data.OrganizationName,
			Slug:          slug,
			OwnerID:       s.userID,
			Settings:      settingsFrom(data),
			Description:   strings.TrimSpace(data.OrganizationDescription),
			CommunityName: data.CommunityName,
			Channels:      channelsFrom(data.DefaultChannels),
		})
		if err != nil {
			return err
		}

		return tx.Model(&user).Updates(map[string]interface{}{
			"display_name": strings.TrimSpace(data.DisplayName),
			"bio":          strings.TrimSpace(data.Bio),
			"onboarded_at": time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return err
	}
	s.Organization = org
	return nil
}

// settingsFrom turns the wizard's choices into organization settings. Features
// not picked are switched off.
func settingsFrom(data Data) models.OrganizationSettings {
	picked := make(map[string]bool, len(data.Features))
	for _, f := range data.Features {
		picked[strings.ToLower(strings.TrimSpace(f))] = true
	}
	return models.OrganizationSettings{
		PrimaryColor: strings.ToLower(data.PrimaryColor),
		UseCase:      data.UseCase,
		Features: models.FeatureSettings{
			Courses:        models.Bool(picked[FeatureCourses]),
			Livestreams:    models.Bool(picked[FeatureLivestreams]),
			DirectMessages: models.Bool(picked[FeatureDirectMessages]),
			Events:         models.Bool(picked[FeatureEvents]),
		},
	}
}

func channelsFrom(names []string) []organizations.DefaultChannel {
	seen := make(map[string]bool, len(names))
	var out []organizations.DefaultChannel
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, organizations.ChannelNamed(name))
	}
	return out
}
