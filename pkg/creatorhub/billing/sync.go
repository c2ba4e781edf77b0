// Package billing keeps membership status and tier in step with the payment
// processor. Subscriptions carry the membership id and tier id in their
// metadata; the processor is the source of truth for both.
package billing

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/events"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

// Metadata keys set on subscriptions at checkout
const (
	MetadataMembershipID = "membership_id"
	MetadataTierID       = "tier_id"
)

// ErrMembershipNotFound is returned when a subscription cannot be matched to a
// membership
var ErrMembershipNotFound = errors.New("billing: membership not found")

// StatusFor maps a subscription status to a membership status. Incomplete
// subscriptions have not been paid for yet and leave the membership alone.
func StatusFor(s stripe.SubscriptionStatus) (access.Status, bool) {
	switch s {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return access.StatusActive, true
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return access.StatusPastDue, true
	case stripe.SubscriptionStatusPaused:
		return access.StatusPaused, true
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return access.StatusCancelled, true
	}
	return "", false
}

// Change is a membership update derived from one webhook event
type Change struct {
	SubscriptionID string
	Metadata       map[string]string
	PriceID        string
	Status         access.Status
	Reason         string
}

// Syncer applies Changes and announces them
type Syncer struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewSyncer creates a Syncer
func NewSyncer(db *gorm.DB, publisher events.Publisher) *Syncer {
	return &Syncer{db: db, publisher: publisher, now: time.Now}
}

// Apply updates the membership the change refers to and returns the
// published event. The event is published after the update commits; a
// publish failure is returned alongside the event.
func (s *Syncer) Apply(ctx context.Context, ch Change) (*events.MembershipChanged, error) {
	var membership models.OrganizationMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.find(tx, ch, &membership); err != nil {
			return err
		}

		tierID, err := s.tierFor(tx, membership, ch)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"status": ch.Status}
		if tierID != nil {
			updates["tier_id"] = *tierID
			membership.TierID = tierID
		}
		if ch.SubscriptionID != "" && membership.StripeSubscriptionID != ch.SubscriptionID {
			updates["stripe_subscription_id"] = ch.SubscriptionID
			membership.StripeSubscriptionID = ch.SubscriptionID
		}
		if err := tx.Model(&membership).Updates(updates).Error; err != nil {
			return err
		}
		membership.Status = ch.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	e := events.MembershipChanged{
		OrganizationID: membership.OrganizationID,
		UserID:         membership.UserID,
		MembershipID:   membership.ID,
		Status:         membership.Status,
		TierID:         membership.TierID,
		Reason:         ch.Reason,
		OccurredAt:     s.now().UTC(),
	}
	return &e, s.publisher.PublishMembershipChanged(ctx, e)
}

// find locates the membership by metadata first, then by subscription id
func (s *Syncer) find(tx *gorm.DB, ch Change, m *models.OrganizationMembership) error {
	if raw := ch.Metadata[MetadataMembershipID]; raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err == nil {
			err = tx.First(m, uint(id)).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
	}
	if ch.SubscriptionID == "" {
		return ErrMembershipNotFound
	}
	err := tx.Where("stripe_subscription_id = ?", ch.SubscriptionID).First(m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrMembershipNotFound
	}
	return err
}

// tierFor resolves the tier named by the change within the membership's
// organization. It returns nil when the tier should stay as it is.
func (s *Syncer) tierFor(tx *gorm.DB, m models.OrganizationMembership, ch Change) (*string, error) {
	var tier models.MembershipTier
	q := tx.Where("organization_id = ?", m.OrganizationID)
	switch {
	case ch.Metadata[MetadataTierID] != "":
		q = q.Where("id = ?", ch.Metadata[MetadataTierID])
	case ch.PriceID != "":
		q = q.Where("stripe_price_id = ?", ch.PriceID)
	default:
		return nil, nil
	}
	if err := q.First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier.ID, nil
}
