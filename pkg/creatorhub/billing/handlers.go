package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/apierror"
	"github.com/mikepea/creatorhub/pkg/creatorhub/events"
	"github.com/mikepea/creatorhub/pkg/creatorhub/logger"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxBodyBytes = 65536

// Handler receives payment processor webhooks
type Handler struct {
	syncer *Syncer
	secret string
}

// NewHandler creates a new billing handler. secret is the webhook signing
// secret.
func NewHandler(db *gorm.DB, secret string, publisher events.Publisher) *Handler {
	return &Handler{syncer: NewSyncer(db, publisher), secret: secret}
}

// WebhookResponse acknowledges a webhook
type WebhookResponse struct {
	Received     bool   `json:"received"`
	Handled      bool   `json:"handled"`
	MembershipID uint   `json:"membership_id,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Webhook verifies and applies a subscription event
// @Summary Payment processor webhook
// @Tags billing
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Webhook signature"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} map[string]string "Invalid payload or signature"
// @Router /billing/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		logger.Ctx(ctx).Warn("webhook signature rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	change, ok, err := changeFrom(event)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, WebhookResponse{Received: true})
		return
	}

	log := logger.Ctx(ctx).With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
	applied, err := h.syncer.Apply(ctx, change)
	if applied == nil {
		if errors.Is(err, ErrMembershipNotFound) {
			// Acknowledge so the processor stops retrying an event we can never apply
			log.Warn("no membership for subscription", zap.String("subscription_id", change.SubscriptionID))
			c.JSON(http.StatusOK, WebhookResponse{Received: true})
			return
		}
		apierror.Internal(c, "apply billing change", err)
		return
	}
	if err != nil {
		log.Error("publish membership change", zap.Uint("membership_id", applied.MembershipID), zap.Error(err))
	}
	log.Info("membership synced",
		zap.Uint("membership_id", applied.MembershipID),
		zap.String("status", string(applied.Status)),
	)

	c.JSON(http.StatusOK, WebhookResponse{
		Received:     true,
		Handled:      true,
		MembershipID: applied.MembershipID,
		Status:       string(applied.Status),
	})
}

// changeFrom turns an event into a Change. It reports false for events that
// do not affect memberships.
func changeFrom(event stripe.Event) (Change, bool, error) {
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return Change{}, false, err
		}
		ch := Change{
			SubscriptionID: sub.ID,
			Metadata:       sub.Metadata,
			PriceID:        firstPriceID(&sub),
			Reason:         reasonFor(event.Type),
		}
		if event.Type == stripe.EventTypeCustomerSubscriptionDeleted {
			ch.Status = access.StatusCancelled
			return ch, true, nil
		}
		status, ok := StatusFor(sub.Status)
		if !ok {
			return Change{}, false, nil
		}
		ch.Status = status
		return ch, true, nil

	case stripe.EventTypeInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return Change{}, false, err
		}
		if inv.Parent == nil || inv.Parent.SubscriptionDetails == nil {
			return Change{}, false, nil
		}
		details := inv.Parent.SubscriptionDetails
		ch := Change{
			Metadata: details.Metadata,
			Status:   access.StatusPastDue,
			Reason:   events.ReasonPaymentFailed,
		}
		if details.Subscription != nil {
			ch.SubscriptionID = details.Subscription.ID
		}
		return ch, true, nil
	}
	return Change{}, false, nil
}

func reasonFor(t stripe.EventType) string {
	switch t {
	case stripe.EventTypeCustomerSubscriptionCreated:
		return events.ReasonSubscriptionCreated
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return events.ReasonSubscriptionDeleted
	}
	return events.ReasonSubscriptionUpdated
}

func firstPriceID(sub *stripe.Subscription) string {
	if sub.Items == nil {
		return ""
	}
	for _, item := range sub.Items.Data {
		if item.Price != nil && item.Price.ID != "" {
			return item.Price.ID
		}
	}
	return ""
}

// RegisterRoutes registers billing routes. The webhook is authenticated by its
// signature, not by a user token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/billing/webhook", h.Webhook)
}
