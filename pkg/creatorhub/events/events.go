// Package events publishes domain events about memberships to the event
// stream, or to the log when no stream is configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mikepea/creatorhub/pkg/creatorhub/access"
	"github.com/mikepea/creatorhub/pkg/creatorhub/logger"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Reasons a membership changed
const (
	ReasonSubscriptionCreated = "subscription_created"
	ReasonSubscriptionUpdated = "subscription_updated"
	ReasonSubscriptionDeleted = "subscription_deleted"
	ReasonPaymentFailed       = "payment_failed"
)

// MembershipChanged is emitted whenever billing changes a membership's status
// or tier
type MembershipChanged struct {
	OrganizationID uint          `json:"organization_id"`
	UserID         uint          `json:"user_id"`
	MembershipID   uint          `json:"membership_id"`
	Status         access.Status `json:"status"`
	TierID         *string       `json:"tier_id"`
	Reason         string        `json:"reason"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// Publisher delivers events
type Publisher interface {
	PublishMembershipChanged(ctx context.Context, e MembershipChanged) error
	Close()
}

// producer is the part of *kgo.Client the publisher needs
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher writes events to a Kafka topic, keyed by membership so that
// changes to one membership stay ordered
type KafkaPublisher struct {
	client producer
	topic  string
}

// NewKafkaPublisher connects to brokers
func NewKafkaPublisher(brokers []string, topic, clientID string) (*KafkaPublisher, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if clientID != "" {
		opts = append(opts, kgo.ClientID(clientID))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("events: kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

// PublishMembershipChanged produces e and waits for the broker to acknowledge it
func (p *KafkaPublisher) PublishMembershipChanged(ctx context.Context, e MembershipChanged) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(strconv.FormatUint(uint64(e.MembershipID), 10)),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte("membership.changed")},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("events: produce: %w", err)
	}
	return nil
}

// Close flushes and closes the client
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// LogPublisher writes events to the logger
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher creates a publisher that logs through log, or the global
// logger when log is nil
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishMembershipChanged(ctx context.Context, e MembershipChanged) error {
	l := p.log
	if l == nil {
		l = logger.Ctx(ctx)
	}
	fields := []zap.Field{
		zap.Uint("organization_id", e.OrganizationID),
		zap.Uint("user_id", e.UserID),
		zap.Uint("membership_id", e.MembershipID),
		zap.String("status", string(e.Status)),
		zap.String("reason", e.Reason),
		zap.Time("occurred_at", e.OccurredAt),
	}
	if e.TierID != nil {
		fields = append(fields, zap.String("tier_id", *e.TierID))
	}
	l.Info("membership changed", fields...)
	return nil
}

func (p *LogPublisher) Close() {}
